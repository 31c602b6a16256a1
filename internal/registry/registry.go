// Package registry maps a capability and a kind name to the factory that
// builds the provider, so that run configurations select implementations by
// name.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/iqsim/internal/antenna"
	"github.com/banshee-data/iqsim/internal/clutter"
	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/header"
	"github.com/banshee-data/iqsim/internal/platform"
	"github.com/banshee-data/iqsim/internal/target"
)

// Capability is the role a provider plays in a run.
type Capability string

const (
	Trajectory Capability = "trajectory"
	Platform   Capability = "platform"
	Antenna    Capability = "antenna"
	Clutter    Capability = "clutter"
	Header     Capability = "header"
)

// Definition describes a registered provider kind.
type Definition struct {
	Capability  Capability
	Kind        string
	Description string
	// NewParams returns a pointer to the kind's parameters filled with defaults.
	NewParams func() any
	// Build constructs the provider from the value NewParams returned.
	Build func(params any) (any, error)
}

// Info is a summary of a registered kind.
type Info struct {
	Capability  Capability `json:"capability"`
	Kind        string     `json:"kind"`
	Description string     `json:"description"`
}

type key struct {
	cap  Capability
	kind string
}

// Registry holds provider definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[key]*Definition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[key]*Definition)}
}

// Register adds def, replacing any definition with the same capability and kind.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[key{def.Capability, def.Kind}] = def
}

// Get retrieves a definition.
func (r *Registry) Get(c Capability, kind string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[key{c, kind}]
	return def, ok
}

// List returns every registered kind sorted by capability then kind.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.defs))
	for _, def := range r.defs {
		infos = append(infos, Info{Capability: def.Capability, Kind: def.Kind, Description: def.Description})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Capability != infos[j].Capability {
			return infos[i].Capability < infos[j].Capability
		}
		return infos[i].Kind < infos[j].Kind
	})
	return infos
}

func (r *Registry) lookup(c Capability, kind string) (*Definition, error) {
	def, ok := r.Get(c, kind)
	if !ok {
		return nil, fmt.Errorf("%w: no %s provider named %q", config.ErrConfiguration, c, kind)
	}
	return def, nil
}

// DecodeParams returns the kind's default parameters overlaid with raw. Empty
// raw leaves the defaults untouched; unknown fields are rejected.
func (r *Registry) DecodeParams(c Capability, kind string, raw json.RawMessage) (any, error) {
	def, err := r.lookup(c, kind)
	if err != nil {
		return nil, err
	}
	params := def.NewParams()
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return params, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("%w: %s %q params: %v", config.ErrConfiguration, c, kind, err)
	}
	return params, nil
}

// Build constructs a provider from already decoded params. Params of the wrong
// type, and params the provider rejects, are configuration errors.
func (r *Registry) Build(c Capability, kind string, params any) (any, error) {
	def, err := r.lookup(c, kind)
	if err != nil {
		return nil, err
	}
	v, err := def.Build(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", config.ErrConfiguration, c, kind, err)
	}
	return v, nil
}

// BuildFrom decodes pc's params and builds the provider.
func (r *Registry) BuildFrom(c Capability, pc config.ProviderConfig) (any, error) {
	params, err := r.DecodeParams(c, pc.Kind, pc.Params)
	if err != nil {
		return nil, err
	}
	return r.Build(c, pc.Kind, params)
}

func as[T any](c Capability, kind string, v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q built %T", config.ErrConfiguration, c, kind, v)
	}
	return t, nil
}

// BuildTrajectory builds the configured trajectory provider.
func (r *Registry) BuildTrajectory(pc config.ProviderConfig) (target.Trajectory, error) {
	v, err := r.BuildFrom(Trajectory, pc)
	if err != nil {
		return nil, err
	}
	return as[target.Trajectory](Trajectory, pc.Kind, v)
}

// BuildPlatform builds the configured platform provider.
func (r *Registry) BuildPlatform(pc config.ProviderConfig) (platform.Platform, error) {
	v, err := r.BuildFrom(Platform, pc)
	if err != nil {
		return nil, err
	}
	return as[platform.Platform](Platform, pc.Kind, v)
}

// BuildAntenna builds the configured antenna provider.
func (r *Registry) BuildAntenna(pc config.ProviderConfig) (antenna.Antenna, error) {
	v, err := r.BuildFrom(Antenna, pc)
	if err != nil {
		return nil, err
	}
	return as[antenna.Antenna](Antenna, pc.Kind, v)
}

// BuildClutter builds every configured clutter provider in order.
func (r *Registry) BuildClutter(pcs []config.ProviderConfig) ([]clutter.Provider, error) {
	out := make([]clutter.Provider, 0, len(pcs))
	for _, pc := range pcs {
		v, err := r.BuildFrom(Clutter, pc)
		if err != nil {
			return nil, err
		}
		p, err := as[clutter.Provider](Clutter, pc.Kind, v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// BuildHeader builds the configured header formatter.
func (r *Registry) BuildHeader(pc config.ProviderConfig) (header.Formatter, error) {
	v, err := r.BuildFrom(Header, pc)
	if err != nil {
		return nil, err
	}
	return as[header.Formatter](Header, pc.Kind, v)
}

// typed adapts a constructor taking P to the untyped Build signature.
func typed[P any, V any](build func(P) (V, error)) func(any) (any, error) {
	return func(params any) (any, error) {
		p, ok := params.(*P)
		if !ok || p == nil {
			var want *P
			return nil, fmt.Errorf("params must be %T, got %T", want, params)
		}
		return build(*p)
	}
}

func defaults[P any](f func() P) func() any {
	return func() any {
		p := f()
		return &p
	}
}

// Default returns a registry with the built-in providers.
func Default() *Registry {
	reg := New()

	reg.Register(&Definition{
		Capability:  Trajectory,
		Kind:        "ballistic",
		Description: "Point-mass projectile with quadratic drag, exponential atmosphere and spin micro-Doppler.",
		NewParams:   defaults(target.DefaultBallisticParams),
		Build:       typed(target.NewBallistic),
	})
	reg.Register(&Definition{
		Capability:  Platform,
		Kind:        "ship",
		Description: "Constant course and speed with sinusoidal pitch and roll.",
		NewParams:   defaults(platform.DefaultShipParams),
		Build:       typed(platform.NewShip),
	})
	reg.Register(&Definition{
		Capability:  Antenna,
		Kind:        "gimbal",
		Description: "Target-tracking gimbal with Gaussian or sinc beam and an element array.",
		NewParams:   defaults(antenna.DefaultGimbalParams),
		Build:       typed(antenna.NewGimbal),
	})
	reg.Register(&Definition{
		Capability:  Clutter,
		Kind:        "sea",
		Description: "Sea-surface return scaled by sea state and grazing angle.",
		NewParams:   defaults(clutter.DefaultSeaParams),
		Build:       typed(clutter.NewSea),
	})
	reg.Register(&Definition{
		Capability:  Clutter,
		Kind:        "rain",
		Description: "Volume rain return inside a cloud layer, shifted by wind and fall speed.",
		NewParams:   defaults(clutter.DefaultRainParams),
		Build:       typed(clutter.NewRain),
	})
	reg.Register(&Definition{
		Capability:  Header,
		Kind:        "doppler",
		Description: "128-byte little-endian chirp header.",
		NewParams:   defaults(header.DefaultDopplerParams),
		Build:       typed(header.NewDoppler),
	})

	return reg
}
