package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/platform"
	"github.com/banshee-data/iqsim/internal/target"
)

func TestDefaultList(t *testing.T) {
	var got []string
	for _, info := range Default().List() {
		got = append(got, string(info.Capability)+"/"+info.Kind)
		assert.NotEmpty(t, info.Description)
	}
	assert.Equal(t, []string{
		"antenna/gimbal",
		"clutter/rain",
		"clutter/sea",
		"header/doppler",
		"platform/ship",
		"trajectory/ballistic",
	}, got)
}

func TestDecodeParamsOverlaysDefaults(t *testing.T) {
	reg := Default()
	v, err := reg.DecodeParams(Trajectory, "ballistic", json.RawMessage(`{"launch_speed_mps": 300}`))
	require.NoError(t, err)

	p, ok := v.(*target.BallisticParams)
	require.True(t, ok, "got %T", v)
	want := target.DefaultBallisticParams()
	want.LaunchSpeed = 300
	assert.Equal(t, want, *p)

	v, err = reg.DecodeParams(Platform, "ship", nil)
	require.NoError(t, err)
	assert.Equal(t, platform.DefaultShipParams(), *v.(*platform.ShipParams))

	_, err = reg.DecodeParams(Platform, "ship", json.RawMessage(`null`))
	assert.NoError(t, err)
}

func TestErrorsAreConfigurationErrors(t *testing.T) {
	reg := Default()
	tests := []struct {
		name string
		run  func() error
	}{
		{"unknown kind", func() error {
			_, err := reg.BuildTrajectory(config.ProviderConfig{Kind: "cruise"})
			return err
		}},
		{"kind under wrong capability", func() error {
			_, err := reg.BuildPlatform(config.ProviderConfig{Kind: "ballistic"})
			return err
		}},
		{"unknown param", func() error {
			_, err := reg.BuildAntenna(config.ProviderConfig{Kind: "gimbal", Params: json.RawMessage(`{"beam": 3}`)})
			return err
		}},
		{"wrong params type", func() error {
			_, err := reg.Build(Clutter, "sea", &platform.ShipParams{})
			return err
		}},
		{"params by value", func() error {
			_, err := reg.Build(Clutter, "sea", struct{}{})
			return err
		}},
		{"invalid params", func() error {
			_, err := reg.BuildClutter([]config.ProviderConfig{{Kind: "sea", Params: json.RawMessage(`{"sea_state": 42}`)}})
			return err
		}},
		{"bad stx", func() error {
			_, err := reg.BuildHeader(config.ProviderConfig{Kind: "doppler", Params: json.RawMessage(`{"stx_hex": "xyz"}`)})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrConfiguration), "got %v", err)
		})
	}
}

func TestBuildDefaults(t *testing.T) {
	reg := Default()
	cfg := config.EmptyRunConfig()

	tr, err := reg.BuildTrajectory(cfg.GetTrajectory())
	require.NoError(t, err)
	assert.True(t, tr.Active())

	_, err = reg.BuildPlatform(cfg.GetPlatform())
	require.NoError(t, err)

	an, err := reg.BuildAntenna(cfg.GetAntenna())
	require.NoError(t, err)
	assert.Equal(t, 8, an.Geometry().NumChannels())

	hdr, err := reg.BuildHeader(cfg.GetHeader())
	require.NoError(t, err)
	assert.NotNil(t, hdr)

	cl, err := reg.BuildClutter([]config.ProviderConfig{{Kind: "rain"}, {Kind: "sea"}})
	require.NoError(t, err)
	require.Len(t, cl, 2)
	assert.Equal(t, "rain", cl[0].Name())
	assert.Equal(t, "sea", cl[1].Name())
}

func TestRegisterReplaces(t *testing.T) {
	reg := New()
	reg.Register(&Definition{Capability: Clutter, Kind: "x", Description: "first"})
	reg.Register(&Definition{Capability: Clutter, Kind: "x", Description: "second"})
	def, ok := reg.Get(Clutter, "x")
	require.True(t, ok)
	assert.Equal(t, "second", def.Description)
	assert.Len(t, reg.List(), 1)

	_, ok = reg.Get(Header, "x")
	assert.False(t, ok)
}
