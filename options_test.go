package toolbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestApplyOptions_Defaults(t *testing.T) {
	o := applyOptions(nil, nil)

	require.Equal(t, DefaultRequestTimeout, o.RequestTimeout)
	require.Equal(t, DefaultInitializeTimeout, o.InitializeTimeout)
	require.Equal(t, DefaultSettleDelay, o.SettleDelay)
	require.Equal(t, DefaultProtocolVersion, o.ProtocolVersion)
	require.Nil(t, o.Logger)
	require.False(t, o.ValidateArguments)
}

func TestApplyOptions_Overrides(t *testing.T) {
	tp := noop.NewTracerProvider()

	o := applyOptions(nil, []Option{
		WithLogger(NopLogger()),
		WithRequestTimeout(time.Minute),
		WithInitializeTimeout(time.Second),
		WithSettleDelay(0),
		WithEnv(map[string]string{"A": "1"}),
		WithEnv(map[string]string{"B": "2"}),
		WithCwd("/srv"),
		WithProtocolVersion("2025-03-26"),
		WithClientInfo("bridge", "2.0.0"),
		WithRateLimit(5, 2),
		WithTracerProvider(tp),
		WithArgumentValidation(true),
	})

	require.NotNil(t, o.Logger)
	require.Equal(t, time.Minute, o.RequestTimeout)
	require.Equal(t, time.Second, o.InitializeTimeout)
	require.Zero(t, o.SettleDelay)
	require.Equal(t, map[string]string{"A": "1", "B": "2"}, o.Env)
	require.Equal(t, "/srv", o.Cwd)
	require.Equal(t, "2025-03-26", o.ProtocolVersion)
	require.Equal(t, "bridge", o.ClientInfoName("ignored"))
	require.Equal(t, "2.0.0", o.ClientVersion)
	require.InDelta(t, 5, o.RateLimit, 0)
	require.Equal(t, 2, o.RateBurst)
	require.Equal(t, tp, o.TracerProvider)
	require.True(t, o.ValidateArguments)
}

func TestApplyOptions_NonPositiveTimeoutsUseDefaults(t *testing.T) {
	o := applyOptions(nil, []Option{
		WithRequestTimeout(0),
		WithInitializeTimeout(-time.Second),
	})

	require.Equal(t, DefaultRequestTimeout, o.RequestTimeout)
	require.Equal(t, DefaultInitializeTimeout, o.InitializeTimeout)
}

func TestApplyOptions_DoesNotMutateBase(t *testing.T) {
	base := applyOptions(nil, []Option{WithEnv(map[string]string{"A": "1"})})

	derived := applyOptions(base, []Option{WithEnv(map[string]string{"A": "2"}), WithCwd("/tmp")})

	require.Equal(t, "1", base.Env["A"])
	require.Empty(t, base.Cwd)
	require.Equal(t, "2", derived.Env["A"])
}
