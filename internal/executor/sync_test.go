package executor

import (
	"testing"

	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/stretchr/testify/require"
)

func sig(dir types.Direction, intensity int) types.Signal {
	return types.Signal{Symbol: "EURUSD", Direction: dir, Intensity: intensity}
}

func TestDecideEnumeratesNineCells(t *testing.T) {
	cases := []struct {
		name     string
		signal   types.Direction
		real     types.Direction
		expected Decision
	}{
		{"flat-flat", types.Flat, types.Flat, DecisionNoop},
		{"flat-long", types.Flat, types.Long, DecisionClose},
		{"flat-short", types.Flat, types.Short, DecisionClose},
		{"long-flat", types.Long, types.Flat, DecisionOpen},
		{"long-long", types.Long, types.Long, DecisionNoop},
		{"long-short", types.Long, types.Short, DecisionCloseAndOpen},
		{"short-flat", types.Short, types.Flat, DecisionOpen},
		{"short-long", types.Short, types.Long, DecisionCloseAndOpen},
		{"short-short", types.Short, types.Short, DecisionNoop},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var realPos *types.RealPosition
			if c.real != types.Flat {
				realPos = &types.RealPosition{Direction: c.real}
			}
			got := Decide(sig(c.signal, 1), realPos)
			require.Equal(t, c.expected, got)
		})
	}
}

func TestFirstLiveSignalAlwaysOpens(t *testing.T) {
	s := NewSyncState()
	require.True(t, s.ShouldOpen(sig(types.Long, 1), DecisionOpen))
}

func TestRepeatedIdenticalSignalOpensOnce(t *testing.T) {
	s := NewSyncState()
	require.True(t, s.ShouldOpen(sig(types.Long, 1), DecisionOpen))
	require.False(t, s.ShouldOpen(sig(types.Long, 1), DecisionNoop))
}

func TestWaitThenRepeatReopens(t *testing.T) {
	s := NewSyncState()
	require.True(t, s.ShouldOpen(sig(types.Long, 1), DecisionOpen))
	require.False(t, s.ShouldOpen(sig(types.Flat, 0), DecisionClose))
	require.True(t, s.ShouldOpen(sig(types.Long, 1), DecisionOpen))
}

func TestReversalAlwaysReopens(t *testing.T) {
	s := NewSyncState()
	require.True(t, s.ShouldOpen(sig(types.Long, 1), DecisionOpen))
	require.True(t, s.ShouldOpen(sig(types.Short, 2), DecisionCloseAndOpen))
}

func TestIdenticalReversalSignalTwiceStillOpensBoth(t *testing.T) {
	// A CLOSE_AND_OPEN is itself always a direction transition (the
	// decision table only emits it when signal and real position
	// directions differ), so the edge rule never suppresses it.
	s := NewSyncState()
	require.True(t, s.ShouldOpen(sig(types.Long, 1), DecisionOpen))
	require.True(t, s.ShouldOpen(sig(types.Short, 1), DecisionCloseAndOpen))
	require.True(t, s.ShouldOpen(sig(types.Long, 1), DecisionCloseAndOpen))
}
