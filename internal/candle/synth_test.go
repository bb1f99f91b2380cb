package candle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstTickInitializesNoBar(t *testing.T) {
	s := New(60)
	s.Register("EURUSD")
	_, closed := s.OnTick("EURUSD", 100, 1.1000, 1.1002, 0)
	require.False(t, closed)
}

func TestSamePeriodAccumulates(t *testing.T) {
	s := New(60)
	s.Register("EURUSD")
	s.OnTick("EURUSD", 100, 1.1000, 1.1002, 1) // bar_start=60
	_, closed := s.OnTick("EURUSD", 110, 1.1010, 1.1012, 1)
	require.False(t, closed)

	bar, ok := s.PendingBar("EURUSD")
	require.True(t, ok)
	require.Equal(t, int64(60), bar.TimeEpoch)
	require.InDelta(t, 1.1001, bar.Open, 1e-9)
	require.InDelta(t, 1.1011, bar.High, 1e-9)
	require.InDelta(t, 1.1001, bar.Low, 1e-9)
	require.InDelta(t, 1.1011, bar.Close, 1e-9)
	require.Equal(t, 2.0, bar.Volume)
}

func TestBarChangeFinalizesAndOpensNext(t *testing.T) {
	s := New(60)
	s.Register("EURUSD")
	s.OnTick("EURUSD", 10, 1.1000, 1.1002, 0)  // bar_start=0
	s.OnTick("EURUSD", 50, 1.1010, 1.1012, 0)  // still bar 0
	bar, closed := s.OnTick("EURUSD", 65, 1.1020, 1.1022, 0) // bar_start=60, new period

	require.True(t, closed)
	require.Equal(t, int64(0), bar.TimeEpoch)
	require.True(t, bar.Valid())
	require.InDelta(t, 1.1001, bar.Open, 1e-9)
	require.InDelta(t, 1.1011, bar.Close, 1e-9)

	pending, ok := s.PendingBar("EURUSD")
	require.True(t, ok)
	require.Equal(t, int64(60), pending.TimeEpoch)
}

func TestSilentSymbolNeverClosesBar(t *testing.T) {
	s := New(60)
	s.Register("EURUSD")
	s.OnTick("EURUSD", 10, 1.1000, 1.1002, 0)
	// No further ticks arrive; PendingBar still reflects bar 0, never finalized.
	bar, ok := s.PendingBar("EURUSD")
	require.True(t, ok)
	require.Equal(t, int64(0), bar.TimeEpoch)
}
