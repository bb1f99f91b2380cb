package persistence

import (
	"encoding/json"
	"testing"

	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadPendingEmptyWhenFileMissing(t *testing.T) {
	s := NewLocalStorage(zap.NewNop(), t.TempDir())
	require.Empty(t, s.LoadPending())
}

func TestSavePendingAppendsAndRoundTrips(t *testing.T) {
	s := NewLocalStorage(zap.NewNop(), t.TempDir())

	require.NoError(t, s.SavePending(json.RawMessage(`{"a":1}`)))
	require.NoError(t, s.SavePending(json.RawMessage(`{"b":2}`)))

	pending := s.LoadPending()
	require.Len(t, pending, 2)
}

func TestPendingCountReflectsQueueDepth(t *testing.T) {
	s := NewLocalStorage(zap.NewNop(), t.TempDir())
	require.Equal(t, 0, s.PendingCount())

	require.NoError(t, s.SavePending(json.RawMessage(`{"a":1}`)))
	require.NoError(t, s.SavePending(json.RawMessage(`{"b":2}`)))

	require.Equal(t, 2, s.PendingCount())
}

func TestClearPendingRemovesQueue(t *testing.T) {
	s := NewLocalStorage(zap.NewNop(), t.TempDir())
	require.NoError(t, s.SavePending(json.RawMessage(`{"a":1}`)))

	s.ClearPending()

	require.Empty(t, s.LoadPending())
}

func TestCacheBarsRoundTripsPerSymbol(t *testing.T) {
	s := NewLocalStorage(zap.NewNop(), t.TempDir())
	bars := []types.Candle{
		{Symbol: "EURUSD", TimeEpoch: 60, Open: 1.1, High: 1.11, Low: 1.09, Close: 1.105, Volume: 100},
	}

	require.NoError(t, s.CacheBars("EURUSD", bars))

	loaded := s.LoadCachedBars("EURUSD")
	require.Equal(t, bars, loaded)
}

func TestLoadCachedBarsEmptyForUnknownSymbol(t *testing.T) {
	s := NewLocalStorage(zap.NewNop(), t.TempDir())
	require.Empty(t, s.LoadCachedBars("GBPUSD"))
}
