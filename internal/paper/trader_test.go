package paper

import (
	"testing"

	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTraderProcessSignalOpensAndReversesMirrorTwin(t *testing.T) {
	tr := NewTrader(zap.NewNop(), 10000)
	tr.LoadConfig("EURUSD", trainingCost())

	_, closed := tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Long, Intensity: 1}, 1.10000, 0)
	require.False(t, closed)

	trade, closed := tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Short, Intensity: 1}, 1.10200, 10)
	require.True(t, closed)
	require.Equal(t, 1, trade.Direction)
}

func TestTraderIntensityChangeSameDirectionClosesAndReopens(t *testing.T) {
	tr := NewTrader(zap.NewNop(), 10000)
	tr.LoadConfig("EURUSD", trainingCost())

	tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Long, Intensity: 1}, 1.10000, 0)
	trade, closed := tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Long, Intensity: 3}, 1.10100, 5)
	require.True(t, closed)
	require.Equal(t, 1, trade.Intensity)

	account := tr.accounts["EURUSD"]
	pos, ok := account.Position("EURUSD")
	require.True(t, ok)
	require.Equal(t, 3, pos.Intensity)
}

func TestTraderIgnoresUnconfiguredSymbol(t *testing.T) {
	tr := NewTrader(zap.NewNop(), 10000)
	_, closed := tr.ProcessSignal(types.Signal{Symbol: "GBPUSD", Direction: types.Long, Intensity: 1}, 1.3, 0)
	require.False(t, closed)
}

func TestGetMetricsAggregatesAcrossSymbols(t *testing.T) {
	tr := NewTrader(zap.NewNop(), 10000)
	tr.LoadConfig("EURUSD", trainingCost())
	tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Long, Intensity: 1}, 1.1, 0)
	tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Flat, Intensity: 0}, 1.102, 10)

	metrics := tr.GetMetrics()
	require.Equal(t, 1, metrics.TotalTrades)
}

func TestCompareWithRealComputesDrift(t *testing.T) {
	tr := NewTrader(zap.NewNop(), 10000)
	tr.LoadConfig("EURUSD", trainingCost())
	tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Long, Intensity: 1}, 1.1, 0)
	tr.ProcessSignal(types.Signal{Symbol: "EURUSD", Direction: types.Flat, Intensity: 0}, 1.102, 10)

	report := tr.CompareWithReal([]float64{5.0})
	require.Equal(t, 1, report.PaperTrades)
	require.Equal(t, 1, report.RealTrades)
}
