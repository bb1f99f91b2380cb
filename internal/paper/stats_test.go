package paper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSharpeRequiresAtLeastTwoTrades(t *testing.T) {
	require.Equal(t, 0.0, Sharpe([]Trade{{PnL: 10}}, 252))
}

func TestSharpeZeroVarianceReturnsZero(t *testing.T) {
	trades := []Trade{{PnL: 10}, {PnL: 10}, {PnL: 10}}
	require.Equal(t, 0.0, Sharpe(trades, 252))
}

func TestSharpePositiveForConsistentWinner(t *testing.T) {
	trades := []Trade{{PnL: 10}, {PnL: 5}, {PnL: 15}, {PnL: 8}}
	require.Greater(t, Sharpe(trades, 252), 0.0)
}

func TestMaxDrawdownTracksPeakToTrough(t *testing.T) {
	trades := []Trade{{PnL: 100}, {PnL: -200}, {PnL: 50}}
	dd := MaxDrawdown(trades, 1000)
	require.InDelta(t, (1100.0-900.0)/1100.0*100, dd, 1e-6)
}

func TestMaxDrawdownEmptyIsZero(t *testing.T) {
	require.Equal(t, 0.0, MaxDrawdown(nil, 1000))
}

func TestProfitFactorNoLossesIsInf(t *testing.T) {
	trades := []Trade{{PnL: 10}, {PnL: 5}}
	require.True(t, math.IsInf(ProfitFactor(trades), 1))
}

func TestProfitFactorComputesRatio(t *testing.T) {
	trades := []Trade{{PnL: 20}, {PnL: -10}}
	require.InDelta(t, 2.0, ProfitFactor(trades), 1e-9)
}

func TestExpectancyAveragesPnL(t *testing.T) {
	trades := []Trade{{PnL: 10}, {PnL: -4}, {PnL: 6}}
	require.InDelta(t, 4.0, Expectancy(trades), 1e-9)
}

func TestWinRatePercentage(t *testing.T) {
	trades := []Trade{{PnL: 10}, {PnL: -4}, {PnL: 6}, {PnL: -1}}
	require.InDelta(t, 50.0, WinRate(trades), 1e-9)
}

func TestRoundDisplayRoundsToPlaces(t *testing.T) {
	require.Equal(t, 1234.57, RoundDisplay(1234.5749, 2))
	require.Equal(t, 1.4142, RoundDisplay(1.414213562, 4))
}

func TestRoundDisplayPassesThroughNonFiniteValues(t *testing.T) {
	inf := math.Inf(1)
	require.True(t, math.IsInf(RoundDisplay(inf, 2), 1))
}
