// Advanced performance metrics over a closed-trade series, grounded on
// paper/stats.py.
package paper

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundDisplay rounds a computed metric to places decimal digits for
// telemetry/UI display, going through decimal.Decimal so the rounding
// itself is exact rather than subject to binary float representation
// error. Never call this on anything feeding back into the twin's or
// the paper account's own running arithmetic - only on values about to
// leave the process as a display number.
func RoundDisplay(value float64, places int32) float64 {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return value
	}
	rounded, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return rounded
}

// Sharpe computes the annualized Sharpe ratio over a trade series'
// per-trade PnL, treating each trade as one "return" sample scaled by
// barsPerYear (the timeframe's annualization factor). Requires at
// least 2 trades; returns 0 if the PnL series has zero variance.
func Sharpe(trades []Trade, barsPerYear int) float64 {
	if len(trades) < 2 {
		return 0
	}
	mean, std := meanStd(pnls(trades))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(float64(barsPerYear))
}

// MaxDrawdown computes the maximum peak-to-trough equity drawdown, in
// percent, replaying the trade series against a running equity curve
// seeded at initialBalance.
func MaxDrawdown(trades []Trade, initialBalance float64) float64 {
	if len(trades) == 0 {
		return 0
	}
	equity := initialBalance
	peak := initialBalance
	maxDD := 0.0
	for _, t := range trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - equity) / peak
		}
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}

// ProfitFactor is gross wins divided by gross losses. Returns +Inf if
// there were wins and no losses, 0 if there were neither.
func ProfitFactor(trades []Trade) float64 {
	wins, losses := 0.0, 0.0
	for _, t := range trades {
		if t.PnL > 0 {
			wins += t.PnL
		} else if t.PnL < 0 {
			losses += -t.PnL
		}
	}
	if losses == 0 {
		if wins > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return wins / losses
}

// Expectancy is the average PnL per trade.
func Expectancy(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range trades {
		total += t.PnL
	}
	return total / float64(len(trades))
}

// WinRate is the fraction of trades with positive PnL, in percent.
func WinRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

func pnls(trades []Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.PnL
	}
	return out
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	std = math.Sqrt(variance)
	return mean, std
}
