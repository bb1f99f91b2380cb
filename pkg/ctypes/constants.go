// Package ctypes holds the fixed tables and constants the runtime shares
// with the training environment: timeframe metadata, the action table,
// broker period codes, and fallback pip values. None of this changes
// without invalidating a trained model, so it lives in one frozen place.
package ctypes

import "github.com/oracle-trader/runtime/pkg/types"

// Version is the runtime's own build identity, embedded in order comments.
const Version = "2.0.0"

// Timeframe is a minute-granularity bar period.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// TimeframeSeconds maps a timeframe label to its bar width in seconds.
var TimeframeSeconds = map[Timeframe]int64{
	M1:  60,
	M5:  300,
	M15: 900,
	M30: 1800,
	H1:  3600,
	H4:  14400,
	D1:  86400,
}

// TimeframeBarsPerYear approximates annualized bar counts assuming ~252
// trading days of ~20 active hours each, used to annualize Sharpe.
var TimeframeBarsPerYear = map[Timeframe]int{
	M1:  252 * 20 * 60,
	M5:  252 * 20 * 12,
	M15: 252 * 20 * 4,
	M30: 252 * 20 * 2,
	H1:  252 * 20,
	H4:  252 * 5,
	D1:  252,
}

// TimeframeToPeriod maps a timeframe to the broker's trend-bar period
// code. Not a sequential enumeration — preserved exactly as published.
var TimeframeToPeriod = map[Timeframe]int{
	M1:  1,
	M5:  5,
	M15: 7,
	M30: 8,
	H1:  9,
	H4:  10,
	D1:  12,
}

// TrainingLotSizes is the 4-slot lot table used during training, indexed
// directly by action intensity. Never change this — it is part of the
// trained model's implicit contract.
var TrainingLotSizes = [4]float64{0, 0.01, 0.03, 0.05}

// MinBarsForPrediction is the ring buffer capacity required before the
// predictor starts emitting signals.
const MinBarsForPrediction = 350

// WarmupBars is how much history the orchestrator feeds silently to a
// freshly loaded model before trading begins.
const WarmupBars = 1000

// Action is one of the 7 policy outputs.
type Action string

const (
	ActionWait          Action = "WAIT"
	ActionLongWeak      Action = "LONG_WEAK"
	ActionLongModerate  Action = "LONG_MODERATE"
	ActionLongStrong    Action = "LONG_STRONG"
	ActionShortWeak     Action = "SHORT_WEAK"
	ActionShortModerate Action = "SHORT_MODERATE"
	ActionShortStrong   Action = "SHORT_STRONG"
)

// ActionsByIndex maps a policy action index (0..6) to its Action.
var ActionsByIndex = [7]Action{
	ActionWait,
	ActionLongWeak, ActionLongModerate, ActionLongStrong,
	ActionShortWeak, ActionShortModerate, ActionShortStrong,
}

// ActionFromIndex converts a raw policy output into an Action, defaulting
// to WAIT for any index outside [0,7).
func ActionFromIndex(idx int) Action {
	if idx < 0 || idx >= len(ActionsByIndex) {
		return ActionWait
	}
	return ActionsByIndex[idx]
}

// ActionProperties decodes a policy action index into (direction, intensity).
func ActionProperties(idx int) (types.Direction, int) {
	switch ActionFromIndex(idx) {
	case ActionLongWeak:
		return types.Long, 1
	case ActionLongModerate:
		return types.Long, 2
	case ActionLongStrong:
		return types.Long, 3
	case ActionShortWeak:
		return types.Short, 1
	case ActionShortModerate:
		return types.Short, 2
	case ActionShortStrong:
		return types.Short, 3
	default:
		return types.Flat, 0
	}
}

// DefaultPipValues is the static pip-value-per-lot table, keyed by
// symbol. The caller consults it first and falls back to an estimate
// from the pair's quote/base currency only for symbols not listed here.
var DefaultPipValues = map[string]float64{
	"EURUSD": 10.0,
	"GBPUSD": 10.0,
	"AUDUSD": 10.0,
	"NZDUSD": 10.0,
	"USDJPY": 9.3,
	"USDCHF": 10.8,
	"USDCAD": 7.4,
}

// DefaultPointSizes is the fallback point-size table keyed by symbol,
// used when a symbol descriptor hasn't been fetched yet.
var DefaultPointSizes = map[string]float64{
	"EURUSD": 0.00001,
	"GBPUSD": 0.00001,
	"AUDUSD": 0.00001,
	"NZDUSD": 0.00001,
	"USDJPY": 0.001,
	"USDCHF": 0.00001,
	"USDCAD": 0.00001,
}

// ModelFormatVersion is the only model bundle metadata version this
// runtime accepts.
const ModelFormatVersion = "2.0"
