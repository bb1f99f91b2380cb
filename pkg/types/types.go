// Package types provides shared type definitions for the trading runtime.
package types

import "time"

// Direction enumerates a signal or position's side.
type Direction int

const (
	Short Direction = -1
	Flat  Direction = 0
	Long  Direction = 1
)

// Candle is an immutable OHLCV bar aligned to a timeframe boundary.
type Candle struct {
	Symbol    string    `json:"symbol"`
	TimeEpoch int64     `json:"timeEpoch"` // seconds, multiple of the timeframe width
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Valid reports whether the candle satisfies the OHLC ordering invariant.
func (c Candle) Valid() bool {
	return c.Low <= minF(c.Open, c.Close) && maxF(c.Open, c.Close) <= c.High
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Tick is an immutable bid/ask quote update.
type Tick struct {
	Symbol    string  `json:"symbol"`
	TimeEpoch int64   `json:"timeEpoch"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    float64 `json:"volume"`
}

// Mid returns the midpoint price of the tick.
func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Signal is produced once per closed bar after warmup.
type Signal struct {
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	Intensity   int       `json:"intensity"` // 0..3
	RegimeState int       `json:"regimeState"`
	VirtualPnL  float64   `json:"virtualPnl"`
	Wallclock   time.Time `json:"wallclock"`
}

// Valid reports the direction/intensity coupling invariant.
func (s Signal) Valid() bool {
	if s.Direction == Flat {
		return s.Intensity == 0
	}
	return s.Intensity >= 1 && s.Intensity <= 3
}

// VirtualPosition is the predictor's per-symbol twin of what the policy
// believes it holds, maintained in lockstep with training-time cost
// accounting. All arithmetic touching it stays in float64 and in the
// order the model was trained against; never route it through a
// decimal type.
type VirtualPosition struct {
	Direction        Direction
	Intensity        int
	EntryPrice       float64
	FloatingPnL      float64
	TotalRealizedPnL float64

	SpreadPoints     float64
	SlippagePoints   float64
	CommissionPerLot float64
	PointSize        float64
	PipValue         float64
	Digits           int
	LotTable         [4]float64 // indexed directly by intensity; LotTable[0] unused
}

// Flat reports whether the twin currently holds no position.
func (v VirtualPosition) Flat() bool {
	return v.Direction == 0 && v.Intensity == 0 && v.EntryPrice == 0
}

// PointsPerPip returns 10 for 3- or 5-digit pricing, 1 otherwise.
func (v VirtualPosition) PointsPerPip() float64 {
	if v.Digits == 3 || v.Digits == 5 {
		return 10
	}
	return 1
}

// RealPosition mirrors an actually-open position at the broker.
type RealPosition struct {
	Ticket       int64     `json:"ticket"`
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	VolumeLots   float64   `json:"volumeLots"`
	OpenPrice    float64   `json:"openPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	PnL          float64   `json:"pnl"`
	StopPrice    float64   `json:"stopPrice"`
	TakePrice    float64   `json:"takePrice"`
	OpenTime     time.Time `json:"openTime"`
	Comment      string    `json:"comment"`
}

// SymbolDescriptor is immutable after its first fetch from the broker.
type SymbolDescriptor struct {
	Name                string
	NumericID           int64
	Digits              int
	PointSize           float64 // 10^(-digits)
	LotConversionFactor float64
	MinVolume           float64
	MaxVolume           float64
	StepVolume          float64
}

// SymbolConfig is mutable via the control channel and persisted to the
// per-symbol config file. LotTable is indexed by intensity-1 for
// intensity in {1,2,3}; intensity 0 never indexes it.
type SymbolConfig struct {
	Enabled       bool       `json:"enabled"`
	LotTable      [3]float64 `json:"-"` // weak, moderate, strong
	LotWeak       float64    `json:"lot_weak"`
	LotModerate   float64    `json:"lot_moderate"`
	LotStrong     float64    `json:"lot_strong"`
	SLUsd         float64    `json:"sl_usd"`
	TPUsd         float64    `json:"tp_usd"`
	MaxSpreadPips float64    `json:"max_spread_pips"`
}

// SyncLotTable copies the Lot{Weak,Moderate,Strong} fields into LotTable,
// which is what LotFor and the lot mapper actually read.
func (c *SymbolConfig) SyncLotTable() {
	c.LotTable = [3]float64{c.LotWeak, c.LotModerate, c.LotStrong}
}

// LotFor returns the configured lot size for an intensity in [0,3].
func (c SymbolConfig) LotFor(intensity int) float64 {
	if intensity <= 0 || intensity > 3 {
		return 0
	}
	return c.LotTable[intensity-1]
}

// SyncState tracks the executor's edge-rule bookkeeping for one symbol.
type SyncState struct {
	LastSignalDirection Direction
	LastSignalIntensity int
	WaitingForEdge      bool
	FirstLiveSignal     bool
}

// NewSyncState returns the initial state: the first signal passes through.
func NewSyncState() SyncState {
	return SyncState{FirstLiveSignal: true}
}

// SessionStatus enumerates the process-wide session lifecycle.
type SessionStatus string

const (
	SessionRunning SessionStatus = "RUNNING"
	SessionStopped SessionStatus = "STOPPED"
)

// SessionEndReason records why a session stopped.
type SessionEndReason string

const (
	EndNormal SessionEndReason = "NORMAL"
	EndError  SessionEndReason = "ERROR"
	EndSignal SessionEndReason = "SIGNAL"
)

// Session is the process-wide record persisted for crash recovery.
type Session struct {
	ID                 string           `json:"id"`
	StartTime          time.Time        `json:"startTime"`
	InitialBalance     float64          `json:"initialBalance"`
	Status             SessionStatus    `json:"status"`
	CurrentDayBoundary time.Time        `json:"currentDayBoundary"`
	EndReason          SessionEndReason `json:"endReason,omitempty"`
}

// Envelope is the decoded form of one frame's payload.
type Envelope struct {
	PayloadType   uint32
	Payload       []byte
	CorrelationID string
}

// PendingRequest is an ephemeral correlation-id-keyed awaiter owned by
// the broker client. Done is closed exactly once, after which Response
// or Err holds the outcome.
type PendingRequest struct {
	CorrelationID string
	Deadline      time.Time
	Done          chan struct{}
	Response      Envelope
	Err           error
}
