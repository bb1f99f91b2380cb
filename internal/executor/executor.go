// Package executor turns a predictor Signal into a broker order,
// composing the decision table, the edge rule, the risk gate, the lot
// mapper, the price converter, and the comment codec exactly as
// executor.py's Executor.process_signal orchestrates them.
package executor

import (
	"sync"

	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

// OrderRequest is what the executor asks the broker adapter to place.
type OrderRequest struct {
	Symbol    string
	Direction types.Direction
	Volume    float64
	StopPrice float64
	TakePrice float64
	Comment   string
}

// OrderResult is the broker adapter's reply to an order request.
type OrderResult struct {
	OK      bool
	Ticket  int64
	Reason  string
}

// BrokerPort is the subset of the broker adapter the executor depends
// on. Accepting an interface here keeps the decision/risk logic in this
// package testable without a live connection.
type BrokerPort interface {
	SymbolInfoSource
	GetPosition(symbol string) (*types.RealPosition, bool)
	GetAccount() AccountState
	GetSpreadPips(symbol string) (float64, bool)
	LastQuote(symbol string) (types.Tick, bool)
	OpenOrder(req OrderRequest) OrderResult
	CloseOrder(ticket int64) OrderResult
}

// ACK is the outcome of processing one signal, returned to the caller
// for telemetry and paper-shadow bookkeeping.
type ACK struct {
	Symbol    string
	Decision  Decision
	Opened    bool
	Closed    bool
	Ticket    int64
	Risk      RiskCheck
	Reason    string
	Comment   string
}

// Executor is the live, stateful orchestrator for one running session.
// It is safe for concurrent use from the per-symbol pipeline goroutines
// and the control-channel handler.
type Executor struct {
	log        *zap.Logger
	mu         sync.Mutex
	broker     BrokerPort
	lotMapper  *LotMapper
	converter  *PriceConverter
	riskGate   *RiskGate
	syncStates map[string]*SyncState
	paused     bool
}

// New wires the executor's collaborators together.
func New(log *zap.Logger, broker BrokerPort, lotMapper *LotMapper, riskGate *RiskGate) *Executor {
	return &Executor{
		log:        log.Named("executor"),
		broker:     broker,
		lotMapper:  lotMapper,
		converter:  NewPriceConverter(broker),
		riskGate:   riskGate,
		syncStates: make(map[string]*SyncState),
	}
}

func (e *Executor) syncStateFor(symbol string) *SyncState {
	s, ok := e.syncStates[symbol]
	if !ok {
		s = NewSyncState()
		e.syncStates[symbol] = s
	}
	return s
}

// ProcessSignal runs the full pipeline for one closed-bar signal: decide
// against the live position, apply the edge rule, close and/or open as
// directed, gating any open through the risk gate first.
func (e *Executor) ProcessSignal(signal types.Signal) ACK {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ACK{Symbol: signal.Symbol, Reason: "paused"}
	}

	realPos, hasPos := e.broker.GetPosition(signal.Symbol)
	decision := Decide(signal, realPos)
	ss := e.syncStateFor(signal.Symbol)
	openEdge := ss.ShouldOpen(signal, decision)

	ack := ACK{Symbol: signal.Symbol, Decision: decision}

	if decision == DecisionClose || decision == DecisionCloseAndOpen {
		if hasPos {
			res := e.broker.CloseOrder(realPos.Ticket)
			if res.OK {
				ack.Closed = true
				e.riskGate.RecordTradeResult(realPos.PnL)
			} else {
				ack.Reason = res.Reason
			}
		}
	}

	wantsOpen := (decision == DecisionOpen || decision == DecisionCloseAndOpen) && openEdge
	if !wantsOpen {
		return ack
	}

	acct := e.broker.GetAccount()
	cfg, ok := e.lotMapper.Config(signal.Symbol)
	if !ok {
		ack.Reason = "symbol not configured"
		return ack
	}

	volume, ok := e.lotMapper.MapLot(signal.Symbol, signal.Intensity)
	if !ok {
		ack.Reason = "no lot configured for intensity"
		return ack
	}

	spreadPips, known := e.broker.GetSpreadPips(signal.Symbol)
	if !known {
		spreadPips = -1
	}
	check := e.riskGate.CheckAll(acct, volume, spreadPips, cfg.MaxSpreadPips)
	ack.Risk = check.Check
	if !check.Passed {
		ack.Reason = check.Detail
		return ack
	}

	currentPrice, ok := e.currentPrice(signal.Symbol)
	if !ok {
		ack.Reason = "no live quote for symbol"
		return ack
	}

	var stopPrice, takePrice float64
	if cfg.SLUsd > 0 {
		stopPrice = e.converter.UsdToSLPrice(signal.Symbol, signal.Direction, currentPrice, volume, cfg.SLUsd)
	}
	if cfg.TPUsd > 0 {
		takePrice = e.converter.UsdToTPPrice(signal.Symbol, signal.Direction, currentPrice, volume, cfg.TPUsd)
	}

	comment := BuildComment(signal.RegimeState, actionIndexFor(signal), signal.Intensity, acct.Balance, drawdownPct(acct), signal.VirtualPnL)

	res := e.broker.OpenOrder(OrderRequest{
		Symbol:    signal.Symbol,
		Direction: signal.Direction,
		Volume:    volume,
		StopPrice: stopPrice,
		TakePrice: takePrice,
		Comment:   comment,
	})
	ack.Comment = comment
	if res.OK {
		ack.Opened = true
		ack.Ticket = res.Ticket
	} else {
		ack.Reason = res.Reason
	}
	return ack
}

// currentPrice reads the broker adapter's last cached tick for the
// symbol, using the mid price as the order's reference price.
func (e *Executor) currentPrice(symbol string) (float64, bool) {
	tick, ok := e.broker.LastQuote(symbol)
	if !ok {
		return 0, false
	}
	return tick.Mid(), true
}

// actionIndexFor recovers the policy action index from a signal's
// (direction, intensity) pair, the inverse of ctypes.ActionProperties,
// since Signal itself only carries the decoded pair.
func actionIndexFor(signal types.Signal) int {
	return encodeAction(signal.Direction, signal.Intensity)
}

func encodeAction(dir types.Direction, intensity int) int {
	if dir == types.Flat || intensity == 0 {
		return 0
	}
	if dir == types.Long {
		return intensity // 1,2,3
	}
	return intensity + 3 // 4,5,6
}

func drawdownPct(acct AccountState) float64 {
	if acct.InitialBalance <= 0 {
		return 0
	}
	return (acct.InitialBalance - acct.Equity) / acct.InitialBalance * 100
}

// Pause stops the executor from opening or closing anything until Resume.
func (e *Executor) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.log.Info("executor paused")
}

// Resume re-enables signal processing.
func (e *Executor) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.log.Info("executor resumed")
}

// Paused reports the current pause state.
func (e *Executor) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// CloseAll closes the open position of each listed symbol that the
// broker adapter reports one for, regardless of the last decision, for
// emergency shutdown or operator command. Symbols not in the list are
// left alone.
func (e *Executor) CloseAll(symbols []string) []ACK {
	e.mu.Lock()
	defer e.mu.Unlock()
	acks := make([]ACK, 0, len(symbols))
	for _, symbol := range symbols {
		pos, ok := e.broker.GetPosition(symbol)
		if !ok {
			continue
		}
		res := e.broker.CloseOrder(pos.Ticket)
		ack := ACK{Symbol: symbol, Decision: DecisionClose}
		if res.OK {
			ack.Closed = true
			e.riskGate.RecordTradeResult(pos.PnL)
		} else {
			ack.Reason = res.Reason
		}
		acks = append(acks, ack)
	}
	return acks
}

// GetState returns a snapshot suitable for telemetry: the per-symbol
// sync state, keyed by symbol. Risk-gate state is not included.
func (e *Executor) GetState() map[string]types.SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]types.SyncState, len(e.syncStates))
	for symbol, s := range e.syncStates {
		out[symbol] = s.Snapshot()
	}
	return out
}
