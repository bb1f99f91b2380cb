// Pre-trade risk gate, grounded on risk_guard.py's RiskGuard. Checks run
// in a fixed order and the gate stops at the first failure: drawdown
// (emergency nested inside the regular limit check), margin, spread
// (fails open when the spread is unknown), then the consecutive-loss
// circuit breaker.
package executor

// RiskCheck names which gate rejected a trade, or RiskOK if none did.
type RiskCheck string

const (
	RiskOK             RiskCheck = "OK"
	RiskDrawdownLimit  RiskCheck = "DRAWDOWN_LIMIT"
	RiskEmergencyStop  RiskCheck = "EMERGENCY_STOP"
	RiskMarginTooLow   RiskCheck = "MARGIN_TOO_LOW"
	RiskSpreadTooWide  RiskCheck = "SPREAD_TOO_WIDE"
	RiskCircuitBreaker RiskCheck = "CIRCUIT_BREAKER"
)

// RiskCheckResult is the gate's verdict for one candidate trade.
type RiskCheckResult struct {
	Check  RiskCheck
	Passed bool
	Detail string
}

// RiskGateConfig holds the thresholds the gate enforces. Loaded from the
// per-symbol config file's reserved "_risk" key.
type RiskGateConfig struct {
	DrawdownLimitPct   float64 // e.g. 5.0
	EmergencyStopPct   float64 // e.g. 10.0, checked before the soft limit
	MaxConsecutiveLoss int     // e.g. 3
}

// RiskGate evaluates every pre-trade condition against live account and
// symbol state. The thresholds in cfg are fixed at construction; no
// method changes them afterwards.
type RiskGate struct {
	cfg                RiskGateConfig
	consecutiveLosses  int
	circuitBreakerTrip bool
}

// NewRiskGate returns a gate with zeroed trade-history state.
func NewRiskGate(cfg RiskGateConfig) *RiskGate {
	return &RiskGate{cfg: cfg}
}

// AccountState is the subset of broker account state the gate reads.
type AccountState struct {
	Balance        float64
	Equity         float64
	FreeMargin     float64
	InitialBalance float64
}

// CheckAll runs every ordered check and returns the first failure, or
// RiskOK if the trade is cleared. volume is the candidate trade's lot
// size, needed to estimate required margin. spreadPips<0 means "unknown"
// and is treated as fail-open (the check is skipped rather than
// rejecting).
func (g *RiskGate) CheckAll(acct AccountState, volume, spreadPips, maxSpreadPips float64) RiskCheckResult {
	if r, ok := g.checkDrawdown(acct); !ok {
		return r
	}
	if r, ok := g.checkMargin(acct, volume); !ok {
		return r
	}
	if r, ok := g.checkSpread(spreadPips, maxSpreadPips); !ok {
		return r
	}
	if r, ok := g.checkCircuitBreaker(); !ok {
		return r
	}
	return RiskCheckResult{Check: RiskOK, Passed: true}
}

func (g *RiskGate) checkDrawdown(acct AccountState) (RiskCheckResult, bool) {
	if acct.InitialBalance <= 0 {
		return RiskCheckResult{Check: RiskOK, Passed: true}, true
	}
	drawdownPct := (acct.InitialBalance - acct.Equity) / acct.InitialBalance * 100
	if g.cfg.EmergencyStopPct > 0 && drawdownPct >= g.cfg.EmergencyStopPct {
		return RiskCheckResult{Check: RiskEmergencyStop, Passed: false, Detail: "equity drawdown breached emergency threshold"}, false
	}
	if g.cfg.DrawdownLimitPct > 0 && drawdownPct >= g.cfg.DrawdownLimitPct {
		return RiskCheckResult{Check: RiskDrawdownLimit, Passed: false, Detail: "equity drawdown breached limit"}, false
	}
	return RiskCheckResult{Check: RiskOK, Passed: true}, true
}

// checkMargin estimates required margin conservatively as volume*1000
// and rejects if free margin can't cover it, mirroring
// risk_guard.py's _check_margin.
func (g *RiskGate) checkMargin(acct AccountState, volume float64) (RiskCheckResult, bool) {
	estimatedMargin := volume * 1000
	if acct.FreeMargin < estimatedMargin {
		return RiskCheckResult{Check: RiskMarginTooLow, Passed: false, Detail: "free margin below estimated required margin"}, false
	}
	return RiskCheckResult{Check: RiskOK, Passed: true}, true
}

func (g *RiskGate) checkSpread(spreadPips, maxSpreadPips float64) (RiskCheckResult, bool) {
	if spreadPips < 0 || maxSpreadPips <= 0 {
		return RiskCheckResult{Check: RiskOK, Passed: true}, true
	}
	if spreadPips > maxSpreadPips {
		return RiskCheckResult{Check: RiskSpreadTooWide, Passed: false, Detail: "current spread exceeds symbol ceiling"}, false
	}
	return RiskCheckResult{Check: RiskOK, Passed: true}, true
}

func (g *RiskGate) checkCircuitBreaker() (RiskCheckResult, bool) {
	if g.circuitBreakerTrip {
		return RiskCheckResult{Check: RiskCircuitBreaker, Passed: false, Detail: "tripped by consecutive losses"}, false
	}
	return RiskCheckResult{Check: RiskOK, Passed: true}, true
}

// RecordTradeResult updates the consecutive-loss counter and trips the
// breaker once the configured threshold is reached. A winning or
// break-even trade resets the counter.
func (g *RiskGate) RecordTradeResult(realizedPnL float64) {
	if realizedPnL < 0 {
		g.consecutiveLosses++
		if g.cfg.MaxConsecutiveLoss > 0 && g.consecutiveLosses >= g.cfg.MaxConsecutiveLoss {
			g.circuitBreakerTrip = true
		}
		return
	}
	g.consecutiveLosses = 0
}

// ResetCircuitBreaker clears a tripped breaker, for operator control
// commands.
func (g *RiskGate) ResetCircuitBreaker() {
	g.circuitBreakerTrip = false
	g.consecutiveLosses = 0
}

// ConsecutiveLosses exposes the running counter for telemetry.
func (g *RiskGate) ConsecutiveLosses() int { return g.consecutiveLosses }
