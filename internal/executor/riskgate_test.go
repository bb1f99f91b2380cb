package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseRiskConfig() RiskGateConfig {
	return RiskGateConfig{
		DrawdownLimitPct:   5,
		EmergencyStopPct:   10,
		MaxConsecutiveLoss: 3,
	}
}

func TestDrawdownLimitTriggersAtFivePercent(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	acct := AccountState{InitialBalance: 10000, Equity: 9400, Balance: 9400, FreeMargin: 5000}
	res := g.CheckAll(acct, 0.01, -1, 0)
	require.Equal(t, RiskDrawdownLimit, res.Check)
	require.False(t, res.Passed)
}

func TestEmergencyStopTakesPrecedenceOverLimit(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	acct := AccountState{InitialBalance: 10000, Equity: 8900, Balance: 8900, FreeMargin: 5000}
	res := g.CheckAll(acct, 0.01, -1, 0)
	require.Equal(t, RiskEmergencyStop, res.Check)
}

func TestMarginCheckRejectsWhenFreeMarginBelowEstimate(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	// estimated margin = volume*1000 = 2*1000 = 2000, free margin 1000 < that.
	acct := AccountState{InitialBalance: 10000, Equity: 10000, Balance: 10000, FreeMargin: 1000}
	res := g.CheckAll(acct, 2, -1, 0)
	require.Equal(t, RiskMarginTooLow, res.Check)
}

func TestMarginCheckPassesWhenFreeMarginCoversEstimate(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	// estimated margin = volume*1000 = 0.01*1000 = 10, well under free margin.
	acct := AccountState{InitialBalance: 10000, Equity: 10000, Balance: 10000, FreeMargin: 5000}
	res := g.CheckAll(acct, 0.01, -1, 0)
	require.Equal(t, RiskOK, res.Check)
}

func TestSpreadCheckFailsOpenWhenUnknown(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	acct := AccountState{InitialBalance: 10000, Equity: 10000, Balance: 10000, FreeMargin: 5000}
	res := g.CheckAll(acct, 0.01, -1, 2.0)
	require.Equal(t, RiskOK, res.Check)
}

func TestSpreadCheckRejectsWideSpread(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	acct := AccountState{InitialBalance: 10000, Equity: 10000, Balance: 10000, FreeMargin: 5000}
	res := g.CheckAll(acct, 0.01, 3.5, 2.0)
	require.Equal(t, RiskSpreadTooWide, res.Check)
}

func TestCircuitBreakerTripsAfterMaxConsecutiveLosses(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	acct := AccountState{InitialBalance: 10000, Equity: 10000, Balance: 10000, FreeMargin: 5000}

	g.RecordTradeResult(-10)
	g.RecordTradeResult(-20)
	require.Equal(t, RiskOK, g.CheckAll(acct, 0.01, -1, 0).Check)

	g.RecordTradeResult(-5)
	require.Equal(t, RiskCircuitBreaker, g.CheckAll(acct, 0.01, -1, 0).Check)
}

func TestWinningTradeResetsConsecutiveLossCounter(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	g.RecordTradeResult(-10)
	g.RecordTradeResult(-10)
	g.RecordTradeResult(50)
	require.Equal(t, 0, g.ConsecutiveLosses())
}

func TestResetCircuitBreakerClearsTrip(t *testing.T) {
	g := NewRiskGate(baseRiskConfig())
	g.RecordTradeResult(-10)
	g.RecordTradeResult(-10)
	g.RecordTradeResult(-10)
	acct := AccountState{InitialBalance: 10000, Equity: 10000, Balance: 10000, FreeMargin: 5000}
	require.Equal(t, RiskCircuitBreaker, g.CheckAll(acct, 0.01, -1, 0).Check)

	g.ResetCircuitBreaker()
	require.Equal(t, RiskOK, g.CheckAll(acct, 0.01, -1, 0).Check)
}
