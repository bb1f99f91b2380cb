// Trader fans a predictor Signal out to the right symbol's shadow
// Account, grounded on paper/paper_trader.py's PaperTrader.
package paper

import (
	"sort"

	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

// Trader owns one Account per symbol and mirrors every signal the
// predictor emits, independent of whatever the real executor decided.
type Trader struct {
	log            *zap.Logger
	initialBalance float64
	accounts       map[string]*Account
}

// NewTrader returns a Trader seeded with the balance every Account
// starts from.
func NewTrader(log *zap.Logger, initialBalance float64) *Trader {
	return &Trader{
		log:            log.Named("paper"),
		initialBalance: initialBalance,
		accounts:       make(map[string]*Account),
	}
}

// LoadConfig registers a symbol's training cost model, creating its
// Account. Must be called once the corresponding model bundle is
// loaded, since the cost model comes from the bundle's metadata.
func (t *Trader) LoadConfig(symbol string, cost CostModel) {
	t.accounts[symbol] = NewAccount(t.initialBalance, cost)
	t.log.Info("paper config loaded", zap.String("symbol", symbol), zap.Float64("spread_points", cost.SpreadPoints))
}

// ProcessSignal mirrors one predictor Signal into the symbol's shadow
// account, replicating the exact same-direction/intensity-change and
// reversal handling as the twin: a same-direction intensity change
// closes and reopens; a direction change closes then opens; intensity
// 0 (flat) only closes. Returns the resulting Trade if one closed.
func (t *Trader) ProcessSignal(signal types.Signal, closePrice float64, timestampEpoch float64) (Trade, bool) {
	account, ok := t.accounts[signal.Symbol]
	if !ok {
		return Trade{}, false
	}

	targetDir := int(signal.Direction)
	targetIntensity := signal.Intensity

	currentDir := 0
	if pos, ok := account.Position(signal.Symbol); ok {
		currentDir = pos.Direction
	}

	if currentDir == targetDir {
		pos, hasPos := account.Position(signal.Symbol)
		if hasPos && pos.Intensity != targetIntensity && targetDir != 0 {
			trade, _ := account.ClosePosition(signal.Symbol, closePrice, timestampEpoch, signal.RegimeState)
			account.OpenPosition(signal.Symbol, targetDir, targetIntensity, closePrice, timestampEpoch)
			return trade, true
		}
		return Trade{}, false
	}

	var trade Trade
	var closed bool
	if currentDir != 0 {
		trade, closed = account.ClosePosition(signal.Symbol, closePrice, timestampEpoch, signal.RegimeState)
	}
	if targetDir != 0 && targetIntensity > 0 {
		account.OpenPosition(signal.Symbol, targetDir, targetIntensity, closePrice, timestampEpoch)
	}
	return trade, closed
}

// Metrics is the consolidated cross-symbol summary.
type Metrics struct {
	TotalTrades     int
	TotalPnL        float64
	WinRate         float64
	AvgBalance      float64
	TotalCommission float64
}

// GetMetrics summarizes every symbol's closed trades and balances.
func (t *Trader) GetMetrics() Metrics {
	var allTrades []Trade
	totalBalance := 0.0
	totalCommission := 0.0
	for _, account := range t.accounts {
		allTrades = append(allTrades, account.ClosedTrades()...)
		totalBalance += account.Balance
		totalCommission += account.TotalCommission
	}

	if len(allTrades) == 0 {
		return Metrics{AvgBalance: t.initialBalance}
	}

	wins := 0
	totalPnL := 0.0
	for _, trade := range allTrades {
		totalPnL += trade.PnL
		if trade.PnL > 0 {
			wins++
		}
	}

	return Metrics{
		TotalTrades:     len(allTrades),
		TotalPnL:        totalPnL,
		WinRate:         float64(wins) / float64(len(allTrades)) * 100,
		AvgBalance:      totalBalance / float64(max(len(t.accounts), 1)),
		TotalCommission: totalCommission,
	}
}

// GetTrades returns closed trades for one symbol, or every symbol's
// trades sorted by exit time if symbol is empty.
func (t *Trader) GetTrades(symbol string) []Trade {
	if symbol != "" {
		account, ok := t.accounts[symbol]
		if !ok {
			return nil
		}
		return account.ClosedTrades()
	}

	var all []Trade
	for _, account := range t.accounts {
		all = append(all, account.ClosedTrades()...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ExitTime < all[j].ExitTime })
	return all
}

// DriftReport compares shadow trades against the real executor's
// realized results, for surfacing model-vs-live divergence.
type DriftReport struct {
	PaperTrades  int
	RealTrades   int
	PaperPnL     float64
	RealPnL      float64
	PnLDrift     float64
	PnLDriftPct  float64
	PaperWinRate float64
	RealWinRate  float64
}

// CompareWithReal builds a DriftReport from the shadow ledger and the
// real trade PnL series the caller supplies.
func (t *Trader) CompareWithReal(realPnLs []float64) DriftReport {
	paperTrades := t.GetTrades("")

	paperPnL := 0.0
	paperWins := 0
	for _, trade := range paperTrades {
		paperPnL += trade.PnL
		if trade.PnL > 0 {
			paperWins++
		}
	}

	realPnL := 0.0
	realWins := 0
	for _, pnl := range realPnLs {
		realPnL += pnl
		if pnl > 0 {
			realWins++
		}
	}

	report := DriftReport{
		PaperTrades: len(paperTrades),
		RealTrades:  len(realPnLs),
		PaperPnL:    paperPnL,
		RealPnL:     realPnL,
		PnLDrift:    paperPnL - realPnL,
	}
	if paperPnL != 0 {
		report.PnLDriftPct = (paperPnL - realPnL) / absf(paperPnL) * 100
	}
	if len(paperTrades) > 0 {
		report.PaperWinRate = float64(paperWins) / float64(len(paperTrades)) * 100
	}
	if len(realPnLs) > 0 {
		report.RealWinRate = float64(realWins) / float64(len(realPnLs)) * 100
	}
	return report
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
