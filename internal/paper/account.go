// Package paper runs a shadow account in parallel to the real executor:
// the exact same entry/exit cost model as the twin, but tracking
// realized balance and equity so a drift report can compare what the
// model "should have" made against what the broker actually filled.
// Grounded on paper/account.py's PaperAccount.
package paper

// Position is a virtual open position in one account.
type Position struct {
	Symbol     string
	Direction  int
	Intensity  int
	Volume     float64
	EntryPrice float64
	EntryTime  float64
	CurrentPnL float64
}

// Trade is a closed virtual position.
type Trade struct {
	Symbol     string
	Direction  int
	Intensity  int
	Volume     float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  float64
	ExitTime   float64
	PnL        float64
	PnLPips    float64
	Commission float64
	RegimeState int
}

// CostModel is the frozen per-symbol training cost parameters an
// Account replicates exactly, identical in shape to the twin's.
type CostModel struct {
	SpreadPoints     float64
	SlippagePoints   float64
	CommissionPerLot float64
	Point            float64
	PipValue         float64
	Digits           int
	LotSizes         []float64
}

// PointsPerPip returns 10 for 3- or 5-digit pricing, 1 otherwise.
func (c CostModel) PointsPerPip() float64 {
	if c.Digits == 3 || c.Digits == 5 {
		return 10
	}
	return 1
}

// Account is one symbol-scoped paper-trading ledger.
type Account struct {
	InitialBalance float64
	Balance        float64
	Equity         float64
	TotalCommission float64

	cost      CostModel
	positions map[string]*Position
	closed    []Trade
}

// NewAccount returns an Account seeded with initialBalance and the
// training cost model, with no open positions.
func NewAccount(initialBalance float64, cost CostModel) *Account {
	return &Account{
		InitialBalance: initialBalance,
		Balance:        initialBalance,
		Equity:         initialBalance,
		cost:           cost,
		positions:      make(map[string]*Position),
	}
}

// ClosedTrades returns every trade this account has closed, oldest
// first.
func (a *Account) ClosedTrades() []Trade { return a.closed }

// OpenPosition opens a virtual position at price with the training
// spread/slippage applied and the entry half-commission charged
// immediately, mirroring TradingEnv._open_position exactly. Returns
// false if a position is already open for the symbol, the intensity is
// out of range, or its lot size is non-positive.
func (a *Account) OpenPosition(symbol string, direction, intensity int, price, timestamp float64) bool {
	if _, exists := a.positions[symbol]; exists {
		return false
	}
	if intensity < 0 || intensity >= len(a.cost.LotSizes) {
		return false
	}
	volume := a.cost.LotSizes[intensity]
	if volume <= 0 {
		return false
	}

	spreadCost := a.cost.SpreadPoints * a.cost.Point
	slippage := a.cost.SlippagePoints * a.cost.Point

	var entryPrice float64
	if direction == 1 {
		entryPrice = price + spreadCost + slippage
	} else {
		entryPrice = price - spreadCost - slippage
	}

	commission := (a.cost.CommissionPerLot * volume) / 2
	a.Balance -= commission
	a.TotalCommission += commission

	a.positions[symbol] = &Position{
		Symbol: symbol, Direction: direction, Intensity: intensity,
		Volume: volume, EntryPrice: entryPrice, EntryTime: timestamp,
	}
	return true
}

// ClosePosition closes the open position for a symbol at price,
// returning the resulting Trade, or ok=false if no position was open.
func (a *Account) ClosePosition(symbol string, price, timestamp float64, regimeState int) (Trade, bool) {
	pos, ok := a.positions[symbol]
	if !ok {
		return Trade{}, false
	}

	slippage := a.cost.SlippagePoints * a.cost.Point
	var exitPrice float64
	if pos.Direction == 1 {
		exitPrice = price - slippage
	} else {
		exitPrice = price + slippage
	}

	priceDiff := (exitPrice - pos.EntryPrice) * float64(pos.Direction)
	pips := priceDiff / a.cost.Point / a.cost.PointsPerPip()
	pnl := pips * a.cost.PipValue * pos.Volume

	commission := (a.cost.CommissionPerLot * pos.Volume) / 2
	pnl -= commission
	a.TotalCommission += commission

	a.Balance += pnl
	a.Equity = a.Balance

	trade := Trade{
		Symbol: symbol, Direction: pos.Direction, Intensity: pos.Intensity,
		Volume: pos.Volume, EntryPrice: pos.EntryPrice, ExitPrice: exitPrice,
		EntryTime: pos.EntryTime, ExitTime: timestamp, PnL: pnl, PnLPips: pips,
		Commission: commission * 2, RegimeState: regimeState,
	}
	a.closed = append(a.closed, trade)
	delete(a.positions, symbol)
	return trade, true
}

// UpdateEquity recomputes floating PnL for every open position against
// a fresh price map and refreshes Equity = Balance + floating PnL.
func (a *Account) UpdateEquity(prices map[string]float64) {
	floating := 0.0
	for symbol, pos := range a.positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		priceDiff := (price - pos.EntryPrice) * float64(pos.Direction)
		pips := priceDiff / a.cost.Point / a.cost.PointsPerPip()
		pos.CurrentPnL = pips * a.cost.PipValue * pos.Volume
		floating += pos.CurrentPnL
	}
	a.Equity = a.Balance + floating
}

// Position returns the open position for a symbol, if any.
func (a *Account) Position(symbol string) (Position, bool) {
	pos, ok := a.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}
