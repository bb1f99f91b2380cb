// Virtual position twin, replicating exactly the training environment's
// position-execution logic: the predictor assumes every virtual order
// fills instantly at the stated price, with no rejection, so that the
// position-derived features it feeds back into the policy stay
// numerically identical to what the model saw during training.
//
// This arithmetic is part of the trained model's implicit contract.
// Do not reorder, simplify, or "improve" it — any deviation, however
// small, invalidates the model. All of it runs in float64.
package predictor

import "github.com/oracle-trader/runtime/pkg/types"

// Twin owns one symbol's virtual position and the frozen training cost
// parameters it was built from.
type Twin struct {
	pos types.VirtualPosition
}

// NewTwin returns a Twin seeded with the given training cost parameters;
// the position itself starts flat.
func NewTwin(params types.VirtualPosition) *Twin {
	t := &Twin{pos: params}
	t.pos.Direction = 0
	t.pos.Intensity = 0
	t.pos.EntryPrice = 0
	t.pos.FloatingPnL = 0
	t.pos.TotalRealizedPnL = 0
	return t
}

// Position returns a snapshot of the current twin state.
func (t *Twin) Position() types.VirtualPosition { return t.pos }

// Update applies one policy action at the given bar close price and
// returns the realized PnL booked by this call (zero if the position
// was simply held).
func (t *Twin) Update(direction types.Direction, intensity int, closePrice float64) float64 {
	if direction == t.pos.Direction && intensity == t.pos.Intensity {
		t.updateFloatingPnL(closePrice)
		return 0.0
	}

	realized := 0.0
	if t.pos.Direction != 0 {
		realized = t.close(closePrice)
		t.pos.TotalRealizedPnL += realized
	}

	if direction != 0 {
		t.open(direction, intensity, closePrice)
		t.updateFloatingPnL(closePrice)
	}

	return realized
}

func (t *Twin) open(direction types.Direction, intensity int, price float64) {
	spreadCost := t.pos.SpreadPoints * t.pos.PointSize
	slippage := t.pos.SlippagePoints * t.pos.PointSize

	if direction == types.Long {
		t.pos.EntryPrice = price + spreadCost + slippage
	} else {
		t.pos.EntryPrice = price - spreadCost - slippage
	}

	t.pos.Direction = direction
	t.pos.Intensity = intensity
	t.pos.FloatingPnL = 0.0

	lotSize := t.pos.LotTable[intensity]
	t.applyCommission(lotSize, true)
}

func (t *Twin) close(price float64) float64 {
	if t.pos.Direction == 0 {
		return 0.0
	}

	slippage := t.pos.SlippagePoints * t.pos.PointSize

	var exitPrice float64
	if t.pos.Direction == types.Long {
		exitPrice = price - slippage
	} else {
		exitPrice = price + slippage
	}

	priceDiff := (exitPrice - t.pos.EntryPrice) * float64(t.pos.Direction)
	pips := priceDiff / t.pos.PointSize / t.pos.PointsPerPip()
	lotSize := t.pos.LotTable[t.pos.Intensity]
	pnl := pips * t.pos.PipValue * lotSize

	pnl -= (t.pos.CommissionPerLot * lotSize) / 2

	t.pos.Direction = 0
	t.pos.Intensity = 0
	t.pos.EntryPrice = 0.0
	t.pos.FloatingPnL = 0.0

	return pnl
}

func (t *Twin) updateFloatingPnL(currentPrice float64) {
	if t.pos.Direction == 0 {
		t.pos.FloatingPnL = 0.0
		return
	}
	priceDiff := (currentPrice - t.pos.EntryPrice) * float64(t.pos.Direction)
	pips := priceDiff / t.pos.PointSize / t.pos.PointsPerPip()
	lotSize := t.pos.LotTable[t.pos.Intensity]
	t.pos.FloatingPnL = pips * t.pos.PipValue * lotSize
}

// applyCommission mirrors the source's entry-side commission deduction.
// It intentionally happens to a FloatingPnL value that a following
// updateFloatingPnL call immediately overwrites, for every caller in
// this package — preserved because behavior must stay bit-identical to
// the source, not because the write is observable.
func (t *Twin) applyCommission(lotSize float64, half bool) {
	comm := t.pos.CommissionPerLot * lotSize
	if half {
		comm /= 2
	}
	t.pos.FloatingPnL -= comm
}
