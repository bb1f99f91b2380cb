package predictor

import "github.com/oracle-trader/runtime/pkg/types"

// RingBuffer is a fixed-capacity FIFO window over the most recent bars
// for one symbol, grounded on buffer.py's BarBuffer: the oldest bar is
// dropped once the buffer is full, and IsReady only flips true once
// capacity is reached.
type RingBuffer struct {
	capacity int
	bars     []types.Candle
}

// NewRingBuffer returns a RingBuffer holding up to capacity bars.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{capacity: capacity, bars: make([]types.Candle, 0, capacity)}
}

// Append adds a bar, evicting the oldest one if already at capacity.
func (r *RingBuffer) Append(bar types.Candle) {
	if len(r.bars) == r.capacity {
		copy(r.bars, r.bars[1:])
		r.bars[len(r.bars)-1] = bar
		return
	}
	r.bars = append(r.bars, bar)
}

// IsReady reports whether the buffer holds enough bars for prediction.
func (r *RingBuffer) IsReady() bool {
	return len(r.bars) >= r.capacity
}

// Bars returns the buffered bars oldest-first.
func (r *RingBuffer) Bars() []types.Candle {
	return r.bars
}

// LastBar returns the most recent bar, if any.
func (r *RingBuffer) LastBar() (types.Candle, bool) {
	if len(r.bars) == 0 {
		return types.Candle{}, false
	}
	return r.bars[len(r.bars)-1], true
}

// Len reports the number of bars currently buffered.
func (r *RingBuffer) Len() int { return len(r.bars) }
