// Package candle turns tick arrivals into closed fixed-period bars.
// Grounded on bar_detector.py: cTrader-shaped brokers never emit a
// "bar closed" event directly, so closure is detected locally from
// tick timestamps crossing a timeframe boundary. No timer drives
// closure — if a symbol stops ticking, its last bar never finalizes.
package candle

import (
	"sync"

	"github.com/oracle-trader/runtime/pkg/types"
)

type pendingBar struct {
	barStart int64
	open     float64
	high     float64
	low      float64
	close    float64
	volume   float64
}

// Synthesizer holds per-symbol bar-forming state. Safe for concurrent
// use across symbols; a single symbol's OnTick calls must be serialized
// by the caller (the broker adapter delivers one tick stream per
// symbol).
type Synthesizer struct {
	mu              sync.Mutex
	timeframeSeconds int64
	lastBarStart    map[string]int64 // -1 sentinel: not yet initialized
	pending         map[string]*pendingBar
}

// New returns a Synthesizer producing bars of the given width.
func New(timeframeSeconds int64) *Synthesizer {
	return &Synthesizer{
		timeframeSeconds: timeframeSeconds,
		lastBarStart:     make(map[string]int64),
		pending:          make(map[string]*pendingBar),
	}
}

// Register primes a symbol's state; subsequent ticks for it will be
// bucketed into bars. Idempotent.
func (s *Synthesizer) Register(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lastBarStart[symbol]; !ok {
		s.lastBarStart[symbol] = -1
	}
}

// Unregister drops a symbol's state entirely.
func (s *Synthesizer) Unregister(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastBarStart, symbol)
	delete(s.pending, symbol)
}

// OnTick feeds one tick and returns the finalized candle plus true if
// this tick closed the previous bar.
func (s *Synthesizer) OnTick(symbol string, tickEpoch int64, bid, ask, volume float64) (types.Candle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, known := s.lastBarStart[symbol]
	if !known {
		s.lastBarStart[symbol] = -1
		last = -1
	}

	barStart := (tickEpoch / s.timeframeSeconds) * s.timeframeSeconds
	mid := (bid + ask) / 2

	if last == -1 {
		s.lastBarStart[symbol] = barStart
		s.pending[symbol] = &pendingBar{barStart: barStart, open: mid, high: mid, low: mid, close: mid, volume: volume}
		return types.Candle{}, false
	}

	if barStart > last {
		var finalized types.Candle
		var hadPending bool
		if p, ok := s.pending[symbol]; ok {
			finalized = types.Candle{
				Symbol: symbol, TimeEpoch: p.barStart,
				Open: p.open, High: p.high, Low: p.low, Close: p.close, Volume: p.volume,
			}
			hadPending = true
		}
		s.lastBarStart[symbol] = barStart
		s.pending[symbol] = &pendingBar{barStart: barStart, open: mid, high: mid, low: mid, close: mid, volume: volume}
		return finalized, hadPending
	}

	p := s.pending[symbol]
	if p == nil {
		p = &pendingBar{barStart: barStart, open: mid, high: mid, low: mid, close: mid, volume: volume}
		s.pending[symbol] = p
		return types.Candle{}, false
	}
	if mid > p.high {
		p.high = mid
	}
	if mid < p.low {
		p.low = mid
	}
	p.close = mid
	p.volume += volume
	return types.Candle{}, false
}

// PendingBar exposes the in-formation bar for a symbol, for diagnostics.
func (s *Synthesizer) PendingBar(symbol string) (types.Candle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[symbol]
	if !ok {
		return types.Candle{}, false
	}
	return types.Candle{Symbol: symbol, TimeEpoch: p.barStart, Open: p.open, High: p.high, Low: p.low, Close: p.close, Volume: p.volume}, true
}
