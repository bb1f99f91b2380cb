package broker

import (
	"sync"

	"github.com/oracle-trader/runtime/pkg/types"
)

// symbolRegistry is the live cache of per-symbol descriptors fetched
// once at boot; lookups never block on the network.
type symbolRegistry struct {
	mu    sync.RWMutex
	byName map[string]types.SymbolDescriptor
}

func newSymbolRegistry() *symbolRegistry {
	return &symbolRegistry{byName: make(map[string]types.SymbolDescriptor)}
}

func (r *symbolRegistry) set(descs []types.SymbolDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descs {
		r.byName[d.Name] = d
	}
}

func (r *symbolRegistry) get(symbol string) (types.SymbolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[symbol]
	return d, ok
}

func (r *symbolRegistry) all() []types.SymbolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.SymbolDescriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	return out
}

// quoteCache tracks the most recent tick per symbol, fed by the spot
// event subscription.
type quoteCache struct {
	mu   sync.RWMutex
	last map[string]types.Tick
}

func newQuoteCache() *quoteCache {
	return &quoteCache{last: make(map[string]types.Tick)}
}

func (q *quoteCache) set(t types.Tick) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.last[t.Symbol] = t
}

func (q *quoteCache) get(symbol string) (types.Tick, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, ok := q.last[symbol]
	return t, ok
}

// positionCache tracks currently-open real positions per symbol, kept
// in sync by order acceptance, execution events, and the boot-time
// reconciliation.
type positionCache struct {
	mu      sync.RWMutex
	bySymbol map[string]*types.RealPosition
}

func newPositionCache() *positionCache {
	return &positionCache{bySymbol: make(map[string]*types.RealPosition)}
}

func (p *positionCache) set(pos *types.RealPosition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bySymbol[pos.Symbol] = pos
}

func (p *positionCache) clear(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.bySymbol, symbol)
}

func (p *positionCache) get(symbol string) (*types.RealPosition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.bySymbol[symbol]
	return pos, ok
}

func (p *positionCache) reconcile(fresh []types.RealPosition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bySymbol = make(map[string]*types.RealPosition, len(fresh))
	for i := range fresh {
		pos := fresh[i]
		p.bySymbol[pos.Symbol] = &pos
	}
}
