// Package predictor owns the per-symbol ring buffer, the loaded model
// bundle, the virtual-position twin, and the two-stage inference
// pipeline (regime classifier then policy) that turns a closed bar into
// a Signal. The feature formulas and the regime/policy weights
// themselves are treated as opaque collaborators: features() is a
// frozen pure function supplied by the caller, and regime()/policy()
// are opaque functions over a model blob. This package only owns the
// orchestration and the twin's bookkeeping.
package predictor

import (
	"fmt"
	"time"

	"github.com/oracle-trader/runtime/pkg/ctypes"
	"github.com/oracle-trader/runtime/pkg/types"
	"go.uber.org/zap"
)

// FeatureFunc computes the regime-stage feature vector from the
// buffered bars.
type FeatureFunc func(bars []types.Candle) []float64

// PolicyFeatureFunc computes the policy-stage feature vector from the
// market subvector, the regime state, and the twin's (direction,
// intensity, floating pnl) triple.
type PolicyFeatureFunc func(marketFeatures []float64, regimeState int, direction types.Direction, intensity int, floatingPnL float64) []float64

// RegimeFunc is the opaque trained regime classifier: vector in, state out.
type RegimeFunc func(blob []byte, features []float64) int

// PolicyFunc is the opaque trained policy: vector in, action index out.
type PolicyFunc func(blob []byte, features []float64) int

// Pipeline holds the callbacks a concrete deployment wires in for the
// frozen, non-reimplemented parts of inference.
type Pipeline struct {
	RegimeFeatures FeatureFunc
	PolicyFeatures PolicyFeatureFunc
	Regime         RegimeFunc
	Policy         PolicyFunc
}

// Symbol bundles one symbol's ring buffer, bundle, and twin together.
type Symbol struct {
	Name   string
	Bundle *ModelBundle
	Buffer *RingBuffer
	Twin   *Twin
}

// NewSymbol builds a Symbol's inference state from a loaded bundle.
func NewSymbol(bundle *ModelBundle) *Symbol {
	tc := bundle.Metadata.TrainingConfig
	var lotTable [4]float64
	for i := 0; i < 4 && i < len(tc.LotSizes); i++ {
		lotTable[i] = tc.LotSizes[i]
	}
	params := types.VirtualPosition{
		SpreadPoints:     tc.SpreadPoints,
		SlippagePoints:   tc.SlippagePoints,
		CommissionPerLot: tc.CommissionPerLot,
		PointSize:        tc.Point,
		PipValue:         tc.PipValue,
		Digits:           tc.Digits,
		LotTable:         lotTable,
	}
	return &Symbol{
		Name:   bundle.Symbol,
		Bundle: bundle,
		Buffer: NewRingBuffer(ctypes.MinBarsForPrediction),
		Twin:   NewTwin(params),
	}
}

// Predictor runs the per-bar inference pipeline for every loaded symbol.
type Predictor struct {
	log      *zap.Logger
	pipeline Pipeline
	symbols  map[string]*Symbol
}

// New returns a Predictor driven by the given inference callbacks.
func New(log *zap.Logger, pipeline Pipeline) *Predictor {
	return &Predictor{
		log:      log.Named("predictor"),
		pipeline: pipeline,
		symbols:  make(map[string]*Symbol),
	}
}

// LoadModel loads a bundle from disk and registers its symbol. Failure
// returns an error without mutating any existing state.
func (p *Predictor) LoadModel(path string) (*Symbol, error) {
	bundle, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}
	sym := NewSymbol(bundle)
	p.symbols[sym.Name] = sym
	p.log.Info("model loaded", zap.String("symbol", sym.Name), zap.String("timeframe", sym.Bundle.Timeframe))
	return sym, nil
}

// UnloadModel drops a symbol's inference state entirely.
func (p *Predictor) UnloadModel(symbol string) {
	delete(p.symbols, symbol)
}

// Symbols returns the set of currently loaded symbol names.
func (p *Predictor) Symbols() []string {
	out := make([]string, 0, len(p.symbols))
	for s := range p.symbols {
		out = append(out, s)
	}
	return out
}

// Warmup feeds historical bars silently: the ring fills and, once full,
// every remaining bar runs the full pipeline so the twin ends up
// reflecting what the model "would have" held, but no Signal is
// returned to the caller.
func (p *Predictor) Warmup(symbol string, bars []types.Candle) error {
	sym, ok := p.symbols[symbol]
	if !ok {
		return fmt.Errorf("predictor: warmup: unknown symbol %s", symbol)
	}
	for _, bar := range bars {
		sym.Buffer.Append(bar)
		if !sym.Buffer.IsReady() {
			continue
		}
		p.runPipeline(sym, bar)
	}
	return nil
}

// ProcessBar runs the per-bar pipeline for one closed bar and returns a
// Signal, or ok=false if the buffer isn't full yet.
func (p *Predictor) ProcessBar(symbol string, bar types.Candle) (types.Signal, bool, error) {
	sym, ok := p.symbols[symbol]
	if !ok {
		return types.Signal{}, false, fmt.Errorf("predictor: process_bar: unknown symbol %s", symbol)
	}
	sym.Buffer.Append(bar)
	if !sym.Buffer.IsReady() {
		return types.Signal{}, false, nil
	}

	regimeState, direction, intensity, _ := p.runPipeline(sym, bar)

	sig := types.Signal{
		Symbol:      symbol,
		Direction:   direction,
		Intensity:   intensity,
		RegimeState: regimeState,
		VirtualPnL:  sym.Twin.Position().FloatingPnL,
		Wallclock:   time.Now(),
	}
	return sig, true, nil
}

// runPipeline runs regime classification and policy invocation, updates
// the twin, and returns the decoded outputs. Used by both Warmup (which
// discards the result) and ProcessBar (which emits it as a Signal).
func (p *Predictor) runPipeline(sym *Symbol, bar types.Candle) (regimeState int, direction types.Direction, intensity int, actionIdx int) {
	marketFeatures := p.pipeline.RegimeFeatures(sym.Buffer.Bars())
	regimeState = p.pipeline.Regime(sym.Bundle.RegimeBlob, marketFeatures)

	// PolicyFeatures is responsible for appending the one-hot regime
	// state and the twin-derived [direction, size*10, tanh(pnl/100)]
	// triple to the market subvector; that assembly is frozen feature
	// logic, not something this package reinterprets.
	pos := sym.Twin.Position()
	policyFeatures := p.pipeline.PolicyFeatures(marketFeatures, regimeState, pos.Direction, pos.Intensity, pos.FloatingPnL)

	actionIdx = p.pipeline.Policy(sym.Bundle.PolicyBlob, policyFeatures)
	direction, intensity = ctypes.ActionProperties(actionIdx)

	sym.Twin.Update(direction, intensity, bar.Close)
	return
}
