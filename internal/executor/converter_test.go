package executor

import (
	"testing"

	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/stretchr/testify/require"
)

type stubSymbolInfo struct {
	info map[string]types.SymbolDescriptor
}

func (s stubSymbolInfo) SymbolInfo(symbol string) (types.SymbolDescriptor, bool) {
	d, ok := s.info[symbol]
	return d, ok
}

func TestUsdToSLPriceMatchesReferenceExample(t *testing.T) {
	c := NewPriceConverter(stubSymbolInfo{info: map[string]types.SymbolDescriptor{}})
	sl := c.UsdToSLPrice("EURUSD", types.Long, 1.10000, 0.01, 10)
	require.InDelta(t, 1.09000, sl, 1e-9)
}

func TestUsdToTPPriceMirrorsSL(t *testing.T) {
	c := NewPriceConverter(stubSymbolInfo{info: map[string]types.SymbolDescriptor{}})
	tp := c.UsdToTPPrice("EURUSD", types.Long, 1.10000, 0.01, 10)
	require.InDelta(t, 1.11000, tp, 1e-9)
}

func TestUsdToSLPriceShortDirectionAddsDistance(t *testing.T) {
	c := NewPriceConverter(stubSymbolInfo{info: map[string]types.SymbolDescriptor{}})
	sl := c.UsdToSLPrice("EURUSD", types.Short, 1.10000, 0.01, 10)
	require.InDelta(t, 1.11000, sl, 1e-9)
}

func TestJPYPairUsesThreeDigitPointSize(t *testing.T) {
	c := NewPriceConverter(stubSymbolInfo{info: map[string]types.SymbolDescriptor{}})
	sl := c.UsdToSLPrice("USDJPY", types.Long, 150.000, 0.01, 10)
	require.Less(t, sl, 150.000)
}

func TestLiveSymbolInfoOverridesDefaultPointSize(t *testing.T) {
	c := NewPriceConverter(stubSymbolInfo{info: map[string]types.SymbolDescriptor{
		"EURUSD": {PointSize: 0.00001, Digits: 5, LotConversionFactor: 10},
	}})
	sl := c.UsdToSLPrice("EURUSD", types.Long, 1.10000, 0.01, 10)
	require.InDelta(t, 1.09000, sl, 1e-9)
}

func TestEstimatePipValueDividesByCurrentPriceForUsdBasePair(t *testing.T) {
	c := NewPriceConverter(stubSymbolInfo{info: map[string]types.SymbolDescriptor{}})
	// USDSEK isn't in the static pip-value table, so this exercises the
	// base==USD estimate branch: pip_value = 10.0 / current_price.
	got := c.pipValue("USDSEK", 10.50)
	require.InDelta(t, 10.0/10.50, got, 1e-9)
}
