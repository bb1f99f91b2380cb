// Monetary-risk-to-price-distance conversion, grounded on
// price_converter.py's PriceConverter. Symbol configs express stop-loss
// and take-profit budgets in USD; the broker order needs an absolute
// price, so this file bridges the two via pip value and point size.
package executor

import (
	"strings"

	"github.com/oracle-trader/runtime/pkg/ctypes"
	"github.com/oracle-trader/runtime/pkg/types"
)

// SymbolInfoSource resolves a symbol's descriptor, when known to the
// broker adapter's cache. A miss is normal for a symbol never fetched.
type SymbolInfoSource interface {
	SymbolInfo(symbol string) (types.SymbolDescriptor, bool)
}

// PriceConverter turns a USD risk budget into an absolute stop/take
// price. Pip value comes from the static default table, then an
// estimate derived from the currency pair's own quote convention; point
// size comes from live symbol info, then the static default table, then
// a fallback derived from the symbol name.
type PriceConverter struct {
	symbols SymbolInfoSource
}

// NewPriceConverter builds a converter backed by a symbol info source.
func NewPriceConverter(symbols SymbolInfoSource) *PriceConverter {
	return &PriceConverter{symbols: symbols}
}

// UsdToSLPrice returns the stop-loss price for a position opened at
// currentPrice in the given direction, sl_usd away in notional risk.
func (c *PriceConverter) UsdToSLPrice(symbol string, direction types.Direction, currentPrice, volume, slUsd float64) float64 {
	distance := c.usdToPriceDistance(symbol, volume, slUsd, currentPrice)
	if direction == types.Long {
		return currentPrice - distance
	}
	return currentPrice + distance
}

// UsdToTPPrice returns the take-profit price, the mirror image of
// UsdToSLPrice.
func (c *PriceConverter) UsdToTPPrice(symbol string, direction types.Direction, currentPrice, volume, tpUsd float64) float64 {
	distance := c.usdToPriceDistance(symbol, volume, tpUsd, currentPrice)
	if direction == types.Long {
		return currentPrice + distance
	}
	return currentPrice - distance
}

func (c *PriceConverter) usdToPriceDistance(symbol string, volume, usdValue, currentPrice float64) float64 {
	if volume <= 0 {
		return 0
	}
	pipValue := c.pipValue(symbol, currentPrice)
	pointSize, _ := c.pointSizeAndDigits(symbol)
	if pipValue <= 0 {
		return 0
	}
	return (usdValue / (pipValue * volume)) * pointSize * 10
}

// pipValue resolves USD-per-pip-per-lot through the same fallback chain
// as _get_pip_value: the static default table first, then the
// currency-convention estimate. The broker's own symbol descriptor
// carries no pip-value field (LotConversionFactor is the lot-to-volume
// multiplier, an unrelated quantity), so it is never consulted here.
func (c *PriceConverter) pipValue(symbol string, currentPrice float64) float64 {
	if v, ok := ctypes.DefaultPipValues[symbol]; ok {
		return v
	}
	return c.estimatePipValue(symbol, currentPrice)
}

// estimatePipValue mirrors _estimate_pip_value's currency-convention
// heuristic: quote currency USD means a pip is worth $10/lot directly;
// base currency USD divides the fixed $10 by the current price; anything
// else (a cross pair) falls back to the same $10/lot approximation.
func (c *PriceConverter) estimatePipValue(symbol string, currentPrice float64) float64 {
	if len(symbol) != 6 {
		return 10.0
	}
	base, quote := symbol[:3], symbol[3:]
	if quote == "USD" {
		return 10.0
	}
	if base == "USD" {
		if currentPrice > 0 {
			return 10.0 / currentPrice
		}
		return 10.0
	}
	return 10.0
}

func (c *PriceConverter) pointSizeAndDigits(symbol string) (float64, int) {
	if c.symbols != nil {
		if info, ok := c.symbols.SymbolInfo(symbol); ok && info.PointSize > 0 {
			return info.PointSize, info.Digits
		}
	}
	if v, ok := ctypes.DefaultPointSizes[symbol]; ok {
		if strings.HasSuffix(symbol, "JPY") {
			return v, 3
		}
		return v, 5
	}
	if strings.HasSuffix(symbol, "JPY") {
		return 0.001, 3
	}
	return 0.00001, 5
}
