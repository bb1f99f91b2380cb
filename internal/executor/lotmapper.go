// Lot sizing from a signal's intensity, grounded on lot_mapper.py's
// LotMapper.map_lot and load_symbol_configs.
package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/oracle-trader/runtime/pkg/types"
)

// LotMapper resolves a per-symbol, per-intensity lot size from the
// live SymbolConfig registry, which the control channel may mutate at
// any time.
type LotMapper struct {
	configs map[string]*types.SymbolConfig
}

// NewLotMapper wraps an already-loaded config registry.
func NewLotMapper(configs map[string]*types.SymbolConfig) *LotMapper {
	return &LotMapper{configs: configs}
}

// MapLot returns the configured lot size for a symbol at a given
// intensity, or 0 with ok=false if the symbol is unknown or disabled.
func (m *LotMapper) MapLot(symbol string, intensity int) (float64, bool) {
	cfg, ok := m.configs[symbol]
	if !ok || !cfg.Enabled {
		return 0, false
	}
	cfg.SyncLotTable()
	lot := cfg.LotFor(intensity)
	if lot <= 0 {
		return 0, false
	}
	return lot, true
}

// Config returns the live config for a symbol, if any.
func (m *LotMapper) Config(symbol string) (*types.SymbolConfig, bool) {
	cfg, ok := m.configs[symbol]
	return cfg, ok
}

// riskSection is the reserved "_risk" key's shape: drawdown and
// circuit-breaker thresholds shared across every symbol, not a
// per-symbol execution field.
type riskSection struct {
	DDLimitPct           float64 `json:"dd_limit_pct"`
	DDEmergencyPct       float64 `json:"dd_emergency_pct"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// LoadSymbolConfigs reads the per-symbol config file: a single JSON
// object keyed by symbol name, with plain per-symbol execution fields
// (enabled, lot_weak, lot_moderate, lot_strong, sl_usd, tp_usd,
// max_spread_pips). Keys starting with "_" are reserved; "_risk" carries
// the RiskGateConfig thresholds instead of a symbol's own settings.
// Mirrors lot_mapper.py's load_symbol_configs.
func LoadSymbolConfigs(path string) (map[string]*types.SymbolConfig, RiskGateConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, RiskGateConfig{}, fmt.Errorf("executor: read symbol config %s: %w", path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, RiskGateConfig{}, fmt.Errorf("executor: parse symbol config %s: %w", path, err)
	}

	risk := RiskGateConfig{DrawdownLimitPct: 5, EmergencyStopPct: 10, MaxConsecutiveLoss: 3}
	if riskRaw, ok := doc["_risk"]; ok {
		var rs riskSection
		if err := json.Unmarshal(riskRaw, &rs); err != nil {
			return nil, RiskGateConfig{}, fmt.Errorf("executor: parse _risk section: %w", err)
		}
		risk = RiskGateConfig{
			DrawdownLimitPct:   rs.DDLimitPct,
			EmergencyStopPct:   rs.DDEmergencyPct,
			MaxConsecutiveLoss: rs.MaxConsecutiveLosses,
		}
	}

	out := make(map[string]*types.SymbolConfig, len(doc))
	for symbol, entryRaw := range doc {
		if strings.HasPrefix(symbol, "_") {
			continue
		}
		cfg := &types.SymbolConfig{Enabled: true, LotWeak: 0.01, LotModerate: 0.03, LotStrong: 0.05, SLUsd: 10, MaxSpreadPips: 2}
		if err := json.Unmarshal(entryRaw, cfg); err != nil {
			return nil, RiskGateConfig{}, fmt.Errorf("executor: parse symbol config %s: %w", symbol, err)
		}
		cfg.SyncLotTable()
		out[symbol] = cfg
	}
	return out, risk, nil
}
