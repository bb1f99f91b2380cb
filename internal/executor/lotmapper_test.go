package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oracle-trader/runtime/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestMapLotReadsConfiguredTable(t *testing.T) {
	cfg := &types.SymbolConfig{Enabled: true, LotWeak: 0.01, LotModerate: 0.03, LotStrong: 0.05}
	m := NewLotMapper(map[string]*types.SymbolConfig{"EURUSD": cfg})

	lot, ok := m.MapLot("EURUSD", 1)
	require.True(t, ok)
	require.Equal(t, 0.01, lot)

	lot, ok = m.MapLot("EURUSD", 3)
	require.True(t, ok)
	require.Equal(t, 0.05, lot)
}

func TestMapLotRejectsDisabledSymbol(t *testing.T) {
	cfg := &types.SymbolConfig{Enabled: false, LotWeak: 0.01}
	m := NewLotMapper(map[string]*types.SymbolConfig{"EURUSD": cfg})

	_, ok := m.MapLot("EURUSD", 1)
	require.False(t, ok)
}

func TestMapLotRejectsUnknownSymbol(t *testing.T) {
	m := NewLotMapper(map[string]*types.SymbolConfig{})
	_, ok := m.MapLot("GBPUSD", 1)
	require.False(t, ok)
}

func TestLoadSymbolConfigsParsesSymbolsAndReservedRiskSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executor_symbols.json")
	doc := `{
		"_risk": {"dd_limit_pct": 4, "dd_emergency_pct": 8, "max_consecutive_losses": 2},
		"EURUSD": {"enabled": true, "lot_weak": 0.02, "lot_moderate": 0.04, "lot_strong": 0.06, "sl_usd": 15, "tp_usd": 30, "max_spread_pips": 1.5}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	configs, risk, err := LoadSymbolConfigs(path)
	require.NoError(t, err)

	require.Len(t, configs, 1)
	cfg := configs["EURUSD"]
	require.NotNil(t, cfg)
	require.Equal(t, 0.02, cfg.LotWeak)
	require.Equal(t, 0.04, cfg.LotModerate)
	require.Equal(t, 0.06, cfg.LotStrong)
	require.Equal(t, 15.0, cfg.SLUsd)
	require.Equal(t, 1.5, cfg.MaxSpreadPips)
	require.Equal(t, 0.06, cfg.LotFor(3))

	require.Equal(t, RiskGateConfig{DrawdownLimitPct: 4, EmergencyStopPct: 8, MaxConsecutiveLoss: 2}, risk)
}

func TestLoadSymbolConfigsDefaultsRiskWhenSectionMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executor_symbols.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"EURUSD": {"enabled": true}}`), 0o644))

	_, risk, err := LoadSymbolConfigs(path)
	require.NoError(t, err)
	require.Equal(t, RiskGateConfig{DrawdownLimitPct: 5, EmergencyStopPct: 10, MaxConsecutiveLoss: 3}, risk)
}
