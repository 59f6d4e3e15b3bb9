package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"KXBTC", "KXBTC15M", "KXBTCD", "KXETH"}, cfg.Trader.AllowPrefixes)
	assert.Equal(t, 120, cfg.Trader.IntervalSeconds)
	assert.Equal(t, 8, cfg.Trader.HoursAhead)
	assert.Equal(t, 90, cfg.Trader.CooldownSeconds)
	assert.Equal(t, float64(12), cfg.Trader.MinEdgeBps)
	assert.Equal(t, 0.12, cfg.Trader.MinMktProbUp)
	assert.Equal(t, 0.88, cfg.Trader.MaxMktProbUp)
	assert.Equal(t, 0.02, cfg.Trader.RangeNearPct)
	assert.Equal(t, 30, cfg.Trader.MaxEntryPriceCents)

	assert.Equal(t, 0.8, cfg.Fair.SensitivityK)
	assert.Equal(t, 120, cfg.Fair.MomentumLookbackSecs)
	assert.Equal(t, float64(60), cfg.Fair.DefaultVolBps)
	assert.Equal(t, 5000, cfg.Fair.SpotSeriesMaxSamples)

	assert.Equal(t, int64(200), cfg.Risk.MaxCostPerTradeCents)
	assert.Equal(t, int64(500), cfg.Risk.DailyMaxCostCents)
	assert.Equal(t, int64(25), cfg.Risk.CashBufferCents)
	assert.Equal(t, int64(300), cfg.Risk.LotteryMaxCostCents)

	assert.Equal(t, "demo", cfg.Kalshi.Environment)
	assert.Equal(t, "data/trades.sqlite", cfg.Storage.LedgerPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trader:
  interval_seconds: 30
  min_edge_bps: 20
  allow_prefixes: [KXBTC15M]
risk:
  daily_max_cost_cents: 1000
exits:
  enabled: true
kalshi:
  environment: prod
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Trader.IntervalSeconds)
	assert.Equal(t, float64(20), cfg.Trader.MinEdgeBps)
	assert.Equal(t, []string{"KXBTC15M"}, cfg.Trader.AllowPrefixes)
	assert.Equal(t, int64(1000), cfg.Risk.DailyMaxCostCents)
	assert.Equal(t, "prod", cfg.Kalshi.Environment)

	// los defaults de exits solo aplican con el motor habilitado
	assert.True(t, cfg.Exits.Enabled)
	assert.Equal(t, int64(100), cfg.Exits.TakeProfitCents)
	assert.Equal(t, int64(150), cfg.Exits.StopLossCents)

	// lo no seteado conserva el default
	assert.Equal(t, int64(200), cfg.Risk.MaxCostPerTradeCents)
}

func TestLoad_NegativeLotteryCapDisablesLottery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
risk:
  lottery_max_cost_cents: -1
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// negativo significa lotería desactivada: nunca se re-aplica el default
	assert.Equal(t, int64(0), cfg.Risk.LotteryMaxCostCents)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kalshi:
  environment: demo
  access_key_id: from-yaml
`), 0o644))

	t.Setenv("KALSHI_ENV", "prod")
	t.Setenv("KALSHI_ACCESS_KEY_ID", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Kalshi.Environment)
	assert.Equal(t, "from-env", cfg.Kalshi.AccessKeyID)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Validation(t *testing.T) {
	write := func(body string) string {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := Load(write("kalshi:\n  environment: staging\n"))
	assert.Error(t, err)

	_, err = Load(write("trader:\n  min_mkt_prob_up: 0.9\n  max_mkt_prob_up: 0.2\n"))
	assert.Error(t, err)

	_, err = Load(write("trader:\n  top_qty_fraction: 1.5\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "2m0s", cfg.TickInterval().String())
	assert.Equal(t, "8h0m0s", cfg.ScanHorizon().String())
	assert.Equal(t, "1m30s", cfg.Cooldown().String())
	assert.Equal(t, "15m0s", cfg.MaxHold().String())
}
