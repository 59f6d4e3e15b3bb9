package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del trader.
type Config struct {
	Trader   TraderConfig   `yaml:"trader"`
	Fair     FairConfig     `yaml:"fair"`
	Risk     RiskConfig     `yaml:"risk"`
	Exits    ExitsConfig    `yaml:"exits"`
	Kalshi   KalshiConfig   `yaml:"kalshi"`
	Feed     FeedConfig     `yaml:"feed"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// TraderConfig controla los gates de admisión y el pacing del loop.
type TraderConfig struct {
	AllowPrefixes        []string `yaml:"allow_prefixes"`
	IntervalSeconds      int      `yaml:"interval_seconds"`
	HoursAhead           int      `yaml:"hours_ahead"`
	CandidatesToCheck    int      `yaml:"candidates_to_check"`
	CooldownSeconds      int      `yaml:"cooldown_seconds"`
	MaxPositionPerTicker int      `yaml:"max_position_per_ticker"`
	MaxBTCExposureCents  int64    `yaml:"max_btc_exposure_cents"`
	MaxETHExposureCents  int64    `yaml:"max_eth_exposure_cents"`
	MinEdgeBps           float64  `yaml:"min_edge_bps"`
	MomentumThresholdBps float64  `yaml:"momentum_threshold_bps"`
	MinMktProbUp         float64  `yaml:"min_mkt_prob_up"`
	MaxMktProbUp         float64  `yaml:"max_mkt_prob_up"`
	MinMktProbRange      float64  `yaml:"min_mkt_prob_range"`
	MaxMktProbRange      float64  `yaml:"max_mkt_prob_range"`
	RangeNearPct         float64  `yaml:"range_near_pct"`
	MaxSpreadCents       int      `yaml:"max_spread_cents"`
	MaxEntryPriceCents   int      `yaml:"max_entry_price_cents"`
	MinExitBidCents      int      `yaml:"min_exit_bid_cents"`
	MinMinutesToClose    float64  `yaml:"min_minutes_to_close"`
	MinTopQty            int      `yaml:"min_top_qty"`
	DepthWithinCents     int      `yaml:"depth_within_cents"`
	MinDepthWithinQty    int      `yaml:"min_depth_within_qty"`
	TopQtyFraction       float64  `yaml:"top_qty_fraction"`
	OrderbookDepth       int      `yaml:"orderbook_depth"`
	RejectLogTopN        int      `yaml:"reject_log_topn"`
	HeartbeatEveryLoops  int      `yaml:"heartbeat_every_loops"`
}

// FairConfig contiene los parámetros del modelo de probabilidad justa.
type FairConfig struct {
	SensitivityK         float64 `yaml:"sensitivity_k"`
	MomentumLookbackSecs int     `yaml:"momentum_lookback_seconds"`
	VolWindowSeconds     int     `yaml:"vol_window_seconds"`
	VolDampBps           float64 `yaml:"vol_damp_bps"`
	MaxShiftProb         float64 `yaml:"max_shift_prob"`
	DefaultVolBps        float64 `yaml:"default_vol_bps"`
	SpotSeriesMaxSamples int     `yaml:"spot_series_max_samples"`
}

// RiskConfig controla los presupuestos con scope de día calendario.
type RiskConfig struct {
	MaxCostPerTradeCents int64 `yaml:"max_cost_per_trade_cents"`
	DailyMaxCostCents    int64 `yaml:"daily_max_cost_cents"`
	CashBufferCents      int64 `yaml:"cash_buffer_cents"`
	LotteryMaxCostCents  int64 `yaml:"lottery_max_cost_cents"`
	DailyLossLimitCents  int64 `yaml:"daily_realized_loss_limit_cents"`
	TargetSpendCents     int64 `yaml:"target_spend_cents"`
	TargetTrades         int   `yaml:"target_trades"`
	MaxTrades            int   `yaml:"max_trades"`
}

// ExitsConfig controla el motor de salidas/rotación.
type ExitsConfig struct {
	Enabled             bool    `yaml:"enabled"`
	EdgeEpsBps          float64 `yaml:"edge_eps_bps"`
	MaxHoldSeconds      int     `yaml:"max_hold_seconds"`
	TakeProfitCents     int64   `yaml:"take_profit_unreal_cents"`
	StopLossCents       int64   `yaml:"stop_loss_unreal_cents"`
	MaxSlippageCents    int     `yaml:"max_slippage_cents"`
	MaxPositionsPerTick int     `yaml:"max_positions_per_tick"`
}

// KalshiConfig contiene credenciales y entorno del exchange.
type KalshiConfig struct {
	Environment    string `yaml:"environment"` // demo | prod
	AccessKeyID    string `yaml:"access_key_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// FeedConfig apunta al feed spot de referencia.
type FeedConfig struct {
	SpotURL string `yaml:"spot_url"`
}

// StorageConfig controla dónde se persisten ledger y estado de día.
type StorageConfig struct {
	LedgerPath   string `yaml:"ledger_path"`
	DayStatePath string `yaml:"day_state_path"`
}

// TelegramConfig contiene las credenciales del notifier (vacío = deshabilitado).
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// MetricsConfig controla el endpoint Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = sin endpoint /metrics
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys sensibles.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// TickInterval devuelve el intervalo entre ticks como time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Trader.IntervalSeconds) * time.Second
}

// ScanHorizon devuelve cuánto hacia adelante mira el scorer.
func (c *Config) ScanHorizon() time.Duration {
	return time.Duration(c.Trader.HoursAhead) * time.Hour
}

// Cooldown devuelve la ventana de cooldown por ticker+side.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Trader.CooldownSeconds) * time.Second
}

// MaxHold devuelve el tiempo máximo de tenencia de una posición.
func (c *Config) MaxHold() time.Duration {
	return time.Duration(c.Exits.MaxHoldSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes. Las credenciales nunca deberían vivir en el YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KALSHI_ENV"); v != "" {
		cfg.Kalshi.Environment = v
	}
	if v := os.Getenv("KALSHI_ACCESS_KEY_ID"); v != "" {
		cfg.Kalshi.AccessKeyID = v
	}
	if v := os.Getenv("KALSHI_PRIVATE_KEY_PATH"); v != "" {
		cfg.Kalshi.PrivateKeyPath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if len(cfg.Trader.AllowPrefixes) == 0 {
		cfg.Trader.AllowPrefixes = []string{"KXBTC", "KXBTC15M", "KXBTCD", "KXETH"}
	}
	if cfg.Trader.IntervalSeconds <= 0 {
		cfg.Trader.IntervalSeconds = 120
	}
	if cfg.Trader.HoursAhead <= 0 {
		cfg.Trader.HoursAhead = 8
	}
	if cfg.Trader.CandidatesToCheck <= 0 {
		cfg.Trader.CandidatesToCheck = 25
	}
	if cfg.Trader.CooldownSeconds <= 0 {
		cfg.Trader.CooldownSeconds = 90
	}
	if cfg.Trader.MaxPositionPerTicker <= 0 {
		cfg.Trader.MaxPositionPerTicker = 80
	}
	if cfg.Trader.MaxBTCExposureCents <= 0 {
		cfg.Trader.MaxBTCExposureCents = 2000
	}
	if cfg.Trader.MaxETHExposureCents <= 0 {
		cfg.Trader.MaxETHExposureCents = 2000
	}
	if cfg.Trader.MinEdgeBps <= 0 {
		cfg.Trader.MinEdgeBps = 12
	}
	if cfg.Trader.MomentumThresholdBps <= 0 {
		cfg.Trader.MomentumThresholdBps = 4
	}
	if cfg.Trader.MinMktProbUp <= 0 {
		cfg.Trader.MinMktProbUp = 0.12
	}
	if cfg.Trader.MaxMktProbUp <= 0 {
		cfg.Trader.MaxMktProbUp = 0.88
	}
	if cfg.Trader.MinMktProbRange <= 0 {
		cfg.Trader.MinMktProbRange = cfg.Trader.MinMktProbUp
	}
	if cfg.Trader.MaxMktProbRange <= 0 {
		cfg.Trader.MaxMktProbRange = cfg.Trader.MaxMktProbUp
	}
	if cfg.Trader.RangeNearPct <= 0 {
		cfg.Trader.RangeNearPct = 0.02
	}
	if cfg.Trader.MaxSpreadCents <= 0 {
		cfg.Trader.MaxSpreadCents = 10
	}
	if cfg.Trader.MaxEntryPriceCents <= 0 {
		cfg.Trader.MaxEntryPriceCents = 30
	}
	if cfg.Trader.MinExitBidCents <= 0 {
		cfg.Trader.MinExitBidCents = 1
	}
	if cfg.Trader.MinMinutesToClose <= 0 {
		cfg.Trader.MinMinutesToClose = 1.5
	}
	if cfg.Trader.MinTopQty <= 0 {
		cfg.Trader.MinTopQty = 50
	}
	if cfg.Trader.DepthWithinCents <= 0 {
		cfg.Trader.DepthWithinCents = 2
	}
	if cfg.Trader.MinDepthWithinQty <= 0 {
		cfg.Trader.MinDepthWithinQty = 50
	}
	if cfg.Trader.TopQtyFraction <= 0 {
		cfg.Trader.TopQtyFraction = 0.30
	}
	if cfg.Trader.OrderbookDepth <= 0 {
		cfg.Trader.OrderbookDepth = 5
	}
	if cfg.Trader.RejectLogTopN <= 0 {
		cfg.Trader.RejectLogTopN = 3
	}
	if cfg.Trader.HeartbeatEveryLoops <= 0 {
		cfg.Trader.HeartbeatEveryLoops = 5
	}

	if cfg.Fair.SensitivityK <= 0 {
		cfg.Fair.SensitivityK = 0.8
	}
	if cfg.Fair.MomentumLookbackSecs <= 0 {
		cfg.Fair.MomentumLookbackSecs = 120
	}
	if cfg.Fair.VolWindowSeconds <= 0 {
		cfg.Fair.VolWindowSeconds = 300
	}
	if cfg.Fair.VolDampBps <= 0 {
		cfg.Fair.VolDampBps = 50
	}
	if cfg.Fair.MaxShiftProb <= 0 {
		cfg.Fair.MaxShiftProb = 0.03
	}
	if cfg.Fair.DefaultVolBps <= 0 {
		cfg.Fair.DefaultVolBps = 60
	}
	if cfg.Fair.SpotSeriesMaxSamples <= 0 {
		cfg.Fair.SpotSeriesMaxSamples = 5000
	}

	if cfg.Risk.MaxCostPerTradeCents <= 0 {
		cfg.Risk.MaxCostPerTradeCents = 200
	}
	if cfg.Risk.DailyMaxCostCents <= 0 {
		cfg.Risk.DailyMaxCostCents = 500
	}
	if cfg.Risk.CashBufferCents <= 0 {
		cfg.Risk.CashBufferCents = 25
	}
	// Negativo desactiva el modo lotería (rechazo duro fuera de banda);
	// solo el cero sin configurar recibe el default.
	if cfg.Risk.LotteryMaxCostCents < 0 {
		cfg.Risk.LotteryMaxCostCents = 0
	} else if cfg.Risk.LotteryMaxCostCents == 0 {
		cfg.Risk.LotteryMaxCostCents = 300
	}

	if cfg.Exits.EdgeEpsBps <= 0 {
		cfg.Exits.EdgeEpsBps = 4
	}
	if cfg.Exits.MaxHoldSeconds <= 0 {
		cfg.Exits.MaxHoldSeconds = 900
	}
	if cfg.Exits.Enabled {
		if cfg.Exits.TakeProfitCents <= 0 {
			cfg.Exits.TakeProfitCents = 100
		}
		if cfg.Exits.StopLossCents == 0 {
			cfg.Exits.StopLossCents = 150
		}
	}
	if cfg.Exits.MaxPositionsPerTick <= 0 {
		cfg.Exits.MaxPositionsPerTick = 50
	}

	if cfg.Kalshi.Environment == "" {
		cfg.Kalshi.Environment = "demo"
	}
	if cfg.Feed.SpotURL == "" {
		cfg.Feed.SpotURL = "https://api.coinbase.com/v2/prices/BTC-USD/spot"
	}
	if cfg.Storage.LedgerPath == "" {
		cfg.Storage.LedgerPath = "data/trades.sqlite"
	}
	if cfg.Storage.DayStatePath == "" {
		cfg.Storage.DayStatePath = "data/day_state.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza combinaciones que harían tradear con semántica rota.
func (c *Config) validate() error {
	switch strings.ToLower(c.Kalshi.Environment) {
	case "demo", "prod":
	default:
		return fmt.Errorf("kalshi.environment debe ser demo o prod, no %q", c.Kalshi.Environment)
	}
	if c.Trader.MinMktProbUp >= c.Trader.MaxMktProbUp {
		return fmt.Errorf("banda de probabilidad up inválida [%v, %v]", c.Trader.MinMktProbUp, c.Trader.MaxMktProbUp)
	}
	if c.Trader.MinMktProbRange >= c.Trader.MaxMktProbRange {
		return fmt.Errorf("banda de probabilidad range inválida [%v, %v]", c.Trader.MinMktProbRange, c.Trader.MaxMktProbRange)
	}
	if c.Trader.TopQtyFraction > 1 {
		return fmt.Errorf("top_qty_fraction debe ser <= 1, no %v", c.Trader.TopQtyFraction)
	}
	return nil
}
