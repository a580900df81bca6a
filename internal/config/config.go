// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
}

// EngineConfig tunes graph refresh and cycle search.
type EngineConfig struct {
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	RefreshWorkers   int           `mapstructure:"refresh_workers"`
	EdgeTimeout      time.Duration `mapstructure:"edge_timeout"`
	RefreshFees      bool          `mapstructure:"refresh_fees"`
	MaxCycleLength   int           `mapstructure:"max_cycle_length"`
	MaxCycles        int           `mapstructure:"max_cycles"`
	CycleCacheSize   int           `mapstructure:"cycle_cache_size"`
	HistorySize      int           `mapstructure:"history_size"`
	MinProfitPct     float64       `mapstructure:"min_profit_pct"`
	StartAssets      []string      `mapstructure:"start_assets"`
	DefaultTradeFee  float64       `mapstructure:"default_trade_fee"`
	DefaultLiquidity float64       `mapstructure:"default_liquidity"`
}

// TransferConfig is the default fee/time table for cross-venue transfers.
type TransferConfig struct {
	DefaultFee      float64            `mapstructure:"default_fee"`
	StablecoinFee   float64            `mapstructure:"stablecoin_fee"`
	DefaultTime     time.Duration      `mapstructure:"default_time"`
	SameNetworkTime time.Duration      `mapstructure:"same_network_time"`
	Fees            map[string]float64 `mapstructure:"fees"`
	Stablecoins     []string           `mapstructure:"stablecoins"`
}

// ExecutionConfig controls automatic execution by the detector.
type ExecutionConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	TradeAmount float64 `mapstructure:"trade_amount"`
}

// TradeAmountDecimal returns the configured amount as a decimal.
func (c ExecutionConfig) TradeAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TradeAmount)
}

// GuardConfig configures per-venue rate limiting and circuit breaking.
type GuardConfig struct {
	RequestsPerMinute   int           `mapstructure:"requests_per_minute"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

// VenueConfig describes a paper venue.
type VenueConfig struct {
	ID             string             `mapstructure:"id"`
	Kind           string             `mapstructure:"kind"`
	Network        string             `mapstructure:"network"`
	// Fee is nil when the venue does not report one.
	Fee            *float64           `mapstructure:"fee"`
	Liquidity      float64            `mapstructure:"liquidity"`
	Markets        []MarketConfig     `mapstructure:"markets"`
	Assets         []string           `mapstructure:"assets"`
	WithdrawalFees map[string]float64 `mapstructure:"withdrawal_fees"`
	WithdrawalTime time.Duration      `mapstructure:"withdrawal_time"`
	Balances       map[string]float64 `mapstructure:"balances"`
}

// MarketConfig is one quoted pair on a paper venue.
// Bid and Ask are quote units per base unit.
type MarketConfig struct {
	Pair      string  `mapstructure:"pair"`
	Bid       float64 `mapstructure:"bid"`
	Ask       float64 `mapstructure:"ask"`
	Fee       *float64 `mapstructure:"fee"`
	Liquidity float64  `mapstructure:"liquidity"`
}

// ReportingConfig holds opportunity reporting sinks.
type ReportingConfig struct {
	Console    bool          `mapstructure:"console"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("crossarb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CROSSARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "CROSSARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "CROSSARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "CROSSARB_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.log_file", "CROSSARB_LOG_FILE")

	v.BindEnv("engine.min_profit_pct", "CROSSARB_MIN_PROFIT_PCT")
	v.BindEnv("engine.refresh_interval", "CROSSARB_REFRESH_INTERVAL")

	v.BindEnv("execution.enabled", "CROSSARB_EXECUTE")
	v.BindEnv("execution.trade_amount", "CROSSARB_TRADE_AMOUNT")

	v.BindEnv("reporting.webhook_url", "CROSSARB_WEBHOOK_URL")

	v.BindEnv("telemetry.enabled", "CROSSARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CROSSARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "CROSSARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "crossarb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("engine.refresh_interval", "60s")
	v.SetDefault("engine.refresh_workers", 8)
	v.SetDefault("engine.edge_timeout", "10s")
	v.SetDefault("engine.refresh_fees", true)
	v.SetDefault("engine.max_cycle_length", 5)
	v.SetDefault("engine.max_cycles", 100)
	v.SetDefault("engine.cycle_cache_size", 64)
	v.SetDefault("engine.history_size", 100)
	v.SetDefault("engine.min_profit_pct", 0.5)
	v.SetDefault("engine.start_assets", []string{"USDT"})
	v.SetDefault("engine.default_trade_fee", 0.001)
	v.SetDefault("engine.default_liquidity", 1.0)

	v.SetDefault("transfer.default_fee", 0.005)
	v.SetDefault("transfer.stablecoin_fee", 0.001)
	v.SetDefault("transfer.default_time", "600s")
	v.SetDefault("transfer.same_network_time", "10s")
	v.SetDefault("transfer.fees", map[string]float64{"BTC": 0.0005, "ETH": 0.0005})
	v.SetDefault("transfer.stablecoins", []string{"USDT", "USDC", "DAI", "BUSD", "TUSD"})

	v.SetDefault("execution.enabled", false)
	v.SetDefault("execution.trade_amount", 100)

	v.SetDefault("guard.requests_per_minute", 600)
	v.SetDefault("guard.consecutive_failures", 5)
	v.SetDefault("guard.open_timeout", "30s")

	v.SetDefault("reporting.console", true)
	v.SetDefault("reporting.timeout", "5s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "crossarb")
	v.SetDefault("telemetry.trace_provider", "ZIPKIN_PROVIDER")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// normalize upper-cases asset symbols. Viper lower-cases map keys.
func (c *Config) normalize() {
	c.Engine.StartAssets = upperAll(c.Engine.StartAssets)
	c.Transfer.Stablecoins = upperAll(c.Transfer.Stablecoins)
	c.Transfer.Fees = upperKeys(c.Transfer.Fees)

	for i := range c.Venues {
		v := &c.Venues[i]
		v.Assets = upperAll(v.Assets)
		v.WithdrawalFees = upperKeys(v.WithdrawalFees)
		v.Balances = upperKeys(v.Balances)
		for j := range v.Markets {
			v.Markets[j].Pair = strings.ToUpper(v.Markets[j].Pair)
		}
	}
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func upperKeys(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[strings.ToUpper(k)] = v
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.MaxCycleLength < 3 {
		return fmt.Errorf("engine.max_cycle_length must be at least 3, got %d", c.Engine.MaxCycleLength)
	}
	if c.Engine.MaxCycles <= 0 {
		return fmt.Errorf("engine.max_cycles must be positive")
	}
	if c.Engine.RefreshWorkers <= 0 {
		return fmt.Errorf("engine.refresh_workers must be positive")
	}
	if len(c.Engine.StartAssets) == 0 {
		return fmt.Errorf("engine.start_assets cannot be empty")
	}
	if c.Engine.DefaultTradeFee < 0 || c.Engine.DefaultTradeFee >= 1 {
		return fmt.Errorf("engine.default_trade_fee must be in [0, 1)")
	}
	if c.Execution.Enabled && c.Execution.TradeAmount <= 0 {
		return fmt.Errorf("execution.trade_amount must be positive when execution is enabled")
	}

	seen := make(map[string]bool, len(c.Venues))
	for i, v := range c.Venues {
		if v.ID == "" {
			return fmt.Errorf("venues[%d].id is required", i)
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate venue id %q", v.ID)
		}
		seen[v.ID] = true
		if v.Kind != "cex" && v.Kind != "dex" {
			return fmt.Errorf("venues[%d].kind must be cex or dex, got %q", i, v.Kind)
		}
		if len(v.Markets) == 0 {
			return fmt.Errorf("venue %q has no markets", v.ID)
		}
		if !validFee(v.Fee) {
			return fmt.Errorf("venue %q fee must be in [0, 1)", v.ID)
		}
		for _, m := range v.Markets {
			if !validFee(m.Fee) {
				return fmt.Errorf("venue %q market %s fee must be in [0, 1)", v.ID, m.Pair)
			}
		}
	}

	return nil
}

func validFee(f *float64) bool {
	return f == nil || (*f >= 0 && *f < 1)
}
