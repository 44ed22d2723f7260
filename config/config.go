package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"spot-rotation-bot/internal/screener"
)

type Config struct {
	BinanceConfig      BinanceConfig      `json:"binance"`
	StrategyConfig     StrategyConfig     `json:"strategy"`
	ScreenerConfig     ScreenerConfig     `json:"screener"`
	TradingConfig      TradingConfig      `json:"trading"`
	ScannerConfig      ScannerConfig      `json:"scanner"`
	RiskConfig         RiskConfig         `json:"risk"`
	NotificationConfig NotificationConfig `json:"notification"`
	ServerConfig       ServerConfig       `json:"server"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

type BinanceConfig struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	TestNet   bool   `json:"testnet"`
}

// StrategyConfig selects one of the scoring strategies and its parameters.
type StrategyConfig struct {
	Variant       string  `json:"variant"`        // "beauty", "mania", "pullback"
	Alpha         float64 `json:"alpha"`          // beauty: weight on 24h change vs volume
	ShortWindow   int     `json:"short_window"`   // short moving average period
	LongWindow    int     `json:"long_window"`    // long moving average period
	RSIPeriod     int     `json:"rsi_period"`
	RSIOverbought float64 `json:"rsi_overbought"` // mania: overbought threshold
	ManiaFactor   float64 `json:"mania_factor"`   // mania: long MA inflation factor
	PullbackPct   float64 `json:"pullback_pct"`   // pullback: retrace fraction from extreme
	TopN          int     `json:"top_n"`          // portfolio size for ranking strategies
}

type ScreenerConfig struct {
	QuoteAsset           string   `json:"quote_asset"`     // "USDT", "BTC", etc.
	MinQuoteVolume       float64  `json:"min_quote_volume"` // Minimum 24h quote volume
	ExcludeBases         []string `json:"exclude_bases"`    // Base assets to skip; empty means the stablecoin default set
	RequirePositiveChange bool    `json:"require_positive_change"` // Forced on for ranking variants; opt-in for directional
}

type TradingConfig struct {
	DryRun            bool     `json:"dry_run"`            // Paper trading, no real orders
	TradeCapital      float64  `json:"trade_capital"`      // Quote currency budget split across TopN
	TradeQuantity     float64  `json:"trade_quantity"`     // Fixed base quantity override (0 = use capital)
	FallbackPrecision int      `json:"fallback_precision"` // Quantity decimals when exchange info unavailable
	Symbols           []string `json:"symbols"`            // Restrict universe (empty = all)
	TakeProfitPct     float64  `json:"take_profit_pct"`
	StopLossPct       float64  `json:"stop_loss_pct"`
	PollInterval      int      `json:"poll_interval"`  // Seconds between cycles
	ErrorBackoff      int      `json:"error_backoff"`  // Initial backoff seconds after a failed cycle
	MaxBackoff        int      `json:"max_backoff"`    // Backoff ceiling in seconds
	CallTimeout       int      `json:"call_timeout"`   // Seconds per exchange call
}

type ScannerConfig struct {
	Interval    string `json:"interval"`     // Candle interval, e.g. "15m", "1h"
	CandleLimit int    `json:"candle_limit"` // Candles fetched per symbol
	WorkerCount int    `json:"worker_count"` // Concurrent worker count
}

type RiskConfig struct {
	// MaxOpenPositions caps concurrent positions beyond TopN; 0 means no
	// cap. Per-position TP/SL lives in TradingConfig.
	MaxOpenPositions int `json:"max_open_positions"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type ServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

func Load(path string) (*Config, error) {
	cfg, err := loadFromFile(path)
	if err != nil {
		// No config file: start from defaults plus environment.
		cfg = &Config{}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.StrategyConfig.Variant == "" {
		cfg.StrategyConfig.Variant = "beauty"
	}
	if cfg.StrategyConfig.Alpha == 0 {
		cfg.StrategyConfig.Alpha = 0.7
	}
	if cfg.StrategyConfig.ShortWindow == 0 {
		cfg.StrategyConfig.ShortWindow = 7
	}
	if cfg.StrategyConfig.LongWindow == 0 {
		cfg.StrategyConfig.LongWindow = 25
	}
	if cfg.StrategyConfig.RSIPeriod == 0 {
		cfg.StrategyConfig.RSIPeriod = 14
	}
	if cfg.StrategyConfig.RSIOverbought == 0 {
		cfg.StrategyConfig.RSIOverbought = 75
	}
	if cfg.StrategyConfig.ManiaFactor == 0 {
		cfg.StrategyConfig.ManiaFactor = 1.20
	}
	if cfg.StrategyConfig.PullbackPct == 0 {
		cfg.StrategyConfig.PullbackPct = 0.003
	}
	if cfg.StrategyConfig.TopN == 0 {
		cfg.StrategyConfig.TopN = 5
	}

	if cfg.ScreenerConfig.QuoteAsset == "" {
		cfg.ScreenerConfig.QuoteAsset = "USDT"
	}
	if cfg.ScreenerConfig.MinQuoteVolume == 0 {
		cfg.ScreenerConfig.MinQuoteVolume = 1_000_000
	}
	if len(cfg.ScreenerConfig.ExcludeBases) == 0 {
		cfg.ScreenerConfig.ExcludeBases = append([]string(nil), screener.DefaultExcludedBases...)
	}

	if cfg.TradingConfig.TradeCapital == 0 {
		cfg.TradingConfig.TradeCapital = 1000
	}
	if cfg.TradingConfig.FallbackPrecision == 0 {
		cfg.TradingConfig.FallbackPrecision = 6
	}
	if cfg.TradingConfig.TakeProfitPct == 0 {
		cfg.TradingConfig.TakeProfitPct = 0.05
	}
	if cfg.TradingConfig.StopLossPct == 0 {
		cfg.TradingConfig.StopLossPct = 0.01
	}
	if cfg.TradingConfig.PollInterval == 0 {
		cfg.TradingConfig.PollInterval = 3600
	}
	if cfg.TradingConfig.ErrorBackoff == 0 {
		cfg.TradingConfig.ErrorBackoff = 60
	}
	if cfg.TradingConfig.MaxBackoff == 0 {
		cfg.TradingConfig.MaxBackoff = 900
	}
	if cfg.TradingConfig.CallTimeout == 0 {
		cfg.TradingConfig.CallTimeout = 15
	}

	if cfg.ScannerConfig.Interval == "" {
		cfg.ScannerConfig.Interval = "1h"
	}
	if cfg.ScannerConfig.CandleLimit == 0 {
		cfg.ScannerConfig.CandleLimit = 100
	}
	if cfg.ScannerConfig.WorkerCount == 0 {
		cfg.ScannerConfig.WorkerCount = 8
	}

	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.BinanceConfig.APIKey = getEnvOrDefault("BINANCE_API_KEY", cfg.BinanceConfig.APIKey)
	cfg.BinanceConfig.SecretKey = getEnvOrDefault("BINANCE_SECRET_KEY", cfg.BinanceConfig.SecretKey)
	if v := os.Getenv("BINANCE_TESTNET"); v != "" {
		cfg.BinanceConfig.TestNet = v == "true"
	}

	cfg.StrategyConfig.Variant = getEnvOrDefault("STRATEGY_VARIANT", cfg.StrategyConfig.Variant)
	cfg.StrategyConfig.Alpha = getEnvFloatOrDefault("STRATEGY_ALPHA", cfg.StrategyConfig.Alpha)
	cfg.StrategyConfig.TopN = getEnvIntOrDefault("STRATEGY_TOP_N", cfg.StrategyConfig.TopN)

	if v := os.Getenv("TRADING_DRY_RUN"); v != "" {
		cfg.TradingConfig.DryRun = v == "true"
	}
	cfg.TradingConfig.TradeCapital = getEnvFloatOrDefault("TRADING_CAPITAL", cfg.TradingConfig.TradeCapital)
	cfg.TradingConfig.TakeProfitPct = getEnvFloatOrDefault("TRADING_TAKE_PROFIT_PCT", cfg.TradingConfig.TakeProfitPct)
	cfg.TradingConfig.StopLossPct = getEnvFloatOrDefault("TRADING_STOP_LOSS_PCT", cfg.TradingConfig.StopLossPct)
	cfg.TradingConfig.PollInterval = getEnvIntOrDefault("TRADING_POLL_INTERVAL", cfg.TradingConfig.PollInterval)
	if v := os.Getenv("TRADING_SYMBOLS"); v != "" {
		cfg.TradingConfig.Symbols = splitCSV(v)
	}

	if v := os.Getenv("NOTIFICATIONS_ENABLED"); v != "" {
		cfg.NotificationConfig.Enabled = v == "true"
	}
	if v := os.Getenv("TELEGRAM_ENABLED"); v != "" {
		cfg.NotificationConfig.Telegram.Enabled = v == "true"
	}
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	if v := os.Getenv("DISCORD_ENABLED"); v != "" {
		cfg.NotificationConfig.Discord.Enabled = v == "true"
	}
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	if v := os.Getenv("API_ENABLED"); v != "" {
		cfg.ServerConfig.Enabled = v == "true"
	}
	cfg.ServerConfig.Port = getEnvIntOrDefault("API_PORT", cfg.ServerConfig.Port)

	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		cfg.DatabaseConfig.Enabled = v == "true"
	}
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DATABASE_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DATABASE_NAME", cfg.DatabaseConfig.Database)

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultString(cfg.LoggingConfig.Output, "stdout"))
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LoggingConfig.JSONFormat = v == "true"
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.StrategyConfig.Variant {
	case "beauty", "mania", "pullback":
	default:
		return fmt.Errorf("unknown strategy variant %q", c.StrategyConfig.Variant)
	}
	if c.StrategyConfig.Alpha < 0 || c.StrategyConfig.Alpha > 1 {
		return fmt.Errorf("strategy alpha must be in [0,1], got %v", c.StrategyConfig.Alpha)
	}
	if c.StrategyConfig.ShortWindow >= c.StrategyConfig.LongWindow {
		return fmt.Errorf("short window (%d) must be less than long window (%d)",
			c.StrategyConfig.ShortWindow, c.StrategyConfig.LongWindow)
	}
	if c.StrategyConfig.RSIPeriod < 2 {
		return fmt.Errorf("rsi period must be at least 2, got %d", c.StrategyConfig.RSIPeriod)
	}
	if c.StrategyConfig.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1, got %d", c.StrategyConfig.TopN)
	}
	if c.TradingConfig.TakeProfitPct <= 0 {
		return fmt.Errorf("take_profit_pct must be positive, got %v", c.TradingConfig.TakeProfitPct)
	}
	if c.TradingConfig.StopLossPct <= 0 {
		return fmt.Errorf("stop_loss_pct must be positive, got %v", c.TradingConfig.StopLossPct)
	}
	if c.TradingConfig.TradeCapital <= 0 && c.TradingConfig.TradeQuantity <= 0 {
		return fmt.Errorf("either trade_capital or trade_quantity must be positive")
	}
	if !c.TradingConfig.DryRun && c.BinanceConfig.APIKey == "" {
		return fmt.Errorf("binance api_key required for live trading")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.TradingConfig.PollInterval) * time.Second
}

func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.TradingConfig.ErrorBackoff) * time.Second
}

func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.TradingConfig.MaxBackoff) * time.Second
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.TradingConfig.CallTimeout) * time.Second
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GenerateSampleConfig writes a starter configuration file.
func GenerateSampleConfig(filename string) error {
	config := Config{
		BinanceConfig: BinanceConfig{
			APIKey:    "your_api_key_here",
			SecretKey: "your_secret_key_here",
			TestNet:   true,
		},
		StrategyConfig: StrategyConfig{
			Variant:       "beauty",
			Alpha:         0.7,
			ShortWindow:   7,
			LongWindow:    25,
			RSIPeriod:     14,
			RSIOverbought: 75,
			ManiaFactor:   1.20,
			PullbackPct:   0.003,
			TopN:          5,
		},
		ScreenerConfig: ScreenerConfig{
			QuoteAsset:            "USDT",
			MinQuoteVolume:        1_000_000,
			ExcludeBases:          append([]string(nil), screener.DefaultExcludedBases...),
			RequirePositiveChange: true,
		},
		TradingConfig: TradingConfig{
			DryRun:            true,
			TradeCapital:      1000,
			FallbackPrecision: 6,
			TakeProfitPct:     0.05,
			StopLossPct:       0.01,
			PollInterval:      3600,
			ErrorBackoff:      60,
			MaxBackoff:        900,
			CallTimeout:       15,
		},
		ScannerConfig: ScannerConfig{
			Interval:    "1h",
			CandleLimit: 100,
			WorkerCount: 8,
		},
		ServerConfig: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			Output:     "stdout",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
