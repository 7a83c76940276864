package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	AnalysisConfig     AnalysisConfig     `json:"analysis"`
	TradingConfig      TradingConfig      `json:"trading"`
	AlertsConfig       AlertsConfig       `json:"alerts"`
	MarketDataConfig   MarketDataConfig   `json:"market_data"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	NotificationConfig NotificationConfig `json:"notification"`
	ServerConfig       ServerConfig       `json:"server"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// AnalysisConfig controls which symbols and timeframes are scored and how
// the per-interval scores are combined.
type AnalysisConfig struct {
	Symbols               []string           `json:"symbols"`
	Intervals             []string           `json:"intervals"`
	TimeframeWeights      map[string]float64 `json:"timeframe_weights"`
	ReferenceInterval     string             `json:"reference_interval"` // interval used for S/R, ATR, swings
	UpdateIntervalMinutes int                `json:"update_interval_minutes"`
	CandleFetchLimit      int                `json:"candle_fetch_limit"`
	MaxCandlesStored      int                `json:"max_candles_stored"` // retention per (symbol, interval)
	CacheTTLSeconds       int                `json:"cache_ttl_seconds"`
}

type TradingConfig struct {
	Enabled               bool    `json:"enabled"`
	AccountBalance        float64 `json:"account_balance"`
	RiskPerTradePercent   float64 `json:"risk_per_trade_percent"`
	DailyLossLimitPercent float64 `json:"daily_loss_limit_percent"`
	MaxOpenPositions      int     `json:"max_open_positions"`
	MaxTradesPerHour      int     `json:"max_trades_per_hour"`
	TradeCooldownSeconds  int     `json:"trade_cooldown_seconds"`
	TimeExitSeconds       int     `json:"time_exit_seconds"`
	MinADX                float64 `json:"min_adx"`              // below this the market is considered choppy
	ATRSpikeMultiplier    float64 `json:"atr_spike_multiplier"` // ATR above this multiple of its average blocks entries
}

type AlertsConfig struct {
	Enabled         bool    `json:"enabled"`
	ScoreDeviation  float64 `json:"score_deviation"` // |master score - 50| beyond this fires STRONG_BUY/STRONG_SELL
	RSIOverbought   float64 `json:"rsi_overbought"`
	RSIOversold     float64 `json:"rsi_oversold"`
	CooldownSeconds int     `json:"cooldown_seconds"`
}

type MarketDataConfig struct {
	BaseURL  string `json:"base_url"`
	MockMode bool   `json:"mock_mode"` // use simulated data when the exchange API is unavailable
}

type DatabaseConfig struct {
	URL string `json:"url"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Ntfy     NtfyConfig     `json:"ntfy"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type NtfyConfig struct {
	Enabled   bool   `json:"enabled"`
	ServerURL string `json:"server_url"`
	Topic     string `json:"topic"`
}

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	AllowedOrigins string `json:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

func Load(path string) (*Config, error) {
	cfg, err := loadFromFile(path)
	if err != nil {
		// No config file is fine, defaults + environment cover everything.
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
	if len(cfg.AnalysisConfig.Symbols) == 0 {
		cfg.AnalysisConfig.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	if len(cfg.AnalysisConfig.Intervals) == 0 {
		cfg.AnalysisConfig.Intervals = []string{"15m", "1h", "4h", "1d"}
	}
	if len(cfg.AnalysisConfig.TimeframeWeights) == 0 {
		cfg.AnalysisConfig.TimeframeWeights = map[string]float64{
			"15m": 0.15,
			"1h":  0.25,
			"4h":  0.30,
			"1d":  0.30,
		}
	}
	if cfg.AnalysisConfig.ReferenceInterval == "" {
		cfg.AnalysisConfig.ReferenceInterval = "1h"
	}
	if cfg.AnalysisConfig.UpdateIntervalMinutes <= 0 {
		cfg.AnalysisConfig.UpdateIntervalMinutes = 5
	}
	if cfg.AnalysisConfig.CandleFetchLimit <= 0 {
		cfg.AnalysisConfig.CandleFetchLimit = 150
	}
	if cfg.AnalysisConfig.MaxCandlesStored <= 0 {
		cfg.AnalysisConfig.MaxCandlesStored = 500
	}
	if cfg.AnalysisConfig.CacheTTLSeconds <= 0 {
		cfg.AnalysisConfig.CacheTTLSeconds = 60
	}

	if cfg.TradingConfig.AccountBalance <= 0 {
		cfg.TradingConfig.AccountBalance = 10000
	}
	if cfg.TradingConfig.RiskPerTradePercent <= 0 {
		cfg.TradingConfig.RiskPerTradePercent = 1.5
	}
	if cfg.TradingConfig.DailyLossLimitPercent <= 0 {
		cfg.TradingConfig.DailyLossLimitPercent = 4.0
	}
	if cfg.TradingConfig.MaxOpenPositions <= 0 {
		cfg.TradingConfig.MaxOpenPositions = 3
	}
	if cfg.TradingConfig.MaxTradesPerHour <= 0 {
		cfg.TradingConfig.MaxTradesPerHour = 2
	}
	if cfg.TradingConfig.TradeCooldownSeconds <= 0 {
		cfg.TradingConfig.TradeCooldownSeconds = 600
	}
	if cfg.TradingConfig.TimeExitSeconds <= 0 {
		cfg.TradingConfig.TimeExitSeconds = 14400
	}
	if cfg.TradingConfig.MinADX <= 0 {
		cfg.TradingConfig.MinADX = 20
	}
	if cfg.TradingConfig.ATRSpikeMultiplier <= 0 {
		cfg.TradingConfig.ATRSpikeMultiplier = 2.0
	}

	if cfg.AlertsConfig.ScoreDeviation <= 0 {
		cfg.AlertsConfig.ScoreDeviation = 15
	}
	if cfg.AlertsConfig.RSIOverbought <= 0 {
		cfg.AlertsConfig.RSIOverbought = 70
	}
	if cfg.AlertsConfig.RSIOversold <= 0 {
		cfg.AlertsConfig.RSIOversold = 30
	}
	if cfg.AlertsConfig.CooldownSeconds <= 0 {
		cfg.AlertsConfig.CooldownSeconds = 300
	}

	if cfg.MarketDataConfig.BaseURL == "" {
		cfg.MarketDataConfig.BaseURL = "https://api.binance.com"
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize <= 0 {
		cfg.RedisConfig.PoolSize = 10
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.Port <= 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.MarketDataConfig.BaseURL = getEnvOrDefault("MARKET_DATA_BASE_URL", cfg.MarketDataConfig.BaseURL)
	if v := os.Getenv("MOCK_MODE"); v != "" {
		cfg.MarketDataConfig.MockMode = v == "true"
	}

	cfg.DatabaseConfig.URL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseConfig.URL)

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	if v := os.Getenv("TRADING_ENABLED"); v != "" {
		cfg.TradingConfig.Enabled = v == "true"
	}
	cfg.TradingConfig.AccountBalance = getEnvFloatOrDefault("ACCOUNT_BALANCE", cfg.TradingConfig.AccountBalance)

	if v := os.Getenv("NOTIFICATIONS_ENABLED"); v != "" {
		cfg.NotificationConfig.Enabled = v == "true"
	}
	if v := os.Getenv("TELEGRAM_ENABLED"); v != "" {
		cfg.NotificationConfig.Telegram.Enabled = v == "true"
	}
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	if v := os.Getenv("NTFY_ENABLED"); v != "" {
		cfg.NotificationConfig.Ntfy.Enabled = v == "true"
	}
	cfg.NotificationConfig.Ntfy.ServerURL = getEnvOrDefault("NTFY_SERVER_URL", cfg.NotificationConfig.Ntfy.ServerURL)
	cfg.NotificationConfig.Ntfy.Topic = getEnvOrDefault("NTFY_TOPIC", cfg.NotificationConfig.Ntfy.Topic)

	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		cfg.LoggingConfig.Pretty = v == "true"
	}
}

func (c *Config) Validate() error {
	for _, interval := range c.AnalysisConfig.Intervals {
		if _, ok := c.AnalysisConfig.TimeframeWeights[interval]; !ok {
			return fmt.Errorf("interval %s has no timeframe weight", interval)
		}
	}
	if c.TradingConfig.RiskPerTradePercent >= 100 {
		return fmt.Errorf("risk_per_trade_percent %.2f is not a valid percentage", c.TradingConfig.RiskPerTradePercent)
	}
	return nil
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
