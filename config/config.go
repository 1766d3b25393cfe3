package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Angel One credentials
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Universe (comma-separated tickers, e.g. "SBIN,INFY,TCS")
	Tickers string

	// Strategy parameters
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	MAShortWindow int
	MALongWindow  int

	// ML gate
	MLServiceURL    string
	MLMinConfidence float64

	// Position sizing and costs
	TradeNotional  float64
	CommissionRate float64

	// Telegram
	TelegramBotToken string
	TelegramChatID   string

	// Export
	TradeLogPath string
}

// Load reads configuration from environment variables with sensible defaults.
// Broker credentials are only required by commands that fetch market data;
// those call MustBrokerCreds explicitly.
func Load() *Config {
	return &Config{
		AngelAPIKey:     getEnv("ANGEL_API_KEY", ""),
		AngelClientCode: getEnv("ANGEL_CLIENT_CODE", ""),
		AngelPassword:   getEnv("ANGEL_PASSWORD", ""),
		AngelTOTPSecret: getEnv("ANGEL_TOTP_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8081"),

		Tickers: getEnv("TICKERS", "SBIN,INFY,TCS,RELIANCE,HDFCBANK"),

		RSIPeriod:     getEnvInt("RSI_PERIOD", 14),
		RSIOversold:   getEnvFloat("RSI_OVERSOLD", 30),
		RSIOverbought: getEnvFloat("RSI_OVERBOUGHT", 70),
		MAShortWindow: getEnvInt("MA_SHORT_WINDOW", 20),
		MALongWindow:  getEnvInt("MA_LONG_WINDOW", 50),

		MLServiceURL:    getEnv("ML_SERVICE_URL", ""),
		MLMinConfidence: getEnvFloat("ML_MIN_CONFIDENCE", 0),

		TradeNotional:  getEnvFloat("TRADE_NOTIONAL", 100000),
		CommissionRate: getEnvFloat("COMMISSION_RATE", 0),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		TradeLogPath: getEnv("TRADE_LOG_PATH", "data/trades.csv"),
	}
}

// ParseTickers splits the Tickers string into a cleaned slice.
func (c *Config) ParseTickers() []string {
	parts := strings.Split(c.Tickers, ",")
	tickers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tickers = append(tickers, strings.ToUpper(p))
	}
	return tickers
}

// MustBrokerCreds exits if any Angel One credential is missing.
func (c *Config) MustBrokerCreds() {
	if c.AngelAPIKey == "" || c.AngelClientCode == "" || c.AngelPassword == "" || c.AngelTOTPSecret == "" {
		log.Fatal("[config] ANGEL_API_KEY, ANGEL_CLIENT_CODE, ANGEL_PASSWORD and ANGEL_TOTP_SECRET must be set")
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
