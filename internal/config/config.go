package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fallbacks used when neither flags nor environment provide a value.
// The provider key is a live credential; deployments must override it.
const (
	DefaultProviderURL = "https://motherpanel.com/api/v2"
	DefaultProviderKey = "b0ef21942953387ad901b31cd523fdb8"
	DefaultSecretKey   = "topupbd-dev-secret"
)

type Config struct {
	RunAddress  string
	ProviderURL string
	ProviderKey string

	FXRate         decimal.Decimal
	RateSurcharge  decimal.Decimal
	OrderFee       decimal.Decimal
	FundsMinimum   decimal.Decimal
	FundsSurcharge decimal.Decimal
	FundsDelay     time.Duration

	NagadNumber   string
	BkashNumber   string
	TelegramURL   string
	WhatsAppURL   string
	SupabaseURL   string
	SupabaseKey   string
	DatabaseURI   string
	SecretKey     string
	ProxyRateRPS  int
	ProviderLimit time.Duration
	StateTTL      time.Duration

	Logger *zap.SugaredLogger
}

// Defaults returns a config with every value set to its fallback.
func Defaults() *Config {
	return &Config{
		RunAddress:     "0.0.0.0:3000",
		ProviderURL:    DefaultProviderURL,
		ProviderKey:    DefaultProviderKey,
		FXRate:         decimal.NewFromInt(120),
		RateSurcharge:  decimal.Zero,
		OrderFee:       decimal.Zero,
		FundsMinimum:   decimal.NewFromInt(20),
		FundsSurcharge: decimal.NewFromInt(7),
		FundsDelay:     2 * time.Second,
		NagadNumber:    "01792157184",
		BkashNumber:    "01753567152",
		TelegramURL:    "https://t.me/motherpanel",
		WhatsAppURL:    "https://wa.me/8801792157184",
		SecretKey:      DefaultSecretKey,
		ProviderLimit:  30 * time.Second,
		StateTTL:       24 * time.Hour,
	}
}

func NewConfig() *Config {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{"stdout", "server.log"}

	logger := zap.Must(logCfg.Build())

	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		logger.Sugar().Warnf("load .env: %v", err)
	}

	cfg := Defaults()
	flag.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server address")
	flag.StringVar(&cfg.ProviderURL, "p", cfg.ProviderURL, "Provider API URL")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "DB connection string")
	flag.StringVar(&cfg.SupabaseURL, "s", "", "Supabase project URL")
	flag.Parse()

	cfg.Logger = logger.Sugar()

	ReadServerEnvironment(cfg)

	return cfg
}

func ReadServerEnvironment(cfg *Config) {
	if runAddress := os.Getenv("RUN_ADDRESS"); runAddress != "" {
		cfg.RunAddress = runAddress
	}

	if providerURL := os.Getenv("PROVIDER_URL"); providerURL != "" {
		cfg.ProviderURL = providerURL
	}

	if providerKey := os.Getenv("PROVIDER_KEY"); providerKey != "" {
		cfg.ProviderKey = providerKey
	}

	if databaseURI := os.Getenv("DATABASE_URI"); databaseURI != "" {
		cfg.DatabaseURI = databaseURI
	}

	if supabaseURL := os.Getenv("SUPABASE_URL"); supabaseURL != "" {
		cfg.SupabaseURL = supabaseURL
	}

	if supabaseKey := os.Getenv("SUPABASE_ANON_KEY"); supabaseKey != "" {
		cfg.SupabaseKey = supabaseKey
	}

	if secretKey := os.Getenv("SECRET_KEY"); secretKey != "" {
		cfg.SecretKey = secretKey
	}

	if nagad := os.Getenv("NAGAD_NUMBER"); nagad != "" {
		cfg.NagadNumber = nagad
	}

	if bkash := os.Getenv("BKASH_NUMBER"); bkash != "" {
		cfg.BkashNumber = bkash
	}

	if telegram := os.Getenv("TELEGRAM_URL"); telegram != "" {
		cfg.TelegramURL = telegram
	}

	if whatsapp := os.Getenv("WHATSAPP_URL"); whatsapp != "" {
		cfg.WhatsAppURL = whatsapp
	}

	cfg.FXRate = getEnvAsDecimal("FX_RATE", cfg.FXRate)
	cfg.RateSurcharge = getEnvAsDecimal("RATE_SURCHARGE", cfg.RateSurcharge)
	cfg.OrderFee = getEnvAsDecimal("ORDER_FEE", cfg.OrderFee)
	cfg.FundsMinimum = getEnvAsDecimal("FUNDS_MINIMUM", cfg.FundsMinimum)
	cfg.FundsSurcharge = getEnvAsDecimal("FUNDS_SURCHARGE", cfg.FundsSurcharge)
	cfg.FundsDelay = getEnvAsDuration("FUNDS_DELAY", cfg.FundsDelay)
	cfg.ProviderLimit = getEnvAsDuration("PROVIDER_TIMEOUT", cfg.ProviderLimit)
	cfg.ProxyRateRPS = getEnvAsInt("PROXY_RATE_LIMIT", cfg.ProxyRateRPS)
	cfg.StateTTL = getEnvAsDuration("STATE_TTL", cfg.StateTTL)
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
