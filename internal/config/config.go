package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config is the process configuration, loaded once at startup from the
// environment.
type Config struct {
	Env  string
	Addr string

	// Stores. Empty values fall back to in-memory implementations.
	RedisURL    string
	DatabaseURL string
	LogSQL      bool

	// Auth. TokenSecret is required and never logged.
	TokenSecret   string
	ProofDomain   string
	ChallengeTTL  time.Duration
	TokenTTL      time.Duration
	MaxProofDrift time.Duration

	// Catalog.
	UploadsDir        string
	MaxImageBytes     int64
	MaxImageDimension int
	PlatformFee       decimal.Decimal

	// HTTP.
	RateWindow time.Duration
	RateMax    int
}

// Load reads the configuration from the environment. Missing TOKEN_SECRET
// is fatal.
func Load() Config {
	return Config{
		Env:  getenv("MARKETD_ENV", "development"),
		Addr: getenv("ADDR", ":4000"),

		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogSQL:      getbool("LOG_SQL", false),

		TokenSecret:   must("TOKEN_SECRET"),
		ProofDomain:   getenv("TON_PROOF_DOMAIN", "web3market.shop"),
		ChallengeTTL:  getdur("CHALLENGE_TTL", 5*time.Minute),
		TokenTTL:      getdur("TOKEN_TTL", 30*24*time.Hour),
		MaxProofDrift: getdur("MAX_PROOF_DRIFT", 5*time.Minute),

		UploadsDir:        getenv("UPLOADS_DIR", "./uploads"),
		MaxImageBytes:     getint64("MAX_IMAGE_BYTES", 600*1024),
		MaxImageDimension: int(getint64("MAX_IMAGE_DIMENSION", 600)),
		PlatformFee:       getdec("PLATFORM_FEE", decimal.NewFromFloat(0.03)),

		RateWindow: getdur("RATE_LIMIT_WINDOW", time.Minute),
		RateMax:    int(getint64("RATE_LIMIT_MAX", 100)),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Warn().Str("key", k).Str("value", v).Dur("default", def).Msg("invalid duration, using default")
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
	}
	return def
}

func getdec(k string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(k); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
		log.Warn().Str("key", k).Str("value", v).Msg("invalid decimal, using default")
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatal().Str("key", k).Msg("missing required env")
	}
	return v
}
