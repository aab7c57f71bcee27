package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	APIPort            string
	ClientURL          string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	UpstreamTimeout    time.Duration

	LogLevel  string
	LogFormat string

	StorageDriver string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSslMode     string
	DBConnStr     string
	DBMigrate     bool

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ReviewCacheTTL time.Duration

	JWTKey           []byte
	IdentityJWKSURL  string
	IdentityIssuer   string
	IdentityAudience string

	StripeSecret     string
	StripeAPIURL     string
	CheckoutCurrency string

	RateLimitRPS   int
	RateLimitBurst int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "3000"),
		ClientURL:          strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RequestTimeout:     getEnvAsSeconds("REQUEST_TIMEOUT_SECONDS", 30),
		UpstreamTimeout:    getEnvAsSeconds("UPSTREAM_TIMEOUT_SECONDS", 10),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "user"),
		DBPassword:         getEnv("DB_PASSWORD", "password"),
		DBName:             getEnv("DB_NAME", "scholar_stream_db"),
		DBSslMode:          getEnv("DB_SSLMODE", "disable"),
		DBMigrate:          getEnvAsBool("DB_MIGRATE", true),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		ReviewCacheTTL:     getEnvAsSeconds("REVIEW_CACHE_TTL_SECONDS", 60),
		JWTKey:             []byte(getEnv("JWT_SECRET", "defaultsecret")),
		IdentityJWKSURL:    getEnv("IDENTITY_JWKS_URL", ""),
		IdentityIssuer:     getEnv("IDENTITY_ISSUER", ""),
		IdentityAudience:   getEnv("IDENTITY_AUDIENCE", ""),
		StripeSecret:       getEnv("STRIPE_SECRET", ""),
		StripeAPIURL:       getEnv("STRIPE_API_URL", ""),
		CheckoutCurrency:   strings.ToLower(getEnv("CHECKOUT_CURRENCY", "usd")),
		RateLimitRPS:       getEnvAsInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

// PaymentSuccessURL is where the processor redirects after a completed checkout.
// {CHECKOUT_SESSION_ID} is substituted by the processor.
func (c *Config) PaymentSuccessURL() string {
	return c.ClientURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}"
}

func (c *Config) PaymentCancelURL() string {
	return c.ClientURL + "/payment-failed"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
