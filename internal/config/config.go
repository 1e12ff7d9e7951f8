package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DataSourceSQL    = "sql"
	DataSourceMemory = "memory"

	defaultJWTSecret = "change-me-jwt-secret"
)

var refPrefixPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DataSource       string
	DatabaseURL      string
	DBMaxRetries     int
	DBRetryBaseDelay time.Duration
	DBQueryTimeout   time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	DibsyAPIKey      string
	DibsyBaseURL     string
	DibsyRedirectURL string
	DibsyWebhookURL  string
	PaymentCurrency  string

	EmailAPIKey            string
	EmailBaseURL           string
	EmailFrom              string
	AdminNotificationEmail string

	BookingRefPrefix   string
	BookingRefAttempts int

	CORSAllowedOrigins []string
	HTTPClientTimeout  time.Duration

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATA_SOURCE", DataSourceSQL)
	v.SetDefault("DATABASE_URL", "tourbooking.db")
	v.SetDefault("DB_MAX_RETRIES", 3)
	v.SetDefault("DB_RETRY_BASE_DELAY", "200ms")
	v.SetDefault("DB_QUERY_TIMEOUT", "10s")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("DIBSY_BASE_URL", "https://api.dibsy.one/v2")
	v.SetDefault("PAYMENT_CURRENCY", "EUR")
	v.SetDefault("EMAIL_BASE_URL", "https://api.resend.com")
	v.SetDefault("EMAIL_FROM", "Bookings <bookings@example.com>")
	v.SetDefault("BOOKING_REF_PREFIX", "VDQ")
	v.SetDefault("BOOKING_REF_ATTEMPTS", 5)
	v.SetDefault("HTTP_CLIENT_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		AppEnv:                 strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		HTTPAddr:               strings.TrimSpace(v.GetString("HTTP_ADDR")),
		DataSource:             strings.ToLower(strings.TrimSpace(v.GetString("DATA_SOURCE"))),
		DatabaseURL:            strings.TrimSpace(v.GetString("DATABASE_URL")),
		DBMaxRetries:           v.GetInt("DB_MAX_RETRIES"),
		JWTSecret:              strings.TrimSpace(v.GetString("JWT_SECRET")),
		DibsyAPIKey:            strings.TrimSpace(v.GetString("DIBSY_API_KEY")),
		DibsyBaseURL:           strings.TrimRight(strings.TrimSpace(v.GetString("DIBSY_BASE_URL")), "/"),
		DibsyRedirectURL:       strings.TrimSpace(v.GetString("DIBSY_REDIRECT_URL")),
		DibsyWebhookURL:        strings.TrimSpace(v.GetString("DIBSY_WEBHOOK_URL")),
		PaymentCurrency:        strings.ToUpper(strings.TrimSpace(v.GetString("PAYMENT_CURRENCY"))),
		EmailAPIKey:            strings.TrimSpace(v.GetString("EMAIL_API_KEY")),
		EmailBaseURL:           strings.TrimRight(strings.TrimSpace(v.GetString("EMAIL_BASE_URL")), "/"),
		EmailFrom:              strings.TrimSpace(v.GetString("EMAIL_FROM")),
		AdminNotificationEmail: strings.TrimSpace(v.GetString("ADMIN_NOTIFICATION_EMAIL")),
		BookingRefPrefix:       strings.ToUpper(strings.TrimSpace(v.GetString("BOOKING_REF_PREFIX"))),
		BookingRefAttempts:     v.GetInt("BOOKING_REF_ATTEMPTS"),
		CORSAllowedOrigins:     splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		LogLevel:               strings.TrimSpace(v.GetString("LOG_LEVEL")),
		LogFormat:              strings.TrimSpace(v.GetString("LOG_FORMAT")),
	}

	var err error
	if cfg.DBRetryBaseDelay, err = parseDuration(v, "DB_RETRY_BASE_DELAY"); err != nil {
		return nil, err
	}
	if cfg.DBQueryTimeout, err = parseDuration(v, "DB_QUERY_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = parseDuration(v, "JWT_TTL"); err != nil {
		return nil, err
	}
	if cfg.HTTPClientTimeout, err = parseDuration(v, "HTTP_CLIENT_TIMEOUT"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DataSource != DataSourceSQL && c.DataSource != DataSourceMemory {
		return fmt.Errorf("DATA_SOURCE must be one of: sql, memory")
	}
	if c.DataSource == DataSourceSQL && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when DATA_SOURCE=sql")
	}
	if c.DBMaxRetries < 0 {
		return fmt.Errorf("DB_MAX_RETRIES must be >= 0")
	}
	if c.DBQueryTimeout <= 0 {
		return fmt.Errorf("DB_QUERY_TIMEOUT must be > 0")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if c.HTTPClientTimeout <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT must be > 0")
	}
	if !refPrefixPattern.MatchString(c.BookingRefPrefix) {
		return fmt.Errorf("BOOKING_REF_PREFIX must be three upper-case letters")
	}
	if c.BookingRefAttempts < 1 {
		return fmt.Errorf("BOOKING_REF_ATTEMPTS must be >= 1")
	}

	if c.IsProdLike() {
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if c.DataSource == DataSourceMemory {
			return fmt.Errorf("in prod/release DATA_SOURCE=memory is not allowed")
		}
		if c.DibsyAPIKey == "" {
			return fmt.Errorf("in prod/release DIBSY_API_KEY must be set")
		}
	}
	return nil
}

func (c *Config) IsProdLike() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "prod" || env == "production" || env == "release"
}

func parseDuration(v *viper.Viper, name string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(name))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
