package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (PHARMA_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string        `usage:"PostgreSQL connection URL (PHARMA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWTSecret   string        `usage:"HMAC secret for session tokens (PHARMA_JWT_SECRET)" flag:"jwt-secret"`
	TokenTTL    time.Duration `default:"24h" usage:"Session token lifetime" flag:"token-ttl"`

	OTP           OTPConfig
	SMTP          SMTPConfig
	Notifications NotificationConfig
	LowStock      LowStockConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// OTPConfig controls registration verification codes.
type OTPConfig struct {
	Expiry time.Duration `default:"10m" usage:"Verification code lifetime"`
	// TestBypassCode also satisfies verification when set. Only honored when
	// OTP email delivery is disabled.
	TestBypassCode string `usage:"Static code accepted in test environments" flag:"otp-bypass-code"`
	// RedisAddr switches OTP storage from process memory to Redis when set.
	RedisAddr string `usage:"Redis address for shared OTP storage (host:port)" flag:"otp-redis-addr"`
}

// SMTPConfig configures outbound mail.
type SMTPConfig struct {
	Host     string `default:"localhost" usage:"SMTP host"`
	Port     int    `default:"587" usage:"SMTP port"`
	From     string `default:"noreply@medkart.example" usage:"From address"`
	Username string `usage:"SMTP username (empty disables auth)"`
	Password string `usage:"SMTP password"`
}

// NotificationConfig toggles individual email notifications.
type NotificationConfig struct {
	OrderPlaced bool   `default:"false" usage:"Send order confirmation emails" flag:"notify-orders"`
	OTPEmail    bool   `default:"false" usage:"Send OTP emails (off logs codes instead)" flag:"notify-otp"`
	LowStock    bool   `default:"false" usage:"Send low-stock digests" flag:"notify-low-stock"`
	AdminEmail  string `usage:"Recipient for admin digests" flag:"admin-email"`
}

// LowStockConfig controls the periodic low-stock sweep.
type LowStockConfig struct {
	Threshold int           `default:"10" usage:"Stock level at or below which a product is flagged"`
	Interval  time.Duration `default:"1h" usage:"Sweep interval"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PHARMA",
		Files:     []string{"config.yaml", "/etc/pharma/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set PHARMA_DATABASE_URL or DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set PHARMA_JWT_SECRET")
	}
	if cfg.OTP.TestBypassCode != "" && cfg.Notifications.OTPEmail {
		return nil, errors.New("OTP bypass code must not be set when OTP email delivery is enabled")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's PHARMA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
