package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	AppEnv    string
	ClientURL string

	DatabaseURL string

	JWTSecret      string
	TokenTTL       time.Duration
	CookieLifetime time.Duration

	S3 S3Config

	SMTP SMTPConfig

	AdminEmail string

	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	RedisAddr        string
	ContactRateLimit int64
	RateLimitWindow  time.Duration
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base used to build retrieval URLs, e.g. a CDN in front of the bucket.
	PublicURL string
	Folder    string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether every SMTP setting needed to send mail is present.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.Username != "" && c.Password != "" && c.From != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads .env (if any) and the process environment. Every invalid or
// missing value is collected so the operator sees all problems at once.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	var errs []string

	cfg := &Config{
		Port:      getEnv("PORT", "5000"),
		AppEnv:    getEnv("APP_ENV", "production"),
		ClientURL: strings.TrimSuffix(os.Getenv("CLIENT_URL"), "/"),

		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=pixelnest port=5432 sslmode=disable"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour, &errs),
		CookieLifetime: getEnvDuration("COOKIE_LIFETIME", 3*24*time.Hour, &errs),

		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("S3_ACCESS_KEY", "minio"),
			SecretKey: getEnv("S3_SECRET_KEY", "minio123"),
			Bucket:    getEnv("S3_BUCKET", "pixelnest"),
			UseSSL:    getEnvBool("S3_USE_SSL", false, &errs),
			PublicURL: strings.TrimSuffix(os.Getenv("S3_PUBLIC_URL"), "/"),
			Folder:    getEnv("S3_FOLDER", "posts"),
		},

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 465, &errs),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
		},

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "post-created"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "pixelnest-notifier"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		ContactRateLimit: int64(getEnvInt("CONTACT_RATE_LIMIT", 5, &errs)),
		RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", time.Minute, &errs),
	}
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.SMTP.Username)

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, "missing required environment variable: JWT_SECRET")
		} else {
			cfg.JWTSecret = "secret_key_change_me"
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

// AllowedOrigins lists the browser origins allowed to send credentialed requests.
func (c *Config) AllowedOrigins() []string {
	origins := []string{"http://localhost:5173", "http://localhost:5174"}
	if c.ClientURL != "" {
		origins = append(origins, c.ClientURL)
	}
	return origins
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got '%s'", key, v))
		return fallback
	}
	return i
}

func getEnvBool(key string, fallback bool, errs *[]string) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected boolean, got '%s'", key, v))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration, got '%s'", key, v))
		return fallback
	}
	return d
}
