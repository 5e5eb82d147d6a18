package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string        `yaml:"port"`
	Env             string        `yaml:"env"`
	DatabaseURL     string        `yaml:"databaseUrl"`
	AutoMigrate     bool          `yaml:"autoMigrate"`
	CORSAllowOrigin []string      `yaml:"corsAllowOrigins"`
	ObjectStoreType string        `yaml:"objectStore"`
	UploadDir       string        `yaml:"uploadDir"`
	AWSRegion       string        `yaml:"awsRegion"`
	S3Bucket        string        `yaml:"s3Bucket"`
	S3Prefix        string        `yaml:"s3Prefix"`
	SSEKMSKeyID     string        `yaml:"sseKmsKeyId"`
	LogLevel        string        `yaml:"logLevel"`
	PDF             PDFConfig     `yaml:"pdf"`
	Scraper         ScraperConfig `yaml:"scraper"`
	RateLimit       RateLimit     `yaml:"rateLimit"`
}

// PDFConfig controls the binary document extractor.
type PDFConfig struct {
	Enabled  bool  `yaml:"enabled"`
	MaxBytes int64 `yaml:"maxBytes"`
}

// ScraperConfig controls the remote page extractor.
type ScraperConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRedirects      int           `yaml:"maxRedirects"`
	UserAgent         string        `yaml:"userAgent"`
	MaxBodyBytes      int64         `yaml:"maxBodyBytes"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// RateLimit controls inbound request throttling per client IP.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// Default returns the baseline configuration used before file and env overrides.
func Default() Config {
	return Config{
		Port:            "8080",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: "local",
		UploadDir:       "./uploads",
		LogLevel:        "info",
		PDF: PDFConfig{
			Enabled:  true,
			MaxBytes: 10 << 20,
		},
		Scraper: ScraperConfig{
			Enabled:           true,
			Timeout:           30 * time.Second,
			MaxRedirects:      5,
			UserAgent:         "docharvest/1.0 (+https://github.com/docharvest)",
			MaxBodyBytes:      10 << 20,
			RequestsPerSecond: 2,
		},
		RateLimit: RateLimit{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
}

// Load reads configuration: defaults, then the optional CONFIG_FILE, then
// environment variables.
func Load() Config {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			log.Printf("config file %s ignored: %v", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", cfg.AutoMigrate)
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}
	cfg.ObjectStoreType = getEnv("OBJECT_STORE", cfg.ObjectStoreType)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)
	cfg.SSEKMSKeyID = getEnv("SSE_KMS_KEY_ID", cfg.SSEKMSKeyID)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.PDF.Enabled = getEnvBool("PDF_ENABLED", cfg.PDF.Enabled)
	cfg.PDF.MaxBytes = getEnvInt64("PDF_MAX_BYTES", cfg.PDF.MaxBytes)

	cfg.Scraper.Enabled = getEnvBool("SCRAPER_ENABLED", cfg.Scraper.Enabled)
	cfg.Scraper.Timeout = getEnvDuration("SCRAPER_TIMEOUT", cfg.Scraper.Timeout)
	cfg.Scraper.MaxRedirects = int(getEnvInt64("SCRAPER_MAX_REDIRECTS", int64(cfg.Scraper.MaxRedirects)))
	cfg.Scraper.UserAgent = getEnv("SCRAPER_USER_AGENT", cfg.Scraper.UserAgent)
	cfg.Scraper.MaxBodyBytes = getEnvInt64("SCRAPER_MAX_BODY_BYTES", cfg.Scraper.MaxBodyBytes)
	cfg.Scraper.RequestsPerSecond = getEnvFloat("SCRAPER_RPS", cfg.Scraper.RequestsPerSecond)

	cfg.RateLimit.RequestsPerSecond = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimit.RequestsPerSecond)
	cfg.RateLimit.Burst = int(getEnvInt64("RATE_LIMIT_BURST", int64(cfg.RateLimit.Burst)))
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config env %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// IsDevLike reports whether env allows in-memory fallbacks and verbose errors.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
