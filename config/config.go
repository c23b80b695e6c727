package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	APIBaseURL  string
	ServerPort  int
	CORSOrigins []string

	PollInterval          time.Duration
	RefreshDelay          time.Duration
	BackendTimeout        time.Duration
	BackendRPS            float64
	BackendBurst          int
	ImageFetchConcurrency int
	MutationRPS           float64

	// CSRFAuthKey подписывает cookie с CSRF-токеном; пустой ключ означает
	// случайный ключ на каждый запуск.
	CSRFAuthKey []byte
	PublicHTTPS bool

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	apiBaseURL := strings.TrimSpace(getenv("API_BASE_URL"))
	if apiBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL environment variable is not set")
	}
	if u, err := url.Parse(apiBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", apiBaseURL)
	}

	cfg := &Config{
		APIBaseURL:            apiBaseURL,
		ServerPort:            p.integer("SERVER_PORT", 8080),
		CORSOrigins:           p.list("CORS_ALLOWED_ORIGINS"),
		PollInterval:          p.duration("POLL_INTERVAL", 30*time.Second),
		RefreshDelay:          p.duration("REFRESH_DELAY", time.Second),
		BackendTimeout:        p.duration("BACKEND_TIMEOUT", 10*time.Second),
		BackendRPS:            p.decimal("BACKEND_RPS", 20),
		BackendBurst:          p.integer("BACKEND_BURST", 40),
		ImageFetchConcurrency: p.integer("IMAGE_FETCH_CONCURRENCY", 4),
		MutationRPS:           p.decimal("MUTATION_RPS", 5),
		CSRFAuthKey:           []byte(p.raw("CSRF_AUTH_KEY")),
		PublicHTTPS:           p.boolean("PUBLIC_HTTPS", false),
		R2AccountID:           getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:         getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:     getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:          getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:       getenv("R2_PUBLIC_BASE_URL"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.RefreshDelay < 0 {
		return nil, fmt.Errorf("REFRESH_DELAY must not be negative, got %s", cfg.RefreshDelay)
	}
	if cfg.ImageFetchConcurrency < 1 {
		return nil, fmt.Errorf("IMAGE_FETCH_CONCURRENCY must be at least 1, got %d", cfg.ImageFetchConcurrency)
	}
	if n := len(cfg.CSRFAuthKey); n > 0 && n < 32 {
		return nil, fmt.Errorf("CSRF_AUTH_KEY must be at least 32 bytes, got %d", n)
	}
	if cfg.r2Partial() {
		return nil, fmt.Errorf("R2 configuration is incomplete: set all of R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME, R2_PUBLIC_BASE_URL or none")
	}

	return cfg, nil
}

// R2Enabled reports whether match screenshot uploads are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

func (c *Config) r2Partial() bool {
	anySet := c.R2AccountID != "" || c.R2AccessKeyID != "" || c.R2SecretAccessKey != "" || c.R2BucketName != "" || c.R2PublicBaseURL != ""
	return anySet && !c.R2Enabled()
}

// parser запоминает первую ошибку разбора, чтобы сообщить о ней одной.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) raw(key string) string {
	return strings.TrimSpace(p.getenv(key))
}

func (p *parser) integer(key string, def int) int {
	s := p.raw(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n
}

func (p *parser) decimal(key string, def float64) float64 {
	s := p.raw(key)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	s := p.raw(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	s := p.raw(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return d
}

func (p *parser) list(key string) []string {
	var items []string
	for _, part := range strings.Split(p.raw(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
