package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20 // 4MB

var (
	// ErrBackendUnavailable - бэкенд не ответил или ответил не-JSON.
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrTournamentNotFound = errors.New("tournament not found")
)

// APIError - прикладная ошибка бэкенда: {"success": false, "message": "..."}.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected %s (status %d)", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("backend rejected %s: %s", e.Endpoint, e.Message)
}

// RequestObserver получает результат каждого запроса к бэкенду (метрики).
type RequestObserver interface {
	ObserveBackendRequest(endpoint, outcome string, elapsed time.Duration)
}

type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	HTTPClient *http.Client
	Observer   RequestObserver
	Logger     *slog.Logger
}

// Client - JSON-клиент PHP-бэкенда. Все запросы идут с cookie сессии
// браузера, если они положены в контекст через WithCookies.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	limiter  *rate.Limiter
	observer RequestObserver
	logger   *slog.Logger
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base URL must be absolute, got %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:  base,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		observer: cfg.Observer,
		logger:   logger,
	}, nil
}

// Get выполняет GET endpoint?query и раскладывает полезную нагрузку в dst.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, dst interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, dst)
}

// Post отправляет body как JSON.
func (c *Client) Post(ctx context.Context, endpoint string, body interface{}, dst interface{}) error {
	return c.do(ctx, http.MethodPost, endpoint, nil, body, dst)
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body interface{}, dst interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveBackendRequest(endpoint, outcomeOf(err), time.Since(start))
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: rate limiter: %w", ErrBackendUnavailable, endpoint, err)
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(endpoint, "/")})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body for %s: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range CookiesFromContext(ctx) {
		req.AddCookie(cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrBackendUnavailable, method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %w", ErrBackendUnavailable, endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.WarnContext(ctx, "backend returned non-JSON response",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.Any("error", err))
		return fmt.Errorf("%w: %s returned status %d with undecodable body: %w", ErrBackendUnavailable, endpoint, resp.StatusCode, err)
	}

	if !env.Success {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: env.Message}
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: decoding %s payload: %w", ErrBackendUnavailable, endpoint, err)
	}
	return nil
}

func outcomeOf(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &apiErr):
		return "rejected"
	default:
		return "error"
	}
}

type cookiesKey struct{}

// WithCookies кладёт cookie браузера в контекст, чтобы клиент переслал их
// бэкенду (аналог credentials: 'include').
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	if len(cookies) == 0 {
		return ctx
	}
	return context.WithValue(ctx, cookiesKey{}, cookies)
}

// CookiesFromContext returns the browser cookies attached with WithCookies.
func CookiesFromContext(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(cookiesKey{}).([]*http.Cookie)
	return cookies
}

// DetachCookies переносит cookie запроса в новый контекст без его отмены и
// дедлайна. Фоновые обновления после ответа идут с той же сессией.
func DetachCookies(ctx context.Context) context.Context {
	return WithCookies(context.Background(), CookiesFromContext(ctx))
}
