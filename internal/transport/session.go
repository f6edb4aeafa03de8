// Package transport provides the one shared HTTP session a run's adapters
// fetch through: SSRF-guarded, circuit-broken, retried, and closed
// deterministically at every run exit path.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"content-harvest/internal/entity"
	"content-harvest/internal/resilience/circuitbreaker"
	"content-harvest/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

const (
	// MaxResponseBytes caps how much of any single response body this
	// system will read, independent of what the server claims in
	// Content-Length, so a misbehaving or malicious origin can't exhaust
	// memory.
	MaxResponseBytes = 20 << 20 // 20MiB

	userAgent = "content-harvest/1.0 (+https://github.com/content-harvest)"
)

// Session is a per-run HTTP client shared across every adapter fetch for
// that run. One Session is created at the start of a run and closed (via
// CloseIdleConnections) on every exit path, matching the one-session-per-run
// design note.
type Session struct {
	client         *http.Client
	breakers       map[string]*circuitbreaker.CircuitBreaker
	denyPrivateIPs bool
}

// NewSession builds a Session with a fixed timeout and redirect validation.
// denyPrivateIPs should be true in production; tests against httptest
// servers pass false since those bind to loopback by design.
func NewSession(timeout time.Duration, denyPrivateIPs bool) *Session {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return ValidateURL(req.URL.String(), denyPrivateIPs)
		},
	}
	return &Session{
		client:         client,
		breakers:       make(map[string]*circuitbreaker.CircuitBreaker),
		denyPrivateIPs: denyPrivateIPs,
	}
}

// Close releases any idle pooled connections. Safe to call multiple times.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

func (s *Session) breakerFor(name string) *circuitbreaker.CircuitBreaker {
	if cb, ok := s.breakers[name]; ok {
		return cb
	}
	cb := circuitbreaker.New(circuitbreaker.AdapterFetchConfig(name))
	s.breakers[name] = cb
	return cb
}

// FetchOpts configures one guarded fetch.
type FetchOpts struct {
	// BreakerName scopes the circuit breaker; typically the source id.
	BreakerName string
	RetryConfig retry.Config
	Headers     map[string]string
}

// Get performs a SSRF-validated, circuit-broken, retried GET and returns
// the response body capped at MaxResponseBytes. The caller gets back a
// *entity.HttpError for non-2xx responses and a *entity.FetchError for
// everything else (DNS, timeout, connection reset, open circuit).
func (s *Session) Get(ctx context.Context, rawURL string, opts FetchOpts) ([]byte, error) {
	if err := ValidateURL(rawURL, s.denyPrivateIPs); err != nil {
		return nil, &entity.FetchError{Message: "url validation failed", Cause: err}
	}

	cb := s.breakerFor(opts.BreakerName)
	retryCfg := opts.RetryConfig
	if retryCfg == (retry.Config{}) {
		retryCfg = retry.AdapterFetchConfig()
	}

	var body []byte
	retryErr := retry.WithBackoff(ctx, retryCfg, func() error {
		result, err := cb.Execute(func() (interface{}, error) {
			return s.doGet(ctx, rawURL, opts.Headers)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("adapter fetch circuit breaker open",
					slog.String("breaker", opts.BreakerName), slog.String("url", rawURL))
			}
			return err
		}
		body = result.([]byte)
		return nil
	})
	if retryErr != nil {
		var httpErr *entity.HttpError
		if errors.As(retryErr, &httpErr) {
			return nil, httpErr
		}
		return nil, &entity.FetchError{Message: fmt.Sprintf("GET %s", rawURL), Cause: retryErr}
	}
	return body, nil
}

func (s *Session) doGet(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &entity.HttpError{Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// HTTPClient exposes the underlying *http.Client for libraries (gofeed,
// go-readability) that want to drive their own request lifecycle rather
// than go through Get.
func (s *Session) HTTPClient() *http.Client { return s.client }
