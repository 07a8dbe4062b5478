package monitors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Songmu/retry"
	"github.com/monocle-dev/statuswatch/internal/types"
)

const userAgent = "StatusWatch-Monitor/1.0"

// Prober runs HTTP checks against monitored targets.
type Prober struct {
	client            *http.Client
	retryCount        int
	retryDelay        time.Duration
	defaultTimeout    time.Duration
	degradedThreshold time.Duration
}

type Option func(*Prober)

func WithClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

func WithRetry(count int, delay time.Duration) Option {
	return func(p *Prober) {
		if count >= 0 {
			p.retryCount = count
		}
		if delay >= 0 {
			p.retryDelay = delay
		}
	}
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.defaultTimeout = d
		}
	}
}

func WithDegradedThreshold(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.degradedThreshold = d
		}
	}
}

func NewProber(opts ...Option) *Prober {
	p := &Prober{
		client: &http.Client{
			// Redirects are followed; the final response is what gets classified.
			Transport: http.DefaultTransport,
		},
		retryCount:        types.DefaultRetryCount,
		retryDelay:        types.DefaultRetryDelay,
		defaultTimeout:    types.DefaultProbeTimeout,
		degradedThreshold: types.DegradedThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check probes cfg with up to retryCount+1 sequential attempts. It never returns an
// error: exhausted attempts classify as down with the last failure message.
func (p *Prober) Check(ctx context.Context, cfg types.CheckConfig) types.CheckResult {
	timeout := p.defaultTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	var (
		result  *types.CheckResult
		lastErr error
		attempt int
	)

	_ = retry.Retry(uint(p.retryCount+1), 0, func() error {
		if ctx.Err() != nil {
			return nil
		}
		if attempt > 0 && !sleep(ctx, p.retryDelay) {
			lastErr = ctx.Err()
			return nil
		}
		attempt++

		res, err := p.attempt(ctx, cfg, timeout)
		if err != nil {
			lastErr = err
			return err
		}
		result = res
		return nil
	})

	if result != nil {
		return *result
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	msg := "Unknown error"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return types.CheckResult{
		Status:       types.HealthDown,
		ErrorMessage: &msg,
	}
}

func (p *Prober) attempt(ctx context.Context, cfg types.CheckConfig, timeout time.Duration) (*types.CheckResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	expected := cfg.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			return nil, fmt.Errorf("Timeout after %dms", timeout.Milliseconds())
		}
		return nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != expected {
		return nil, fmt.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}

	status := types.HealthHealthy
	if elapsed >= p.degradedThreshold {
		status = types.HealthDegraded
	}
	code := resp.StatusCode

	return &types.CheckResult{
		Status:         status,
		ResponseTimeMs: int(elapsed.Milliseconds()),
		HTTPStatus:     &code,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
