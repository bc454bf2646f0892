package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const userAgent = "pyboot/1.0"

// Client performs bounded-retry, timeout-bounded, cancellable GETs.
// The zero value is not usable; construct with New.
type Client struct {
	httpClient  *http.Client
	attempts    int
	timeout     time.Duration
	backoffBase time.Duration
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient:  http.DefaultClient,
		attempts:    5,
		timeout:     10 * time.Minute,
		backoffBase: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the body at url. The whole operation, retries and body
// read included, runs under the client timeout and honors ctx
// cancellation.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.get(tctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("DL_READ: %w", err)
	}
	return body, nil
}

// FetchFile streams the body at url to dest. The bytes land at
// dest.partial first and rename into place only on success, so a torn
// download never occupies the destination path.
func (c *Client) FetchFile(ctx context.Context, url, dest string) error {
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.get(tctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	partial := dest + ".partial"
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("DL_READ: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(partial)
		return closeErr
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return err
	}
	return nil
}

// get runs the attempt loop and hands back an open 2xx response.
// Network errors and 429/5xx statuses retry with exponential backoff,
// honoring Retry-After; other statuses fail fast.
func (c *Client) get(ctx context.Context, fullURL string) (*http.Response, error) {
	var lastErr error
	for i := 0; i < c.attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(i)):
			}
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && i < c.attempts-1 {
			wait := c.parseRetryAfter(resp.Header.Get("Retry-After"), i)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		return nil, &StatusError{URL: fullURL, StatusCode: resp.StatusCode}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w (last error: %v)", ErrUnavailable, lastErr)
	}
	return nil, ErrUnavailable
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * c.backoffBase
}

func (c *Client) parseRetryAfter(value string, attempt int) time.Duration {
	defaultBackoff := c.backoff(attempt)
	if value == "" {
		return defaultBackoff
	}
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs < 0 {
		return defaultBackoff
	}
	wait := time.Duration(secs) * time.Second
	// Servers occasionally send absurd Retry-After values; cap the wait.
	if wait > 10*time.Second {
		wait = 10 * time.Second
	}
	return wait
}
