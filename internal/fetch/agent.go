package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/zoop/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "zoop/1.0"
)

// Request describes one artifact transfer.
type Request struct {
	URL  string
	Dest string
	// Cookies are sent verbatim as a Cookie header.
	Cookies map[string]string
}

// Agent moves the bytes for one Request into Request.Dest, reporting
// progress on t. Implementations may use several connections internally.
type Agent interface {
	Download(ctx context.Context, req Request, t *Transfer) error
}

// AgentConfig tunes HTTPAgent. Zero values fall back to defaults.
type AgentConfig struct {
	Timeout   time.Duration
	// Retries below zero disable retrying.
	Retries   int
	UserAgent string
	// Proxy is an http(s) proxy URL; empty uses the environment.
	Proxy  string
	Logger logging.Logger
}

// HTTPAgent downloads over HTTP with retry logic.
type HTTPAgent struct {
	client    *http.Client
	userAgent string
	retries   int
	backoff   func(attempt int) time.Duration
	logger    logging.Logger
}

// NewHTTPAgent creates an HTTP download agent.
func NewHTTPAgent(cfg AgentConfig) (*HTTPAgent, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = DefaultRetries
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPAgent{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		retries:   retries,
		backoff: func(attempt int) time.Duration {
			// Exponential backoff: 1s, 2s, 4s
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
		logger: logging.OrNop(cfg.Logger),
	}, nil
}

// Download fetches req.URL into req.Dest, retrying transient failures.
func (a *HTTPAgent) Download(ctx context.Context, req Request, t *Transfer) error {
	var lastErr error

	for attempt := 0; attempt <= a.retries; attempt++ {
		if ctx.Err() != nil {
			return contextError(ctx, req.URL)
		}

		if attempt > 0 {
			a.logger.Debug("retrying download", "url", req.URL, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(a.backoff(attempt)):
			case <-ctx.Done():
				return contextError(ctx, req.URL)
			}
		}

		err := a.downloadOnce(ctx, req, t)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return contextError(ctx, req.URL)
		}
		var status *statusError
		if errors.As(err, &status) && status.code >= 400 && status.code < 500 {
			break
		}
	}

	return &DownloadError{URL: req.URL, Timeout: isTimeout(lastErr), Err: lastErr}
}

func contextError(ctx context.Context, url string) error {
	err := ctx.Err()
	return &DownloadError{URL: url, Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// downloadOnce performs a single download attempt
func (a *HTTPAgent) downloadOnce(ctx context.Context, req Request, t *Transfer) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", a.userAgent)
	for name, value := range req.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(req.Dest), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	if t != nil {
		if err := t.Start(resp.ContentLength); err != nil {
			return err
		}
	}

	out, err := os.Create(req.Dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var body io.Reader = resp.Body
	if t != nil {
		body = &progressReader{r: resp.Body, t: t}
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(req.Dest)
		return fmt.Errorf("copy response body: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(req.Dest)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

type progressReader struct {
	r io.Reader
	t *Transfer
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		_ = p.t.Progress(int64(n))
	}
	return n, err
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
