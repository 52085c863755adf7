package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
}

// Profile selects the default headers a Client sets on each request.
type Profile int

const (
	// ProfileJSON talks to JSON APIs.
	ProfileJSON Profile = iota
	// ProfileBrowser looks like a desktop browser fetching HTML pages.
	ProfileBrowser
)

// Options configures a Client. A zero MaxDelay disables per-host pacing.
type Options struct {
	Profile     Profile
	Timeout     time.Duration
	ProxyURL    string
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	Logger      *slog.Logger
	// Transport overrides the underlying round tripper, mostly for tests.
	Transport http.RoundTripper
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.BaseBackoff == 0 {
		o.BaseBackoff = 2 * time.Second
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// BrowserOptions returns the options used for scraping public job boards.
func BrowserOptions() Options {
	return Options{
		Profile:  ProfileBrowser,
		MinDelay: 2 * time.Second,
		MaxDelay: 5 * time.Second,
	}
}

// Client wraps http.Client with default headers, request ids, per-host
// pacing and retry with exponential backoff.
type Client struct {
	inner       *http.Client
	profile     Profile
	mu          sync.Mutex
	lastReq     map[string]time.Time
	minDelay    time.Duration
	maxDelay    time.Duration
	maxRetries  int
	baseBackoff time.Duration
	log         *slog.Logger
}

// New creates a Client with the given options.
func New(opts Options) (*Client, error) {
	opts = opts.withDefaults()

	transport := opts.Transport
	if transport == nil {
		t := &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		}
		if opts.ProxyURL != "" {
			proxyURL, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("httpclient: invalid proxy URL: %w", err)
			}
			t.Proxy = http.ProxyURL(proxyURL)
		}
		transport = t
	}

	return &Client{
		inner:       &http.Client{Transport: transport, Timeout: opts.Timeout},
		profile:     opts.Profile,
		lastReq:     make(map[string]time.Time),
		minDelay:    opts.MinDelay,
		maxDelay:    opts.MaxDelay,
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
		log:         opts.Logger.With("component", "httpclient"),
	}, nil
}

// Do executes the request with default headers and pacing. Requests without
// a body are retried with exponential backoff while the server answers 429
// or 503; the last response is returned as is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)

	if err := c.rateLimit(req.Context(), req.URL.Host); err != nil {
		return nil, err
	}

	attempts := c.maxRetries
	if !retryable(req) {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.inner.Do(req)
		if err != nil {
			return nil, fmt.Errorf("httpclient: request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
			return resp, nil
		}
		if attempt == attempts-1 {
			return resp, nil
		}

		resp.Body.Close()
		backoff := time.Duration(1<<uint(attempt)) * c.baseBackoff
		c.log.Info("server busy, backing off",
			"host", req.URL.Host, "status", resp.StatusCode, "wait", backoff,
			"attempt", attempt+1, "max_attempts", attempts, "request_id", req.Header.Get("X-Request-ID"))

		select {
		case <-time.After(backoff):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	// attempts is always at least one, so the loop returns.
	return nil, fmt.Errorf("httpclient: no attempts made")
}

func retryable(req *http.Request) bool {
	if req.Body != nil && req.Body != http.NoBody {
		return false
	}
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

func (c *Client) setHeaders(req *http.Request) {
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}

	switch c.profile {
	case ProfileBrowser:
		req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		// Accept-Encoding is left to http.Transport, which then decompresses transparently.
		req.Header.Set("DNT", "1")
		req.Header.Set("Sec-Fetch-Dest", "document")
		req.Header.Set("Sec-Fetch-Mode", "navigate")
		req.Header.Set("Sec-Fetch-Site", "none")
		req.Header.Set("Upgrade-Insecure-Requests", "1")
	default:
		req.Header.Set("Accept", "application/json")
		if req.Body != nil && req.Body != http.NoBody && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", "go-jobs/1.0")
		}
	}
}

func (c *Client) rateLimit(ctx context.Context, host string) error {
	if c.maxDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	last, ok := c.lastReq[host]
	c.lastReq[host] = time.Now()
	c.mu.Unlock()

	if !ok {
		return nil
	}

	elapsed := time.Since(last)
	delay := c.minDelay
	if spread := c.maxDelay - c.minDelay; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}

	if elapsed < delay {
		wait := delay - elapsed
		c.log.Info("rate limit: waiting before next request", "host", host, "wait", wait.Round(time.Millisecond))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	c.lastReq[host] = time.Now()
	c.mu.Unlock()

	return nil
}
