// Package feeds talks to the remote queue service: a group of settings and
// two feeds of pending items, behind an API key header.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/net/http2"

	"github.com/rook-computer/msgboard/internal/logging"
	"github.com/rook-computer/msgboard/internal/metrics"
	"github.com/rook-computer/msgboard/internal/system"
)

const (
	APIKeyHeader = "X-AIO-Key"

	DefaultBaseURL     = "https://io.adafruit.com/api/v2"
	DefaultGroup       = "scroller"
	DefaultTextFeed    = "text-queue"
	DefaultMessageFeed = "message-queue"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultFetchLimit  = 5

	maxBodyBytes = 1 << 20
	breakerName  = "remote-feeds"
)

var (
	// ErrUnreachable is returned when every attempt failed at the transport level.
	ErrUnreachable = errors.New("remote service unreachable")
	// ErrCircuitOpen is returned without a request while the breaker is open.
	ErrCircuitOpen = errors.New("remote service circuit open")
	// ErrUnexpectedPayload means a 200 response body had the wrong shape.
	ErrUnexpectedPayload = errors.New("unexpected response payload")
)

// StatusError is a non-success HTTP status from the remote service.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Code)
}

// Response is a completed request, whatever its status.
type Response struct {
	StatusCode int
	Body       []byte
	// Truncated is set when the body was longer than the read cap and only
	// its start is in Body.
	Truncated bool
}

// Connectivity is checked once after every transport failure.
type Connectivity interface {
	CheckConnectivity(ctx context.Context, maxAttempts int) bool
}

type Config struct {
	BaseURL     string
	Username    string
	APIKey      string
	Group       string
	TextFeed    string
	MessageFeed string
	Timeout     time.Duration
	MaxRetries  int
	FetchLimit  int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Group == "" {
		c.Group = DefaultGroup
	}
	if c.TextFeed == "" {
		c.TextFeed = DefaultTextFeed
	}
	if c.MessageFeed == "" {
		c.MessageFeed = DefaultMessageFeed
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = DefaultFetchLimit
	}
	return c
}

// Client performs requests with retry, exponential backoff and session
// rebuild. It is used from a single goroutine.
type Client struct {
	cfg Config

	Connectivity Connectivity
	Lifeline     system.Lifeline
	Logger       logging.Logger

	// Sleep waits between attempts. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration)
	// NewTransport builds the transport for a fresh session. Defaults to an
	// HTTP/2 capable transport.
	NewTransport func() http.RoundTripper

	session  *http.Client
	sessions int
	breaker  *gobreaker.CircuitBreaker[interface{}]
}

func New(cfg Config) *Client {
	c := &Client{cfg: cfg.withDefaults()}
	c.breaker = newBreaker(c)
	return c
}

func (c *Client) base() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + c.cfg.Username
}

func (c *Client) GroupURL() string { return c.base() + "/groups/" + c.cfg.Group }

func (c *Client) TextFeedURL() string { return c.feedURL(c.cfg.TextFeed) }

func (c *Client) MessageFeedURL() string { return c.feedURL(c.cfg.MessageFeed) }

func (c *Client) feedURL(feed string) string {
	return c.base() + "/feeds/" + c.cfg.Group + "." + feed + "/data"
}

func (c *Client) logger() logging.Logger { return logging.OrNoop(c.Logger) }

func (c *Client) feed() {
	if c.Lifeline != nil {
		c.Lifeline.Feed()
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(ctx, d)
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// rebuildSession drops the current session and its idle connections.
func (c *Client) rebuildSession() {
	if c.session != nil {
		c.session.CloseIdleConnections()
		metrics.SessionRebuilds.Inc()
	}
	var rt http.RoundTripper
	if c.NewTransport != nil {
		rt = c.NewTransport()
	} else {
		rt = newHTTP2Transport(c.logger())
	}
	c.session = &http.Client{Transport: rt}
	c.sessions++
}

func newHTTP2Transport(log logging.Logger) http.RoundTripper {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     60 * time.Second,
		MaxIdleConns:        4,
	}
	if err := http2.ConfigureTransport(t); err != nil {
		log.Errorf("feeds", "http2 configure failed, using HTTP/1.1: %v", err)
	}
	return t
}

// Request performs method on url. A transport failure runs a one-shot
// connectivity check; when attempts remain the session is rebuilt and the
// next attempt waits 2^attempt seconds. Any HTTP response, successful or not,
// is returned as is. When every attempt fails ErrUnreachable is returned.
// Liveness is fed before every attempt and around every wait.
func (c *Client) Request(ctx context.Context, method, url string) (*Response, error) {
	if c.session == nil {
		c.rebuildSession()
	}
	log := c.logger()
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		c.feed()
		resp, err := c.do(ctx, method, url)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Errorf("feeds", "%s transport error (attempt %d/%d): %v", method, attempt, c.cfg.MaxRetries, err)
		c.feed()
		if c.Connectivity != nil && !c.Connectivity.CheckConnectivity(ctx, 1) {
			log.Errorf("feeds", "lost connectivity during request")
		}
		c.feed()
		if attempt == c.cfg.MaxRetries {
			break
		}
		metrics.RequestRetries.Inc()
		c.rebuildSession()
		c.sleep(ctx, backoff(attempt))
		c.feed()
	}
	return nil, ErrUnreachable
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func (c *Client) do(ctx context.Context, method, url string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(APIKeyHeader, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.session.Do(req)
	metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(method, "transport").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(method, "transport").Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}
	truncated := len(body) > maxBodyBytes
	if truncated {
		body = body[:maxBodyBytes]
	}
	outcome := "ok"
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "status"
	}
	metrics.RequestsTotal.WithLabelValues(method, outcome).Inc()
	return &Response{StatusCode: resp.StatusCode, Body: body, Truncated: truncated}, nil
}
