package restclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// UserAgent is sent with every request unless the client overrides it.
var UserAgent = fmt.Sprintf("restclient Go: %s OS: %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)

var RestHttpTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   50,
	MaxConnsPerHost:       200,
	IdleConnTimeout:       90 * time.Second,
	ResponseHeaderTimeout: 90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 5 * time.Second,
}

var RestHttpClient = &http.Client{
	Transport: RestHttpTransport,
	Timeout:   120 * time.Second,
}

// Client holds the transport and diagnostics settings used to execute
// requests. Unset fields fall back to RestHttpClient, UserAgent and
// slog.Default, so a zero Client works; NewClient builds one from a Config.
type Client struct {
	HTTP      *http.Client
	UserAgent string

	// Debug enables slog output for every executed request.
	Debug  bool
	Logger *slog.Logger

	// Trace, when set, receives a copy of every multipart body before it
	// is sent.
	Trace io.Writer

	// StallTimeout enables the stall guard on response bodies: reading
	// fails with ErrResponseStalled when fewer than StallThreshold bytes
	// arrive within StallTimeout.
	StallTimeout   time.Duration
	StallThreshold int64
}

// DefaultClient is used when the context does not select a client.
var DefaultClient = &Client{
	HTTP:      RestHttpClient,
	UserAgent: UserAgent,
}

type clientValue int

type withClient struct {
	context.Context
	client *Client
}

func (w *withClient) Value(v any) any {
	if _, ok := v.(clientValue); ok {
		return w.client
	}

	return w.Context.Value(v)
}

// Use returns a context that executes requests through c.
func (c *Client) Use(ctx context.Context) context.Context {
	return &withClient{ctx, c}
}

func clientFrom(ctx context.Context) *Client {
	if c, ok := ctx.Value(clientValue(0)).(*Client); ok && c != nil {
		return c
	}
	return DefaultClient
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return RestHttpClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) userAgent() string {
	if c.UserAgent != "" {
		return c.UserAgent
	}
	return UserAgent
}
