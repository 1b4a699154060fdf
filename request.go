package restclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Credentials authorize a request at send time. body is the exact request
// body, for schemes that sign it.
type Credentials interface {
	Authorize(req *http.Request, body []byte) error
}

// UserPassword authorizes requests with HTTP basic authentication.
type UserPassword struct {
	Username string
	Password string
}

func (u UserPassword) Authorize(req *http.Request, body []byte) error {
	req.SetBasicAuth(u.Username, u.Password)
	return nil
}

// Request describes one HTTP request before it is sent. Build it with
// BuildRequest or one of the CRUD constructors; Execute only reads it.
type Request struct {
	Method      string
	URL         string
	ContentType string
	Header      http.Header
	Body        []byte

	// ContentLength is -1 for requests without a body and otherwise the
	// length of Body, zero included.
	ContentLength int64

	Credentials Credentials
	Timeout     time.Duration

	// anonymous requests ignore a token attached to the context
	anonymous bool
}

// RequestOption configures a request in BuildRequest.
type RequestOption func(b *requestBuilder) error

type requestBuilder struct {
	req   *Request
	query url.Values
}

func WithQuery(q url.Values) RequestOption {
	return func(b *requestBuilder) error {
		for k, vals := range q {
			b.query[k] = append(b.query[k], vals...)
		}
		return nil
	}
}

func WithToken(t OAuthToken) RequestOption {
	return func(b *requestBuilder) error {
		b.req.AuthorizeAs(t)
		return nil
	}
}

// WithBasicAuth sets "Authorization: Basic <encoded>". encoded is used as
// given, see UserPassword to have the credentials encoded.
func WithBasicAuth(encoded string) RequestOption {
	return func(b *requestBuilder) error {
		b.req.AuthorizeBasic(encoded)
		return nil
	}
}

func WithCredentials(c Credentials) RequestOption {
	return func(b *requestBuilder) error {
		b.req.AuthorizeWith(c)
		return nil
	}
}

// WithPayload sets a pre-encoded body and its content type.
func WithPayload(payload []byte, contentType string) RequestOption {
	return func(b *requestBuilder) error {
		b.req.Body = payload
		if contentType != "" {
			b.req.ContentType = contentType
		}
		return nil
	}
}

// WithContent serializes v as the body, see Serialize.
func WithContent(ctx context.Context, kind ContentKind, v any) RequestOption {
	return func(b *requestBuilder) error {
		_, err := b.req.WithContent(ctx, kind, v)
		return err
	}
}

// WithHeader adds a header value. Authorization is never added: it
// replaces any authorization already set, like SetHeader.
func WithHeader(key, value string) RequestOption {
	return func(b *requestBuilder) error {
		if http.CanonicalHeaderKey(key) == "Authorization" {
			b.req.SetHeader(key, value)
			return nil
		}
		b.req.header().Add(key, value)
		return nil
	}
}

func WithTimeout(d time.Duration) RequestOption {
	return func(b *requestBuilder) error {
		b.req.Timeout = d
		return nil
	}
}

func WithAccept(contentTypes ...string) RequestOption {
	return func(b *requestBuilder) error {
		b.req.Accepts(contentTypes...)
		return nil
	}
}

// BuildRequest creates a request descriptor. The query is appended to
// rawURL before it is validated. An unknown method, an invalid URL or a
// failing option is reported immediately.
func BuildRequest(method, rawURL string, opts ...RequestOption) (*Request, error) {
	switch method {
	case "GET", "POST", "PUT", "DELETE":
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	if rawURL == "" {
		return nil, ErrMissingURL
	}

	b := &requestBuilder{
		req: &Request{
			Method:      method,
			ContentType: "application/json",
			Header:      make(http.Header),
		},
		query: make(url.Values),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	r := b.req
	r.URL = AppendQuery(rawURL, b.query)
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid request url %q: scheme and host are required", r.URL)
	}

	if method == "GET" {
		r.Body = nil
		r.ContentLength = -1
	} else {
		r.ContentLength = int64(len(r.Body))
	}
	return r, nil
}

func ReadRequest(rawURL string, opts ...RequestOption) (*Request, error) {
	return BuildRequest("GET", rawURL, opts...)
}

func CreateRequest(rawURL string, opts ...RequestOption) (*Request, error) {
	return BuildRequest("POST", rawURL, opts...)
}

func UpdateRequest(rawURL string, opts ...RequestOption) (*Request, error) {
	return BuildRequest("PUT", rawURL, opts...)
}

func DeleteRequest(rawURL string, opts ...RequestOption) (*Request, error) {
	return BuildRequest("DELETE", rawURL, opts...)
}

func (r *Request) header() http.Header {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r.Header
}

// AuthorizeAs replaces any authorization on r with a bearer header from t.
func (r *Request) AuthorizeAs(t OAuthToken) *Request {
	r.header().Del("Authorization")
	r.Credentials = nil
	if t != nil {
		r.Header.Set("Authorization", t.AuthorizationHeader())
	}
	return r
}

// AuthorizeBasic replaces any authorization on r with
// "Authorization: Basic <encoded>".
func (r *Request) AuthorizeBasic(encoded string) *Request {
	r.header().Del("Authorization")
	r.Credentials = nil
	r.Header.Set("Authorization", "Basic "+encoded)
	return r
}

// AuthorizeWith replaces any authorization on r with c, applied when the
// request is sent.
func (r *Request) AuthorizeWith(c Credentials) *Request {
	r.header().Del("Authorization")
	r.Credentials = c
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// SetHeader replaces the values of key. Setting Authorization also drops
// any Credentials, so r keeps a single authorization.
func (r *Request) SetHeader(key, value string) *Request {
	if http.CanonicalHeaderKey(key) == "Authorization" {
		r.Credentials = nil
	}
	r.header().Set(key, value)
	return r
}

// Accepts sets the Accept header, several types are joined with ", ".
func (r *Request) Accepts(contentTypes ...string) *Request {
	if len(contentTypes) == 0 {
		r.header().Del("Accept")
		return r
	}
	r.header().Set("Accept", strings.Join(contentTypes, ", "))
	return r
}

// WithContent serializes v as the body of r and sets the matching content
// type. GET requests keep no body.
func (r *Request) WithContent(ctx context.Context, kind ContentKind, v any) (*Request, error) {
	ct, err := ContentTypeFor(kind)
	if err != nil {
		return r, err
	}
	body, err := Serialize(ctx, kind, v)
	if err != nil {
		return r, err
	}
	r.ContentType = ct
	if r.Method == "GET" {
		return r, nil
	}
	r.Body = body
	r.ContentLength = int64(len(body))
	return r, nil
}

// httpRequest creates the transport request. The authorization taken from
// ctx only applies when r carries none of its own.
func (r *Request) httpRequest(ctx context.Context, c *Client) (*http.Request, error) {
	var body io.Reader
	if r.ContentLength >= 0 && r.Method != "GET" {
		if len(r.Body) == 0 {
			body = http.NoBody
		} else {
			body = bytes.NewReader(r.Body)
		}
	}

	hr, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vals := range r.Header {
		hr.Header[k] = append([]string(nil), vals...)
	}
	hr.Header.Set("User-Agent", c.userAgent())
	if body != nil {
		hr.ContentLength = int64(len(r.Body))
		if r.ContentType != "" {
			hr.Header.Set("Content-Type", r.ContentType)
		}
	}

	switch {
	case r.Credentials != nil:
		if err := r.Credentials.Authorize(hr, r.Body); err != nil {
			return nil, err
		}
	case hr.Header.Get("Authorization") != "" || r.anonymous:
		// nothing
	default:
		if t := tokenFrom(ctx); t != nil {
			hr.Header.Set("Authorization", t.AuthorizationHeader())
		} else if k := apiKeyFrom(ctx); k != nil {
			if err := k.Authorize(hr, r.Body); err != nil {
				return nil, err
			}
		}
	}
	return hr, nil
}
