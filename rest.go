// Package restclient is a client for arbitrary REST/HTTP APIs. It builds
// requests, attaches authentication, encodes bodies by content kind and
// decodes responses by their declared content type, returning every
// outcome as a Result.
package restclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Execute sends req and decodes the response into T. It never fails
// outright: every error is reported through the returned Result.
func Execute[T any](ctx context.Context, req *Request) *Result[T] {
	if req == nil {
		return failedResult[T](errors.New("[rest] nil request"))
	}
	c := clientFrom(ctx)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var reqID string
	if c.Debug {
		reqID = uuid.NewString()
	}

	hr, err := req.httpRequest(ctx, c)
	if err != nil {
		return transportFailure[T](ctx, c, req, reqID, err)
	}

	t := time.Now()

	resp, err := c.httpClient().Do(hr)
	if err != nil {
		return transportFailure[T](ctx, c, req, reqID, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if c.StallTimeout > 0 {
		sr := newStallDetectReader(ctx, resp.Body, c.StallTimeout, c.StallThreshold)
		defer sr.Close()
		body = sr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return transportFailure[T](ctx, c, req, reqID, err)
	}
	data = bytes.TrimSpace(data)

	res := &Result[T]{
		ResponseStatus:    resp.StatusCode,
		StatusDescription: statusDescription(resp),
		ContentType:       resp.Header.Get("Content-Type"),
		Header:            resp.Header,
		Body:              data,
	}

	if c.Debug {
		d := time.Since(t)
		c.logger().DebugContext(ctx, fmt.Sprintf("[rest] %s %s => %d in %s", req.Method, req.URL, resp.StatusCode, d), "event", "rest:debug_query", "rest:method", req.Method, "rest:request", req.URL, "rest:request_id", reqID, "rest:status", resp.StatusCode, "rest:duration", d)
	}

	if resp.StatusCode >= 400 {
		res.ExceptionStatus = StatusProtocolError
		res.Exception = &HttpError{
			Code:        resp.StatusCode,
			Status:      res.StatusDescription,
			ContentType: res.ContentType,
			Body:        data,
		}
		return res
	}

	if len(data) == 0 {
		return res
	}

	if err := Decode(ctx, res.ContentType, data, &res.ResponseData); err != nil {
		if c.Debug {
			c.logger().ErrorContext(ctx, fmt.Sprintf("[rest] failed to decode %s: %s\n%s", res.ContentType, err, data), "event", "rest:not_json", "rest:request_id", reqID)
		}
		var zero T
		res.ResponseData = zero
		res.ExceptionStatus = StatusDecodeFailure
		res.Exception = err
	}
	return res
}

func transportFailure[T any](ctx context.Context, c *Client, req *Request, reqID string, err error) *Result[T] {
	err = &TransportError{Method: req.Method, URL: req.URL, Err: err}
	if c.Debug {
		c.logger().ErrorContext(ctx, err.Error(), "event", "rest:transport_error", "rest:method", req.Method, "rest:request", req.URL, "rest:request_id", reqID)
	}
	return failedResult[T](err)
}

// statusDescription returns the reason phrase of resp, "404 Not Found"
// giving "Not Found".
func statusDescription(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// ExecuteAsync runs Execute on its own goroutine. The channel receives
// exactly one Result.
func ExecuteAsync[T any](ctx context.Context, req *Request) <-chan *Result[T] {
	ch := make(chan *Result[T], 1)
	go func() {
		ch <- Execute[T](ctx, req)
	}()
	return ch
}

// Do builds a request and executes it. A build failure is returned as a
// failed Result.
func Do[T any](ctx context.Context, method, rawURL string, opts ...RequestOption) *Result[T] {
	req, err := BuildRequest(method, rawURL, opts...)
	if err != nil {
		return failedResult[T](err)
	}
	return Execute[T](ctx, req)
}

// Get fetches rawURL with the given query.
func Get[T any](ctx context.Context, rawURL string, query url.Values, opts ...RequestOption) *Result[T] {
	return Do[T](ctx, "GET", rawURL, append([]RequestOption{WithQuery(query)}, opts...)...)
}

// Post sends form values to rawURL.
func Post[T any](ctx context.Context, rawURL string, form url.Values, opts ...RequestOption) *Result[T] {
	return Do[T](ctx, "POST", rawURL, append([]RequestOption{WithContent(ctx, KindForm, form)}, opts...)...)
}

// Create POSTs v as JSON.
func Create[T any](ctx context.Context, rawURL string, v any, opts ...RequestOption) *Result[T] {
	return Do[T](ctx, "POST", rawURL, append([]RequestOption{WithContent(ctx, KindJSON, v)}, opts...)...)
}

// Update PUTs v as JSON.
func Update[T any](ctx context.Context, rawURL string, v any, opts ...RequestOption) *Result[T] {
	return Do[T](ctx, "PUT", rawURL, append([]RequestOption{WithContent(ctx, KindJSON, v)}, opts...)...)
}

// Delete removes the resource id under rawURL.
func Delete[T any](ctx context.Context, rawURL, id string, opts ...RequestOption) *Result[T] {
	return Do[T](ctx, "DELETE", resourceURL(rawURL, id), opts...)
}

// Details fetches the resource id under rawURL.
func Details[T any](ctx context.Context, rawURL, id string, opts ...RequestOption) *Result[T] {
	return Do[T](ctx, "GET", resourceURL(rawURL, id), opts...)
}

func resourceURL(rawURL, id string) string {
	return strings.TrimSuffix(rawURL, "/") + "/" + url.PathEscape(id)
}
