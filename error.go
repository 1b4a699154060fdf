package restclient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
)

var (
	ErrUnsupportedContentKind = errors.New("unsupported content kind")
	ErrInvalidMethod          = errors.New("invalid request method")
	ErrMissingURL             = errors.New("request url is required")
	ErrResponseStalled        = errors.New("response stalled: transfer rate fell below threshold")
)

// UnsupportedContentKindError is returned when a request asks for a content
// kind the codec has no wire representation for.
type UnsupportedContentKindError struct {
	Kind ContentKind
}

func (e *UnsupportedContentKindError) Error() string {
	return fmt.Sprintf("[rest] the content kind %s is not supported", e.Kind)
}

func (e *UnsupportedContentKindError) Unwrap() error {
	return ErrUnsupportedContentKind
}

// UnsupportedResponseContentTypeError is set on a Result when the server
// replied with a non-empty body in a content type no decoder handles.
type UnsupportedResponseContentTypeError struct {
	ContentType string
	Shape       string
}

func (e *UnsupportedResponseContentTypeError) Error() string {
	return fmt.Sprintf("[rest] the content type '%s' is not supported for the response type '%s'", e.ContentType, e.Shape)
}

// MalformedBodyError wraps a parse failure of a response body.
type MalformedBodyError struct {
	ContentType string
	Err         error
}

func (e *MalformedBodyError) Error() string {
	return fmt.Sprintf("[rest] failed to parse %s body: %s", e.ContentType, e.Err)
}

func (e *MalformedBodyError) Unwrap() error {
	return e.Err
}

// HttpError is the protocol error: the server answered with an error status.
// The body is kept so callers can inspect the server's explanation.
type HttpError struct {
	Code        int
	Status      string
	ContentType string
	Body        []byte
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.Code, e.Body)
}

func (e *HttpError) Unwrap() error {
	switch e.Code {
	case 403:
		return os.ErrPermission
	case 404:
		return fs.ErrNotExist
	default:
		return nil
	}
}

// TransportError is returned when no usable response was obtained: DNS
// failure, refused connection, timeout or a broken response stream.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("[rest] failed to run %s %s: %s", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
