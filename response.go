package restclient

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
)

// ExceptionStatus classifies how an execution failed.
type ExceptionStatus int

const (
	StatusSuccess       ExceptionStatus = iota
	StatusProtocolError                 // the server answered with an error status
	StatusDecodeFailure                 // the body could not be decoded
	StatusUnknownError                  // no usable response
)

func (s ExceptionStatus) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusProtocolError:
		return "ProtocolError"
	case StatusDecodeFailure:
		return "DecodeFailure"
	case StatusUnknownError:
		return "UnknownError"
	default:
		return fmt.Sprintf("ExceptionStatus(%d)", int(s))
	}
}

// Result is the outcome of one execution. Exception is nil on success;
// otherwise ResponseData is the zero value of T and ExceptionStatus tells
// which stage failed.
type Result[T any] struct {
	ResponseStatus    int
	ExceptionStatus   ExceptionStatus
	ResponseData      T
	Exception         error
	StatusDescription string
	ContentType       string
	Header            http.Header
	Body              []byte

	dataParsed any
	dataError  error
	dataParse  sync.Once
}

func failedResult[T any](err error) *Result[T] {
	return &Result[T]{
		ResponseStatus:  http.StatusInternalServerError,
		ExceptionStatus: StatusUnknownError,
		Exception:       err,
	}
}

// Success reports whether the call succeeded.
func (r *Result[T]) Success() bool {
	return r.Exception == nil
}

// Unwrap returns the data and the exception, for callers preferring the
// usual Go error check.
func (r *Result[T]) Unwrap() (T, error) {
	return r.ResponseData, r.Exception
}

// Value returns the body parsed as generic JSON.
func (r *Result[T]) Value() (any, error) {
	r.dataParse.Do(func() {
		if len(r.Body) == 0 {
			return
		}
		r.dataError = json.Unmarshal(r.Body, &r.dataParsed)
	})
	return r.dataParsed, r.dataError
}

// Get walks the JSON body following a "/" separated path of object keys.
func (r *Result[T]) Get(v string) (any, error) {
	va := strings.Split(v, "/")
	cur, err := r.Value()
	if err != nil {
		return nil, err
	}

	for _, sub := range va {
		if sub == "" {
			continue
		}
		curV, ok := cur.(map[string]any)
		if !ok {
			return nil, fs.ErrNotExist
		}
		cur, ok = curV[sub]
		if !ok {
			return nil, fs.ErrNotExist
		}
	}
	return cur, nil
}

func (r *Result[T]) GetString(v string) (string, error) {
	res, err := r.Get(v)
	if err != nil {
		return "", err
	}
	str, ok := res.(string)
	if !ok {
		return fmt.Sprintf("%v", res), fmt.Errorf("unexpected type %T for string %s", res, v)
	}
	return str, nil
}
