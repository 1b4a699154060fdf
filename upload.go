package restclient

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/encoding"
)

// FormDataTimeout is the default timeout of requests built by
// FormDataRequest.
const FormDataTimeout = 5 * time.Minute

// FileUpload is one file part of a multipart/form-data body.
type FileUpload struct {
	FileName    string
	ContentType string
	FieldName   string
	Content     []byte
}

// NewFileUpload reads the file at path. An empty contentType is guessed
// from the file extension.
func NewFileUpload(path, contentType, fieldName string) (*FileUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}
	return &FileUpload{
		FileName:    filepath.Base(path),
		ContentType: contentType,
		FieldName:   fieldName,
		Content:     data,
	}, nil
}

// NewTextUpload encodes content with enc, UTF-8 when enc is nil.
func NewTextUpload(content, fileName, contentType, fieldName string, enc encoding.Encoding) (*FileUpload, error) {
	data := []byte(content)
	if enc != nil {
		s, err := enc.NewEncoder().String(content)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", fileName, err)
		}
		data = []byte(s)
	}
	return &FileUpload{
		FileName:    fileName,
		ContentType: contentType,
		FieldName:   fieldName,
		Content:     data,
	}, nil
}

// FormDataRequest builds a multipart POST of fields and files. The request
// times out after FormDataTimeout unless an option says otherwise. When the
// client selected by ctx has a Trace writer the body is copied there.
func FormDataRequest(ctx context.Context, rawURL string, fields url.Values, files []*FileUpload, opts ...RequestOption) (*Request, error) {
	boundary := NewBoundary()
	body := BuildMultipart(boundary, fields, files)

	base := []RequestOption{
		WithPayload(body, MultipartContentType(boundary)),
		WithTimeout(FormDataTimeout),
	}
	req, err := BuildRequest("POST", rawURL, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	c := clientFrom(ctx)
	if c.Trace != nil {
		if _, err := c.Trace.Write(body); err != nil && c.Debug {
			c.logger().WarnContext(ctx, fmt.Sprintf("[rest] failed to trace multipart body: %s", err), "event", "rest:trace_error")
		}
	}
	return req, nil
}
