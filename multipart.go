package restclient

import (
	"bytes"
	"sort"
	"strconv"
	"time"
)

// NewBoundary returns a multipart boundary: a run of 24 dashes followed by
// the current time in nanoseconds as lowercase hex.
func NewBoundary() string {
	return "------------------------" + strconv.FormatInt(time.Now().UnixNano(), 16)
}

// MultipartContentType is the request content type for a body built with
// boundary.
func MultipartContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

// BuildMultipart assembles a multipart/form-data body. Fields come first,
// sorted by name with one part per value, then files in order. Every part,
// and the closing delimiter, uses the same boundary.
func BuildMultipart(boundary string, fields map[string][]string, files []*FileUpload) []byte {
	var buf bytes.Buffer

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range fields[k] {
			buf.WriteString("--" + boundary + "\r\n")
			buf.WriteString(`Content-Disposition: form-data; name="` + k + "\"\r\n\r\n")
			buf.WriteString(v)
			buf.WriteString("\r\n")
		}
	}

	for _, f := range files {
		if f == nil {
			continue
		}
		buf.WriteString("--" + boundary + "\r\n")
		buf.WriteString(`Content-Disposition: form-data; name="` + f.FieldName + `"; filename="` + f.FileName + "\"\r\n")
		buf.WriteString("Content-Type: " + f.ContentType + "\r\n\r\n")
		buf.Write(f.Content)
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n--" + boundary + "--\r\n")
	return buf.Bytes()
}
