package restclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KarpelesLab/pjson"
	"github.com/KarpelesLab/typutil"
)

// Record is a schemaless JSON object. Names are matched case-insensitively,
// the first spelling used for a name is the one kept, and enumeration
// follows insertion order.
type Record struct {
	names  []string
	index  map[string]int
	values []any
}

func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

func foldName(name string) string {
	return strings.ToLower(name)
}

// Get returns the value stored under name, or nil.
func (r *Record) Get(name string) any {
	if r == nil {
		return nil
	}
	if i, ok := r.index[foldName(name)]; ok {
		return r.values[i]
	}
	return nil
}

// Lookup is like Get but also reports whether name is present.
func (r *Record) Lookup(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	i, ok := r.index[foldName(name)]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

func (r *Record) Set(name string, v any) *Record {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	k := foldName(name)
	if i, ok := r.index[k]; ok {
		r.values[i] = v
		return r
	}
	r.index[k] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, v)
	return r
}

// Delete removes name and reports whether it was present.
func (r *Record) Delete(name string) bool {
	if r == nil {
		return false
	}
	k := foldName(name)
	i, ok := r.index[k]
	if !ok {
		return false
	}
	delete(r.index, k)
	r.names = append(r.names[:i], r.names[i+1:]...)
	r.values = append(r.values[:i], r.values[i+1:]...)
	for j := i; j < len(r.names); j++ {
		r.index[foldName(r.names[j])] = j
	}
	return true
}

func (r *Record) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// RecordValue converts the value stored under name to T.
func RecordValue[T any](r *Record, name string) (T, error) {
	v, ok := r.Lookup(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("record field %s: %w", name, errNoSuchField)
	}
	return typutil.As[T](v)
}

var errNoSuchField = errors.New("no such field")

func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := pjson.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := pjson.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("record field %s: %w", name, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object, keeping the document's member order.
// Nested objects and arrays are decoded as generic values.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("cannot read %v into a record", tok)
	}

	*r = Record{index: make(map[string]int)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record field %s: %w", name, err)
		}
		r.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after record")
	}
	return nil
}

// JSON renders the record, indented when indent is set.
func (r *Record) JSON(indent bool) (string, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return "", err
	}
	if !indent {
		return string(b), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}
