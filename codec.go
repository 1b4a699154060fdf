package restclient

import (
	"context"
	"encoding"
	"encoding/xml"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/KarpelesLab/typutil"
	"github.com/beevik/etree"
)

// ContentKind is the logical category of a payload, independent of the
// literal content type string sent on the wire.
type ContentKind int

const (
	KindJSON ContentKind = iota
	KindXML
	KindText
	KindHTML
	KindForm
)

// FormContentType is the content type used for url-encoded form bodies,
// including OAuth token requests.
const FormContentType = "application/x-www-form-urlencoded; charset=UTF-8"

func (k ContentKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindXML:
		return "xml"
	case KindText:
		return "text"
	case KindHTML:
		return "html"
	case KindForm:
		return "form"
	default:
		return fmt.Sprintf("ContentKind(%d)", int(k))
	}
}

// ContentTypeFor returns the wire content type of a content kind.
func ContentTypeFor(kind ContentKind) (string, error) {
	switch kind {
	case KindJSON:
		return "application/json", nil
	case KindXML:
		return "application/xml", nil
	case KindText:
		return "text/plain", nil
	case KindHTML:
		return "text/html", nil
	case KindForm:
		return FormContentType, nil
	default:
		return "", &UnsupportedContentKindError{Kind: kind}
	}
}

// Serialize renders v as a request body of the given kind.
//
// JSON values may contain shared or cyclic pointers, see marshalGraph. XML
// accepts strings and etree nodes verbatim and reflects over anything else.
// Text and HTML only convert the value to a string.
func Serialize(ctx context.Context, kind ContentKind, v any) ([]byte, error) {
	switch kind {
	case KindJSON:
		return marshalGraph(ctx, v)
	case KindXML:
		return marshalXML(v)
	case KindText, KindHTML:
		return []byte(toText(v)), nil
	case KindForm:
		return marshalForm(v)
	default:
		return nil, &UnsupportedContentKindError{Kind: kind}
	}
}

// Decode parses a response body into target, choosing the decoder from the
// response content type. target must be a non-nil pointer. An empty body
// leaves target untouched.
func Decode(ctx context.Context, contentType string, body []byte, target any) error {
	if len(body) == 0 {
		return nil
	}

	// raw text targets accept any content type
	switch t := target.(type) {
	case *string:
		*t = string(body)
		return nil
	case *[]byte:
		*t = append([]byte(nil), body...)
		return nil
	}

	mt := mediaType(contentType)
	switch {
	case isJSONType(mt):
		if err := unmarshalGraph(ctx, body, target); err != nil {
			return &MalformedBodyError{ContentType: contentType, Err: err}
		}
		return nil
	case isXMLType(mt):
		if err := unmarshalXML(body, target); err != nil {
			return &MalformedBodyError{ContentType: contentType, Err: err}
		}
		return nil
	case mt == "text/plain" || mt == "text/html":
		if tu, ok := target.(encoding.TextUnmarshaler); ok {
			if err := tu.UnmarshalText(body); err != nil {
				return &MalformedBodyError{ContentType: contentType, Err: err}
			}
			return nil
		}
	}

	return &UnsupportedResponseContentTypeError{ContentType: contentType, Shape: shapeName(target)}
}

// Deserialize is the generic form of Decode, returning the zero value of T
// for an empty body or on failure.
func Deserialize[T any](ctx context.Context, contentType string, body []byte) (T, error) {
	var v T
	if len(body) == 0 {
		return v, nil
	}
	if err := Decode(ctx, contentType, body, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// mediaType lowercases a content type and strips its parameters.
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func isJSONType(mt string) bool {
	switch mt {
	case "application/json", "text/json":
		return true
	}
	return strings.HasSuffix(mt, "+json")
}

func isXMLType(mt string) bool {
	switch mt {
	case "application/xml", "text/xml", "application/rss+xml":
		return true
	}
	return strings.HasSuffix(mt, "+xml")
}

func shapeName(target any) string {
	t := reflect.TypeOf(target)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func marshalXML(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case *etree.Document:
		return x.WriteToBytes()
	case *etree.Element:
		doc := etree.NewDocument()
		doc.SetRoot(x.Copy())
		return doc.WriteToBytes()
	default:
		return xml.Marshal(v)
	}
}

func unmarshalXML(body []byte, target any) error {
	switch t := target.(type) {
	case *etree.Document:
		return t.ReadFromBytes(body)
	case **etree.Document:
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(body); err != nil {
			return err
		}
		*t = doc
		return nil
	default:
		return xml.Unmarshal(body, target)
	}
}

func marshalForm(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case url.Values:
		return []byte(x.Encode()), nil
	case map[string]string:
		q := make(url.Values, len(x))
		for k, s := range x {
			q.Set(k, s)
		}
		return []byte(q.Encode()), nil
	case map[string]any:
		q, err := formValues(x)
		if err != nil {
			return nil, err
		}
		return []byte(q.Encode()), nil
	case *Record:
		m := make(map[string]any, x.Len())
		for _, k := range x.Names() {
			m[k] = x.Get(k)
		}
		q, err := formValues(m)
		if err != nil {
			return nil, err
		}
		return []byte(q.Encode()), nil
	default:
		return nil, fmt.Errorf("[rest] cannot encode %T as form content", v)
	}
}

// formValues flattens a generic map into form values, one value per slice
// element.
func formValues(m map[string]any) (url.Values, error) {
	q := make(url.Values, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch val := m[k].(type) {
		case nil:
			q.Add(k, "")
		case []string:
			for _, s := range val {
				q.Add(k, s)
			}
		case []any:
			for _, sub := range val {
				s, err := typutil.As[string](sub)
				if err != nil {
					return nil, fmt.Errorf("form field %s: %w", k, err)
				}
				q.Add(k, s)
			}
		default:
			s, err := typutil.As[string](val)
			if err != nil {
				return nil, fmt.Errorf("form field %s: %w", k, err)
			}
			q.Add(k, s)
		}
	}
	return q, nil
}
