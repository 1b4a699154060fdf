package restclient

import (
	"context"
	"encoding/xml"
	"errors"
	"net/url"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codecItem struct {
	XMLName xml.Name `json:"-" xml:"item"`
	ID      int      `json:"id" xml:"id"`
	Name    string   `json:"name" xml:"name"`
}

func TestContentTypeFor(t *testing.T) {
	testCases := []struct {
		kind ContentKind
		want string
	}{
		{KindJSON, "application/json"},
		{KindXML, "application/xml"},
		{KindText, "text/plain"},
		{KindHTML, "text/html"},
		{KindForm, "application/x-www-form-urlencoded; charset=UTF-8"},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			ct, err := ContentTypeFor(tc.kind)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ct)
		})
	}

	_, err := ContentTypeFor(ContentKind(42))
	assert.ErrorIs(t, err, ErrUnsupportedContentKind)
	_, err = Serialize(context.Background(), ContentKind(42), "x")
	assert.ErrorIs(t, err, ErrUnsupportedContentKind)
}

func TestSerializeRoundTrip(t *testing.T) {
	ctx := context.Background()
	in := codecItem{ID: 4, Name: "widget"}

	data, err := Serialize(ctx, KindJSON, in)
	require.NoError(t, err)
	out, err := Deserialize[codecItem](ctx, "application/json; charset=utf-8", data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Name, out.Name)

	data, err = Serialize(ctx, KindXML, in)
	require.NoError(t, err)
	assert.Equal(t, `<item><id>4</id><name>widget</name></item>`, string(data))
	out, err = Deserialize[codecItem](ctx, "TEXT/XML", data)
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)

	form := url.Values{"q": {"a b"}, "n": {"1", "2"}}
	data, err = Serialize(ctx, KindForm, form)
	require.NoError(t, err)
	back, err := url.ParseQuery(string(data))
	require.NoError(t, err)
	assert.Equal(t, form, back)
}

func TestSerializeVerbatim(t *testing.T) {
	ctx := context.Background()

	data, err := Serialize(ctx, KindXML, "<raw attr='1'/>")
	require.NoError(t, err)
	assert.Equal(t, "<raw attr='1'/>", string(data))

	doc := etree.NewDocument()
	doc.CreateElement("root").CreateElement("child").SetText("v")
	data, err = Serialize(ctx, KindXML, doc)
	require.NoError(t, err)
	assert.Equal(t, "<root><child>v</child></root>", string(data))

	data, err = Serialize(ctx, KindHTML, "<b>bold</b>")
	require.NoError(t, err)
	assert.Equal(t, "<b>bold</b>", string(data))

	data, err = Serialize(ctx, KindText, 12.5)
	require.NoError(t, err)
	assert.Equal(t, "12.5", string(data))

	data, err = Serialize(ctx, KindForm, map[string]any{"b": 2, "a": []any{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, "a=x&a=y&b=2", string(data))
}

func TestDecodeDispatch(t *testing.T) {
	ctx := context.Background()

	var s string
	require.NoError(t, Decode(ctx, "application/octet-stream", []byte("anything"), &s))
	assert.Equal(t, "anything", s)

	var doc *etree.Document
	require.NoError(t, Decode(ctx, "application/rss+xml", []byte("<rss><channel/></rss>"), &doc))
	require.NotNil(t, doc)
	assert.Equal(t, "rss", doc.Root().Tag)

	var item codecItem
	require.NoError(t, Decode(ctx, "application/problem+json", []byte(`{"id":1,"name":"p"}`), &item))
	assert.Equal(t, "p", item.Name)

	// empty bodies never reach a decoder
	item = codecItem{}
	require.NoError(t, Decode(ctx, "application/x-unknown", nil, &item))
	assert.Equal(t, codecItem{}, item)
}

func TestDecodeErrors(t *testing.T) {
	ctx := context.Background()

	var item codecItem
	err := Decode(ctx, "application/octet-stream", []byte("xx"), &item)
	var unsupported *UnsupportedResponseContentTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "application/octet-stream", unsupported.ContentType)
	assert.Equal(t, "restclient.codecItem", unsupported.Shape)

	err = Decode(ctx, "application/json", []byte("{broken"), &item)
	var malformed *MalformedBodyError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "application/json", malformed.ContentType)

	v, err := Deserialize[codecItem](ctx, "text/xml", []byte("<item><id>x</id></item>"))
	assert.Error(t, err)
	assert.Equal(t, codecItem{}, v)
}
