package restclient

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApiKey(t *testing.T) (*ApiKey, ed25519.PublicKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	key, err := NewApiKey("key-test", base64.RawURLEncoding.EncodeToString(priv))
	require.NoError(t, err)
	return key, pub
}

// TestNewApiKey verifies the API key loading function.
func TestNewApiKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	key, err := NewApiKey("k1", base64.StdEncoding.EncodeToString(priv))
	require.NoError(t, err)
	assert.Equal(t, "k1", key.KeyID)
	assert.Len(t, key.SecretKey, ed25519.PrivateKeySize)

	_, err = NewApiKey("test-key-id", "invalid-base64-!@#$")
	assert.Error(t, err)

	_, err = NewApiKey("short", base64.RawURLEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}

// TestBodyHash verifies the body hashing mechanism.
func TestBodyHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", BodyHash(nil))
	assert.Equal(t, "6ae8a75555209fd6c44157c0aed8016e763ff435a19cf186f76863140143ff72", BodyHash([]byte("test content")))
}

// verifySignature checks a signed request the way the server does.
func verifySignature(t *testing.T, pub ed25519.PublicKey, r *http.Request, body []byte) bool {
	raw := r.URL.RawQuery
	idx := strings.LastIndex(raw, "&_sign=")
	if !assert.True(t, idx > 0, "_sign must be the last parameter: %s", raw) {
		return false
	}

	q := r.URL.Query()
	sig, err := base64.RawURLEncoding.DecodeString(q.Get("_sign"))
	if !assert.NoError(t, err) {
		return false
	}
	q.Del("_sign")

	h := sha256.Sum256(body)
	var msg bytes.Buffer
	msg.WriteString(r.Method)
	msg.WriteByte(0)
	msg.WriteString(r.URL.Path)
	msg.WriteByte(0)
	msg.WriteString(q.Encode())
	msg.WriteByte(0)
	msg.Write(h[:])

	return ed25519.Verify(pub, msg.Bytes(), sig)
}

func TestApiKeySignsRequests(t *testing.T) {
	key, pub := newTestApiKey(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.URL.Query().Get("_key") != "key-test" || !verifySignature(t, pub, r, body) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"user":"usr-1"}`)
	}))
	defer srv.Close()

	// explicit credentials
	res := Create[map[string]string](context.Background(), srv.URL+"/User:get?x=1", map[string]int{"a": 1}, WithCredentials(key))
	require.NoError(t, res.Exception)
	assert.Equal(t, "usr-1", res.ResponseData["user"])

	// credentials selected by the context
	ctx := key.Use(context.Background())
	res = Get[map[string]string](ctx, srv.URL+"/User:get", nil)
	require.NoError(t, res.Exception)

	// a tampered key is rejected with a permission error
	other, _ := newTestApiKey(t)
	res = Get[map[string]string](context.Background(), srv.URL+"/User:get", nil, WithCredentials(other))
	assert.Equal(t, http.StatusForbidden, res.ResponseStatus)
	assert.ErrorIs(t, res.Exception, os.ErrPermission)
}
