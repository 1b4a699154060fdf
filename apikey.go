package restclient

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ApiKey signs requests with an Ed25519 key. It implements Credentials:
// the key id, a timestamp, a nonce and the signature are added to the
// request query.
type ApiKey struct {
	KeyID     string
	SecretKey []byte
}

type apiKeyValue int

type withApiKey struct {
	context.Context
	apiKey *ApiKey
}

func (w *withApiKey) Value(v any) any {
	if _, ok := v.(apiKeyValue); ok {
		return w.apiKey
	}

	return w.Context.Value(v)
}

// NewApiKey creates an ApiKey from its id and its secret, a base64url (or
// standard base64) encoded Ed25519 private key.
func NewApiKey(keyID, secret string) (*ApiKey, error) {
	decodedSecret, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		decodedSecret, err = base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 secret: %w", err)
		}
	}
	if len(decodedSecret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid secret: expected %d bytes, got %d", ed25519.PrivateKeySize, len(decodedSecret))
	}

	return &ApiKey{
		KeyID:     keyID,
		SecretKey: decodedSecret,
	}, nil
}

// Use returns a context whose requests are signed with a, unless a request
// carries its own authorization.
func (a *ApiKey) Use(ctx context.Context) context.Context {
	return &withApiKey{ctx, a}
}

func apiKeyFrom(ctx context.Context) *ApiKey {
	if a, ok := ctx.Value(apiKeyValue(0)).(*ApiKey); ok && a != nil {
		return a
	}
	return nil
}

// BodyHash returns the hex encoded SHA256 of body.
func BodyHash(body []byte) string {
	h := sha256.Sum256(body)
	return hex.EncodeToString(h[:])
}

// generateSignature signs method, path, the query without _sign and the
// body hash, separated by NUL bytes.
func (a *ApiKey) generateSignature(method, path string, queryParams url.Values, body []byte) string {
	bodyHash := sha256.Sum256(body)

	queryParamsCopy := url.Values{}
	for k, v := range queryParams {
		if k != "_sign" {
			queryParamsCopy[k] = v
		}
	}

	var signString bytes.Buffer
	signString.WriteString(method)
	signString.WriteByte(0)
	signString.WriteString(path)
	signString.WriteByte(0)
	signString.WriteString(queryParamsCopy.Encode())
	signString.WriteByte(0)
	signString.Write(bodyHash[:])

	signature := ed25519.Sign(ed25519.PrivateKey(a.SecretKey), signString.Bytes())
	return base64.RawURLEncoding.EncodeToString(signature)
}

// Authorize adds _key, _time, _nonce and finally _sign to the request
// query.
func (a *ApiKey) Authorize(req *http.Request, body []byte) error {
	if a == nil {
		return fmt.Errorf("nil API key")
	}
	if len(a.SecretKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("invalid API key secret size %d", len(a.SecretKey))
	}

	q := req.URL.Query()
	q.Del("_sign")
	q.Set("_key", a.KeyID)
	q.Set("_time", strconv.FormatInt(time.Now().Unix(), 10))
	q.Set("_nonce", uuid.New().String())

	signature := a.generateSignature(req.Method, req.URL.Path, q, body)

	// _sign must come last, url.Values.Encode sorts keys
	req.URL.RawQuery = q.Encode() + "&_sign=" + url.QueryEscape(signature)
	return nil
}
