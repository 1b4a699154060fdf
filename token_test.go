package restclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTokenContext tests token context manipulation functions
func TestTokenContext(t *testing.T) {
	token := NewToken("test-access-token", time.Hour)

	baseCtx := context.Background()
	tokenCtx := token.Use(baseCtx)

	assert.Equal(t, OAuthToken(token), tokenFrom(tokenCtx))
	assert.Nil(t, tokenFrom(baseCtx))

	type keyType string
	assert.Nil(t, tokenCtx.Value(keyType("test-key")))
}

// TestTokenIsExpiredDirection pins the expiry predicate: it is true while
// the expiry date lies in the future.
func TestTokenIsExpiredDirection(t *testing.T) {
	fresh := NewToken("a", time.Hour)
	assert.True(t, fresh.IsExpired())

	edge := &Token{AccessToken: "b", ExpiresIn: 0, CreatedOn: time.Now()}
	assert.False(t, edge.IsExpired())
	assert.False(t, edge.ExpireDate().After(time.Now()))

	old := &Token{AccessToken: "c", ExpiresIn: 60, CreatedOn: time.Now().Add(-time.Hour)}
	assert.False(t, old.IsExpired())
}

func TestTokenLongLifetime(t *testing.T) {
	now := time.Now()
	tok := &Token{AccessToken: "a", ExpiresIn: 1e12, CreatedOn: now}
	assert.True(t, tok.ExpireDate().After(now.AddDate(30000, 0, 0)))
	assert.True(t, tok.IsExpired())

	tok = &Token{AccessToken: "b", ExpiresIn: 1e30, CreatedOn: now}
	assert.True(t, tok.ExpireDate().After(now))

	tok = &Token{AccessToken: "c", ExpiresIn: 90, CreatedOn: now}
	assert.Equal(t, now.Add(90*time.Second), tok.ExpireDate())
}

func TestTokenUnmarshal(t *testing.T) {
	var tok Token
	require.NoError(t, json.Unmarshal([]byte(`{"access_token":"abc","token_type":"bearer"}`), &tok))
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, float64(DefaultTokenLifetime), tok.ExpiresIn)
	assert.WithinDuration(t, time.Now(), tok.CreatedOn, time.Minute)

	var short Token
	require.NoError(t, json.Unmarshal([]byte(`{"access_token":"x","expires_in":0}`), &short))
	assert.Equal(t, float64(0), short.ExpiresIn)
}

func TestTokenHeaderComputedOnce(t *testing.T) {
	tok := NewToken("first", time.Hour)
	assert.Equal(t, "Bearer first", tok.AuthorizationHeader())

	tok.AccessToken = "second"
	assert.Equal(t, "Bearer first", tok.AuthorizationHeader())
}

func tokenServer(t *testing.T, wantBody string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method != "POST",
			r.Header.Get("Content-Type") != FormContentType,
			r.Header.Get("Authorization") != "",
			string(body) != wantBody:
			t.Logf("unexpected token request %s %q %q", r.Method, r.Header.Get("Content-Type"), body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_request"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		io.WriteString(w, `{"access_token":"tok-1","refresh_token":"ref-1","token_type":"bearer","expires_in":3600,"scope":"read"}`)
	}))
}

func TestPasswordLogin(t *testing.T) {
	srv := tokenServer(t, "grant_type=password&password=p%40ss+w&username=bob")
	defer srv.Close()

	// a token already attached to the context must not leak to the token endpoint
	ctx := NewToken("stale", time.Hour).Use(context.Background())

	res := PasswordLogin(ctx, srv.URL+"/oauth/token", "bob", "p@ss w")
	require.NoError(t, res.Exception)
	assert.Equal(t, http.StatusOK, res.ResponseStatus)
	require.NotNil(t, res.ResponseData)
	assert.Equal(t, "tok-1", res.ResponseData.AccessToken)
	assert.Equal(t, "ref-1", res.ResponseData.RefreshToken)
	assert.Equal(t, float64(3600), res.ResponseData.ExpiresIn)
	assert.Equal(t, "Bearer tok-1", res.ResponseData.AuthorizationHeader())
	assert.True(t, res.ResponseData.IsExpired())
}

func TestClientLoginFailure(t *testing.T) {
	srv := tokenServer(t, "grant_type=client_credentials&client_id=id&client_secret=wrong")
	defer srv.Close()

	res := ClientLogin(context.Background(), srv.URL, "id", "secret")
	assert.Equal(t, http.StatusBadRequest, res.ResponseStatus)
	assert.Equal(t, StatusProtocolError, res.ExceptionStatus)
	assert.Error(t, res.Exception)
	assert.Nil(t, res.ResponseData)
}

type scopedToken struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
	Scope       string  `json:"scope"`
}

func (s *scopedToken) AuthorizationHeader() string { return "Bearer " + s.AccessToken }
func (s *scopedToken) ExpireDate() time.Time {
	return time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
}
func (s *scopedToken) IsExpired() bool { return s.ExpireDate().After(time.Now()) }

func TestClientLoginAs(t *testing.T) {
	srv := tokenServer(t, "grant_type=client_credentials&client_id=app&client_secret=s3cr%26t")
	defer srv.Close()

	res := ClientLoginAs[*scopedToken](context.Background(), srv.URL, "app", "s3cr&t")
	require.NoError(t, res.Exception)
	require.NotNil(t, res.ResponseData)
	assert.Equal(t, "read", res.ResponseData.Scope)
	assert.Equal(t, "Bearer tok-1", res.ResponseData.AuthorizationHeader())
}
