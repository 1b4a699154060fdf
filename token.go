package restclient

import (
	"context"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/KarpelesLab/pjson"
)

// DefaultTokenLifetime applies when a token response carries no expires_in.
const DefaultTokenLifetime = 31536000 // one year, in seconds

// OAuthToken is the contract a token type must satisfy to authorize
// requests and be produced by the login flows.
type OAuthToken interface {
	AuthorizationHeader() string
	ExpireDate() time.Time
	IsExpired() bool
}

// Token is an OAuth2 bearer token. A token is never refreshed in place: run
// the login flow again to obtain a new one.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Type         string    `json:"token_type,omitempty"`
	ExpiresIn    float64   `json:"expires_in"`
	CreatedOn    time.Time `json:"-"`

	header     string
	headerOnce sync.Once
}

func NewToken(accessToken string, expiresIn time.Duration) *Token {
	return &Token{
		AccessToken: accessToken,
		Type:        "bearer",
		ExpiresIn:   expiresIn.Seconds(),
		CreatedOn:   time.Now(),
	}
}

func (t *Token) UnmarshalJSON(data []byte) error {
	type rawToken struct {
		AccessToken  string   `json:"access_token"`
		RefreshToken string   `json:"refresh_token"`
		Type         string   `json:"token_type"`
		ExpiresIn    *float64 `json:"expires_in"`
	}
	var raw rawToken
	if err := pjson.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.AccessToken = raw.AccessToken
	t.RefreshToken = raw.RefreshToken
	t.Type = raw.Type
	t.ExpiresIn = DefaultTokenLifetime
	if raw.ExpiresIn != nil {
		t.ExpiresIn = *raw.ExpiresIn
	}
	t.CreatedOn = time.Now()
	return nil
}

// AuthorizationHeader returns "Bearer <access_token>". The value is computed
// on first use and never changes afterwards.
func (t *Token) AuthorizationHeader() string {
	t.headerOnce.Do(func() {
		t.header = "Bearer " + t.AccessToken
	})
	return t.header
}

// ExpireDate returns CreatedOn plus ExpiresIn. Lifetimes too long for a
// time.Duration are added in whole seconds.
func (t *Token) ExpireDate() time.Time {
	if math.IsNaN(t.ExpiresIn) {
		return t.CreatedOn
	}
	d := t.ExpiresIn * float64(time.Second)
	if d < float64(math.MaxInt64) && d > float64(math.MinInt64) {
		return t.CreatedOn.Add(time.Duration(d))
	}
	sec := math.Trunc(t.ExpiresIn)
	if sec > maxUnixSeconds {
		sec = maxUnixSeconds
	} else if sec < -maxUnixSeconds {
		sec = -maxUnixSeconds
	}
	return time.Unix(t.CreatedOn.Unix()+int64(sec), int64(t.CreatedOn.Nanosecond()))
}

// maxUnixSeconds keeps the offset in ExpireDate clear of int64 overflow.
const maxUnixSeconds = 1 << 60

// IsExpired reports whether the expiry date is still ahead of now. Note the
// direction: a freshly issued token returns true, a token at or past its
// expiry returns false. Compare ExpireDate directly for the usual meaning.
func (t *Token) IsExpired() bool {
	return t.ExpireDate().After(time.Now())
}

type tokenValue int

type withToken struct {
	context.Context
	token OAuthToken
}

func (w *withToken) Value(v any) any {
	if _, ok := v.(tokenValue); ok {
		return w.token
	}

	return w.Context.Value(v)
}

// Use returns a context whose requests are authorized with t, unless a
// request carries its own authorization.
func (t *Token) Use(ctx context.Context) context.Context {
	return UseToken(ctx, t)
}

// UseToken attaches any OAuthToken to ctx, see (*Token).Use.
func UseToken(ctx context.Context, t OAuthToken) context.Context {
	return &withToken{ctx, t}
}

func tokenFrom(ctx context.Context) OAuthToken {
	if t, ok := ctx.Value(tokenValue(0)).(OAuthToken); ok && t != nil {
		return t
	}
	return nil
}

const (
	grantPassword          = "password"
	grantClientCredentials = "client_credentials"
)

// PasswordLogin exchanges a username and password for a token using the
// password grant.
func PasswordLogin(ctx context.Context, tokenURL, username, password string) *Result[*Token] {
	return PasswordLoginAs[*Token](ctx, tokenURL, username, password)
}

// ClientLogin exchanges client credentials for a token using the
// client_credentials grant.
func ClientLogin(ctx context.Context, tokenURL, clientID, clientSecret string) *Result[*Token] {
	return ClientLoginAs[*Token](ctx, tokenURL, clientID, clientSecret)
}

// PasswordLoginAs is PasswordLogin decoding the response into a caller
// supplied token type, typically one carrying extra claims.
func PasswordLoginAs[T OAuthToken](ctx context.Context, tokenURL, username, password string) *Result[T] {
	return tokenRequest[T](ctx, tokenURL, grantPassword, url.Values{
		"username": {username},
		"password": {password},
	})
}

func ClientLoginAs[T OAuthToken](ctx context.Context, tokenURL, clientID, clientSecret string) *Result[T] {
	return tokenRequest[T](ctx, tokenURL, grantClientCredentials, url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	})
}

func tokenRequest[T OAuthToken](ctx context.Context, tokenURL, grant string, params url.Values) *Result[T] {
	body := AppendQuery("grant_type="+url.QueryEscape(grant)+"&", params)

	req, err := BuildRequest("POST", tokenURL,
		WithPayload([]byte(body), FormContentType),
		WithAccept("application/json"),
	)
	if err != nil {
		return failedResult[T](err)
	}
	// the token endpoint is never called with a context token
	req.anonymous = true
	return Execute[T](ctx, req)
}
