package accurate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// TokenPair is the token endpoint response. The refresh token is single use:
// the one sent is consumed and RefreshToken replaces it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// RefreshToken exchanges creds.RefreshToken for a new token pair. The grant
// is sent once: a retry after a lost response would replay a consumed token.
// Every failure is marked ierr.ErrAuthentication.
func (c *Client) RefreshToken(ctx context.Context, creds credentials.Credentials) (*TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.RefreshToken)

	return c.requestToken(ctx, creds.Static, form,
		"The refresh token may be expired, or consumed by an earlier request whose response was lost; re-run the OAuth bootstrap to obtain a new one")
}

// ExchangeCode trades an authorization code from the OAuth callback for the
// first token pair. Codes are single use, so it is not retried either.
func (c *Client) ExchangeCode(ctx context.Context, static credentials.Static, code, redirectURI string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)

	return c.requestToken(ctx, static, form,
		"Authorization codes are single use; restart the login from /v1/oauth/login")
}

// AuthorizeURL is where an operator is sent to grant access. Accurate echoes
// state back to the callback.
func AuthorizeURL(static credentials.Static, redirectURI, scope, state string) string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", static.ClientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("scope", scope)
	query.Set("state", state)
	return joinURL(static.APIBaseURL, "/oauth/authorize") + "?" + query.Encode()
}

var singleAttempt = RetryPolicy{MaxRetries: 0}

func (c *Client) requestToken(ctx context.Context, static credentials.Static, form url.Values, hint string) (*TokenPair, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(static.ClientID + ":" + static.ClientSecret))
	header := http.Header{}
	header.Set("Authorization", "Basic "+basic)
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("Accept", "application/json")

	resp, err := c.send(ctx, singleAttempt, request{
		method: http.MethodPost,
		url:    joinURL(static.APIBaseURL, "/oauth/token"),
		header: header,
		body:   []byte(form.Encode()),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(map[string]any{
				"status_code": StatusCode(err),
			}).
			Mark(ierr.ErrAuthentication)
	}

	var pair TokenPair
	if err := json.Unmarshal(resp.body, &pair); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("decode token response").
			Mark(ierr.ErrAuthentication)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, ierr.NewError("token response is missing access_token or refresh_token").
			Mark(ierr.ErrAuthentication)
	}

	return &pair, nil
}

type sessionPayload struct {
	Session string `json:"session"`
}

// RefreshSession exchanges the current DB session for a fresh one using
// creds.AccessToken. Failures are marked ierr.ErrDegradedSession.
func (c *Client) RefreshSession(ctx context.Context, creds credentials.Credentials) (string, error) {
	query := url.Values{}
	query.Set("id", creds.DatabaseID)
	query.Set("session", creds.DBSession)

	resp, err := c.send(ctx, c.authRetry, request{
		method: http.MethodGet,
		url:    joinURL(creds.APIBaseURL, "/api/db-refresh-session.do"),
		query:  query,
		header: bearerHeader(creds.AccessToken),
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithReportableDetails(map[string]any{
				"status_code": StatusCode(err),
			}).
			Mark(ierr.ErrDegradedSession)
	}

	var payload sessionPayload
	if err := decodeEnvelope(resp.body, &payload); err != nil {
		return "", ierr.WithError(err).
			WithMessage("decode db session response").
			Mark(ierr.ErrDegradedSession)
	}
	if payload.Session == "" {
		return "", ierr.NewError("db session response has an empty session").
			Mark(ierr.ErrDegradedSession)
	}

	return payload.Session, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
