package main

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/response"
)

type OAuthCallbackResponse = response.APIResponse[map[string]any]

const (
	oauthStateCookie = "accurate_oauth_state"
	oauthStatePath   = "/v1/oauth"
	oauthStateTTL    = 10 * time.Minute
)

func setStateCookie(w http.ResponseWriter, r *http.Request, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     oauthStatePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// checkState matches the state echoed by Accurate against the one issued at
// login. The cookie is single use.
func checkState(w http.ResponseWriter, r *http.Request) bool {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	setStateCookie(w, r, "", -1)
	state := r.URL.Query().Get("state")
	return subtle.ConstantTimeCompare([]byte(state), []byte(cookie.Value)) == 1
}

// @Summary		Start the OAuth bootstrap
// @Description	Redirects the operator to the Accurate consent page. A random state is kept in a short-lived cookie.
// @Tags			OAuth
// @Success		302
// @Router			/oauth/login [get]
func (app *application) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	setStateCookie(w, r, state, int(oauthStateTTL.Seconds()))
	target := accurate.AuthorizeURL(app.config.Static(), app.config.Accurate.RedirectURI, app.config.Accurate.Scope, state)
	http.Redirect(w, r, target, http.StatusFound)
}

// @Summary		OAuth callback
// @Description	Exchanges the authorization code and stores the first token pair.
// @Tags			OAuth
// @Produce		json
// @Param			code	query		string					false	"Authorization code"
// @Param			state	query		string					false	"State issued by /oauth/login"
// @Param			error	query		string					false	"Error reported by Accurate"
// @Success		200		{object}	OAuthCallbackResponse	"Tokens stored"
// @Failure		400		{object}	response.ErrorResponse	"Missing code, consent denied or state mismatch"
// @Failure		502		{object}	response.ErrorResponse	"Token exchange failed"
// @Router			/oauth/callback [get]
func (app *application) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	const component = "OAuthCallback"

	query := r.URL.Query()
	if oauthErr := query.Get("error"); oauthErr != "" {
		writeJSONError(w, http.StatusBadRequest, "oauth error: "+oauthErr)
		return
	}
	if !checkState(w, r) {
		app.logger.Warn(component, "Rejected callback: state missing or mismatched")
		writeJSONError(w, http.StatusBadRequest, "oauth state missing or mismatched; restart the login from /v1/oauth/login")
		return
	}
	code := query.Get("code")
	if code == "" {
		writeJSONError(w, http.StatusBadRequest, "no authorization code received")
		return
	}

	ctx := r.Context()
	pair, err := app.oauth.ExchangeCode(ctx, app.config.Static(), code, app.config.Accurate.RedirectURI)
	if err != nil {
		app.logger.Error(component, "Token exchange failed: error=%v hints=%v", err, ierr.Hints(err))
		writeError(w, err)
		return
	}

	// Refresh token last: a stored refresh token marks the bootstrap complete.
	if err := app.credentials.Set(ctx, credentials.AccessTokenKey, pair.AccessToken); err != nil {
		app.logger.Error(component, "Failed to store access token: error=%v", err)
		writeError(w, err)
		return
	}
	if err := app.credentials.Set(ctx, credentials.RefreshTokenKey, pair.RefreshToken); err != nil {
		app.logger.Error(component, "Failed to store refresh token: error=%v", err)
		writeError(w, err)
		return
	}

	app.logger.Info(component, "OAuth bootstrap completed: expires_in=%d scope=%s", pair.ExpiresIn, pair.Scope)

	response := &OAuthCallbackResponse{
		Success: true,
		Data: map[string]any{
			"expires_in": pair.ExpiresIn,
			"scope":      pair.Scope,
		},
		Message: "Tokens stored; the next refresh stage will rotate them",
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
