// Package refresh rotates the Accurate OAuth tokens and DB session before a
// run touches the data endpoints.
package refresh

import (
	"context"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
)

const component = "TokenRefresher"

// API is the part of the Accurate client the refresher needs.
type API interface {
	RefreshToken(ctx context.Context, creds credentials.Credentials) (*accurate.TokenPair, error)
	RefreshSession(ctx context.Context, creds credentials.Credentials) (string, error)
}

type Refresher struct {
	api    API
	store  credentials.Store
	logger *logger.Logger
}

func New(api API, store credentials.Store, appLogger *logger.Logger) *Refresher {
	return &Refresher{api: api, store: store, logger: appLogger}
}

// Refresh exchanges the refresh token, persists the new pair and then tries
// to renew the DB session. A token failure is fatal and leaves the store
// untouched. A session failure is only logged; the returned credentials then
// keep the previous session.
func (r *Refresher) Refresh(ctx context.Context, creds credentials.Credentials) (credentials.Credentials, error) {
	if err := creds.ValidateForRefresh(); err != nil {
		return creds, err
	}

	pair, err := r.api.RefreshToken(ctx, creds)
	if err != nil {
		r.logger.Error(component, "Token refresh failed: error=%v", err)
		return creds, err
	}

	if err := r.store.Set(ctx, credentials.AccessTokenKey, pair.AccessToken); err != nil {
		return creds, ierr.WithError(err).
			WithMessage("persist access token").
			Mark(ierr.ErrDatabase)
	}
	if err := r.store.Set(ctx, credentials.RefreshTokenKey, pair.RefreshToken); err != nil {
		return creds, ierr.WithError(err).
			WithMessage("persist refresh token").
			WithHint("The previous refresh token is already consumed; re-run the OAuth bootstrap").
			Mark(ierr.ErrDatabase)
	}

	next := creds.WithTokens(pair.AccessToken, pair.RefreshToken)
	r.logger.Info(component, "Access token refreshed: expires_in=%d", pair.ExpiresIn)

	session, err := r.api.RefreshSession(ctx, next)
	if err != nil {
		r.logger.Warn(component, "DB session refresh failed, keeping previous session: error=%v", err)
		return next, nil
	}
	if err := r.store.Set(ctx, credentials.DBSessionKey, session); err != nil {
		r.logger.Warn(component, "DB session refreshed but not persisted, keeping previous session: error=%v", err)
		return next, nil
	}

	r.logger.Info(component, "DB session refreshed")
	return next.WithSession(session), nil
}
