package credentials

import (
	"context"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// Names under which the rotating values are kept in a Store.
const (
	AccessTokenKey  = "accurate_access_token"
	RefreshTokenKey = "accurate_refresh_token"
	DBSessionKey    = "accurate_db_session"
)

// Store is a durable name/value store for the rotating credentials.
// Get returns an error marked ierr.ErrNotFound when the name was never set.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}

// Static is the part of the credentials that comes from configuration.
type Static struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	DataHost     string
	DatabaseID   string
}

// Credentials is passed by value into every stage that talks to Accurate.
// A refresh produces a new value; nothing mutates a shared copy.
type Credentials struct {
	Static
	AccessToken  string
	RefreshToken string
	DBSession    string
}

// Load combines static configuration with the current values in the store.
// Missing rotating values are left empty; stages validate what they need.
func Load(ctx context.Context, store Store, static Static) (Credentials, error) {
	creds := Credentials{Static: static}
	if creds.DataHost == "" {
		creds.DataHost = creds.APIBaseURL
	}

	targets := map[string]*string{
		AccessTokenKey:  &creds.AccessToken,
		RefreshTokenKey: &creds.RefreshToken,
		DBSessionKey:    &creds.DBSession,
	}
	for name, dst := range targets {
		value, err := store.Get(ctx, name)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return Credentials{}, ierr.WithError(err).
				WithMessagef("load credential %s", name).
				Mark(ierr.ErrDatabase)
		}
		*dst = value
	}

	return creds, nil
}

// WithTokens returns a copy carrying a new access/refresh token pair.
func (c Credentials) WithTokens(accessToken, refreshToken string) Credentials {
	c.AccessToken = accessToken
	c.RefreshToken = refreshToken
	return c
}

// WithSession returns a copy carrying a new DB session handle.
func (c Credentials) WithSession(session string) Credentials {
	c.DBSession = session
	return c
}

// ValidateForRefresh checks what the token exchange needs.
func (c Credentials) ValidateForRefresh() error {
	missing := missingFields(
		field{"client_id", c.ClientID},
		field{"client_secret", c.ClientSecret},
		field{"api_base_url", c.APIBaseURL},
		field{"refresh_token", c.RefreshToken},
	)
	if len(missing) > 0 {
		return ierr.NewErrorf("missing credentials for token refresh: %v", missing).
			WithHint("Bootstrap the refresh token through the OAuth authorization-code flow and configure client_id/client_secret").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ValidateForData checks what list/detail requests need.
func (c Credentials) ValidateForData() error {
	missing := missingFields(
		field{"data_host", c.DataHost},
		field{"access_token", c.AccessToken},
		field{"db_session", c.DBSession},
	)
	if len(missing) > 0 {
		return ierr.NewErrorf("missing credentials for data access: %v", missing).
			WithHint("Run the refresh stage first").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type field struct {
	name  string
	value string
}

func missingFields(fields ...field) []string {
	var out []string
	for _, f := range fields {
		if f.value == "" {
			out = append(out, f.name)
		}
	}
	return out
}
