package credentials_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/testutil"
)

func TestLoad(t *testing.T) {
	store := testutil.NewInMemoryCredentialStore(map[string]string{
		credentials.AccessTokenKey:  "access",
		credentials.RefreshTokenKey: "refresh",
	})
	static := credentials.Static{ClientID: "id", ClientSecret: "secret", APIBaseURL: "https://account.accurate.id"}

	creds, err := credentials.Load(context.Background(), store, static)

	require.NoError(t, err)
	assert.Equal(t, "access", creds.AccessToken)
	assert.Equal(t, "refresh", creds.RefreshToken)
	assert.Empty(t, creds.DBSession)
	assert.Equal(t, "https://account.accurate.id", creds.DataHost)
	assert.NoError(t, creds.ValidateForRefresh())

	err = creds.ValidateForData()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Contains(t, err.Error(), "db_session")
}

func TestLoad_StoreFailure(t *testing.T) {
	store := testutil.NewInMemoryCredentialStore(nil)
	store.GetErr = errors.New("connection refused")

	_, err := credentials.Load(context.Background(), store, credentials.Static{})

	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrDatabase))
}

func TestWithTokensAndSessionReturnCopies(t *testing.T) {
	original := credentials.Credentials{AccessToken: "a1", RefreshToken: "r1", DBSession: "s1"}

	next := original.WithTokens("a2", "r2").WithSession("s2")

	assert.Equal(t, "a1", original.AccessToken)
	assert.Equal(t, "s1", original.DBSession)
	assert.Equal(t, "a2", next.AccessToken)
	assert.Equal(t, "r2", next.RefreshToken)
	assert.Equal(t, "s2", next.DBSession)
}

func TestValidateForRefresh_ListsMissing(t *testing.T) {
	err := credentials.Credentials{}.ValidateForRefresh()

	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	for _, name := range []string{"client_id", "client_secret", "api_base_url", "refresh_token"} {
		assert.Contains(t, err.Error(), name)
	}
	assert.NotEmpty(t, ierr.Hints(err))
}
