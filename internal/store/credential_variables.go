package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// CredentialVariableStore keeps the rotating Accurate credentials in the
// 'credential_variables' table.
type CredentialVariableStore struct {
	db *sqlx.DB
}

func (cs *CredentialVariableStore) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := cs.db.GetContext(ctx, &value, `SELECT value FROM credential_variables WHERE name = $1`, name)
	if err != nil {
		if ierr.Is(err, sql.ErrNoRows) {
			return "", ierr.NewErrorf("credential variable %s not set", name).
				Mark(ierr.ErrNotFound)
		}
		return "", ierr.WithError(err).
			WithMessagef("get credential variable %s", name).
			Mark(ierr.ErrDatabase)
	}
	return value, nil
}

func (cs *CredentialVariableStore) Set(ctx context.Context, name, value string) error {
	query := `INSERT INTO credential_variables (name, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := cs.db.ExecContext(ctx, query, name, value); err != nil {
		return ierr.WithError(err).
			WithMessagef("set credential variable %s", name).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
