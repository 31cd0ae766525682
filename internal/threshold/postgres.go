package threshold

import (
	"context"
	"database/sql"
	"errors"

	dErrors "greengate/pkg/domain-errors"
)

// PostgresStore reads thresholds from the thresholds table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM thresholds WHERE name = $1`, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", dErrors.New(dErrors.CodeConfigurationMissing, "threshold "+name+" is not configured")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "query threshold")
	}
	return value, nil
}
