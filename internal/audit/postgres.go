package audit

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	dErrors "greengate/pkg/domain-errors"
)

// PostgresStore appends events to the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, occurred_at, account_id, username, action, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Timestamp, event.AccountID, event.Username, event.Action, event.Reason, event.RequestID,
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "append audit event")
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, account_id, username, action, reason, request_id
		FROM audit_events
		WHERE account_id = $1
		ORDER BY occurred_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.AccountID, &e.Username, &e.Action, &e.Reason, &e.RequestID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan audit event")
		}
		events = append(events, e)
	}
	return events, dErrors.Wrap(rows.Err(), dErrors.CodeInternal, "iterate audit events")
}
