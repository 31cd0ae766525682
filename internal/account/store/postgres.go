package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"greengate/internal/account/models"
)

// PostgresStore persists accounts in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `
	id, username, nic, mobile, email, gov_id, roles, status,
	otp_hash, otp_status, otp_sent_at, otp_attempts, verify_attempts,
	login_attempts, disabled_reason,
	full_name, address_no, address_street, city, postal_code,
	date_of_birth, profile_pic, password_hash, registered_at,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
	`
	_, err := s.db.ExecContext(ctx, query, insertArgs(a)...)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts SET
			nic = $2, mobile = $3, email = $4, gov_id = $5, roles = $6, status = $7,
			otp_hash = $8, otp_status = $9, otp_sent_at = $10, otp_attempts = $11,
			verify_attempts = $12, login_attempts = $13, disabled_reason = $14,
			full_name = $15, address_no = $16, address_street = $17, city = $18,
			postal_code = $19, date_of_birth = $20, profile_pic = $21,
			password_hash = $22, registered_at = $23, updated_at = $24
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.NIC, a.Mobile, a.Email, a.GovID, pq.Array(a.Roles.Names()), string(a.Status),
		a.OtpHash, string(a.OtpStatus), nullTime(a.OtpSentAt), a.OtpAttempts,
		a.VerifyAttempts, a.LoginAttempts, a.DisabledReason,
		a.FullName, a.AddressNo, a.AddressStreet, a.City,
		a.PostalCode, a.DateOfBirth, a.ProfilePic,
		a.PasswordHash, nullTime(a.RegisteredAt), a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (s *PostgresStore) FindByNaturalKey(ctx context.Context, nic, mobile, email string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE nic = $1 OR mobile = $2 OR email = $3`
	rows, err := s.db.QueryContext(ctx, query, nic, mobile, email)
	if err != nil {
		return nil, fmt.Errorf("find by natural key: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// IncrementVerifyAttempts uses a single UPDATE..RETURNING so concurrent
// verification attempts cannot both observe the pre-increment counter and
// bypass the budget.
func (s *PostgresStore) IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET verify_attempts = verify_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING verify_attempts
	`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment verify attempts: %w", err)
	}
	return attempts, nil
}

func (s *PostgresStore) IncrementLoginAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET login_attempts = login_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING login_attempts
	`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment login attempts: %w", err)
	}
	return attempts, nil
}

func (s *PostgresStore) ResetLoginAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET login_attempts = 0, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}

// MarkOtpVerified flips the issuance only while it is still SENT, so two
// racing verifications cannot both succeed.
func (s *PostgresStore) MarkOtpVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET otp_status = $2, status = $3, otp_attempts = 0, verify_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND otp_status = $4
	`, id, string(models.OtpStatusVerified), string(models.StatusVerified), string(models.OtpStatusSent))
	if err != nil {
		return false, fmt.Errorf("mark otp verified: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark otp verified rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) DisableIfActive(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = $2, disabled_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, string(models.StatusDisabled), reason, string(models.StatusActive))
	if err != nil {
		return false, fmt.Errorf("disable account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("disable account rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

func insertArgs(a *models.Account) []any {
	return []any{
		a.ID, a.Username, a.NIC, a.Mobile, a.Email, a.GovID, pq.Array(a.Roles.Names()), string(a.Status),
		a.OtpHash, string(a.OtpStatus), nullTime(a.OtpSentAt), a.OtpAttempts, a.VerifyAttempts,
		a.LoginAttempts, a.DisabledReason,
		a.FullName, a.AddressNo, a.AddressStreet, a.City, a.PostalCode,
		a.DateOfBirth, a.ProfilePic, a.PasswordHash, nullTime(a.RegisteredAt),
		a.CreatedAt, a.UpdatedAt,
	}
}

type accountRow interface {
	Scan(dest ...any) error
}

func scanAccount(row accountRow) (*models.Account, error) {
	var (
		a          models.Account
		govID      sql.NullInt64
		roles      pq.StringArray
		status     string
		otpStatus  sql.NullString
		otpSentAt  sql.NullTime
		registered sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.Username, &a.NIC, &a.Mobile, &a.Email, &govID, &roles, &status,
		&a.OtpHash, &otpStatus, &otpSentAt, &a.OtpAttempts, &a.VerifyAttempts,
		&a.LoginAttempts, &a.DisabledReason,
		&a.FullName, &a.AddressNo, &a.AddressStreet, &a.City, &a.PostalCode,
		&a.DateOfBirth, &a.ProfilePic, &a.PasswordHash, &registered,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if govID.Valid {
		g := govID.Int64
		a.GovID = &g
	}
	a.Roles = models.NewRoleSet(roles...)
	a.Status = models.Status(status)
	if otpStatus.Valid {
		a.OtpStatus = models.OtpStatus(otpStatus.String)
	}
	if otpSentAt.Valid {
		a.OtpSentAt = otpSentAt.Time
	}
	if registered.Valid {
		a.RegisteredAt = registered.Time
	}
	return &a, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
