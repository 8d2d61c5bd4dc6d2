package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/store"
)

func scanPassword(row scanner) (*store.UserPassword, error) {
	var (
		p                store.UserPassword
		id               string
		created, updated int64
	)
	if err := row.Scan(&id, &p.PasswordHash, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	p.UserID = parsed
	p.CreatedAt, p.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &p, nil
}

func (s *Store) PasswordByUserID(ctx context.Context, userID uuid.UUID) (*store.UserPassword, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash, created_at, updated_at FROM user_password WHERE user_id = ?`, userID.String())
	p, err := scanPassword(row)
	if err != nil {
		return nil, classify("password by user", err)
	}
	return p, nil
}

func (s *Store) PasswordByEmail(ctx context.Context, email string) (*store.UserPassword, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.user_id, p.password_hash, p.created_at, p.updated_at
		FROM user_password p JOIN user_account a ON a.id = p.user_id
		WHERE a.email = ?`, email)
	p, err := scanPassword(row)
	if err != nil {
		return nil, classify("password by email", err)
	}
	return p, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_password SET password_hash = ?, updated_at = ? WHERE user_id = ?`,
		passwordHash, millis(s.now()), userID.String())
	if err != nil {
		return classify("update password", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update password", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertPassword sets the hash, creating the row for passwordless accounts.
// A missing account surfaces as store.ErrNotFound.
func (s *Store) UpsertPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	now := millis(s.now())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_password (user_id, password_hash, created_at, updated_at)
		SELECT id, ?, ?, ? FROM user_account WHERE id = ?
		ON CONFLICT(user_id) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		passwordHash, now, now, userID.String())
	if err != nil {
		return classify("upsert password", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("upsert password", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePassword(ctx context.Context, userID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_password WHERE user_id = ?`, userID.String())
	if err != nil {
		return false, classify("delete password", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete password", err)
	}
	return n > 0, nil
}
