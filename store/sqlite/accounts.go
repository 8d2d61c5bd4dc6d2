package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/store"
)

const accountCols = `id, name, email, created_at, updated_at`

func scanAccount(row scanner) (*store.UserAccount, error) {
	var (
		a                store.UserAccount
		id               string
		created, updated int64
	)
	if err := row.Scan(&id, &a.Name, &a.Email, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	a.ID = parsed
	a.CreatedAt, a.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &a, nil
}

func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (*store.UserAccount, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM user_account WHERE id = ?`, id.String())
	a, err := scanAccount(row)
	if err != nil {
		return nil, classify("account by id", err)
	}
	return a, nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*store.UserAccount, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM user_account WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err != nil {
		return nil, classify("account by email", err)
	}
	return a, nil
}

func (s *Store) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	return s.updateAccount(ctx, "update email", `UPDATE user_account SET email = ?, updated_at = ? WHERE id = ?`, email, id)
}

func (s *Store) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return s.updateAccount(ctx, "update name", `UPDATE user_account SET name = ?, updated_at = ? WHERE id = ?`, name, id)
}

func (s *Store) updateAccount(ctx context.Context, op, query, value string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, query, value, millis(s.now()), id.String())
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) insertAccount(ctx context.Context, tx *sql.Tx, email, name string) (*store.UserAccount, error) {
	now := s.now()
	a := &store.UserAccount{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: fromMillis(millis(now)),
		UpdatedAt: fromMillis(millis(now)),
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO user_account (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID.String(), a.Name, a.Email, millis(now), millis(now))
	if err != nil {
		return nil, classify("insert account", err)
	}
	return a, nil
}

func (s *Store) RegisterPasswordless(ctx context.Context, email, name string) (*store.UserAccount, error) {
	var a *store.UserAccount
	err := s.inTx(ctx, "register passwordless", func(tx *sql.Tx) error {
		var err error
		a, err = s.insertAccount(ctx, tx, email, name)
		return err
	})
	return a, err
}

func (s *Store) RegisterWithPassword(ctx context.Context, email, name, passwordHash string) (*store.UserAccount, error) {
	var a *store.UserAccount
	err := s.inTx(ctx, "register with password", func(tx *sql.Tx) error {
		var err error
		if a, err = s.insertAccount(ctx, tx, email, name); err != nil {
			return err
		}
		now := millis(s.now())
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_password (user_id, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			a.ID.String(), passwordHash, now, now)
		return classify("insert password", err)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}
