package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/store"
)

const oauthCols = `id, user_id, provider_name, provider_user_id, registered_at, token_updated_at`

func scanOAuthAccount(row scanner) (*store.OAuthAccount, error) {
	var (
		o                   store.OAuthAccount
		userID              string
		registered, updated int64
	)
	if err := row.Scan(&o.ID, &userID, &o.Provider, &o.ProviderUserID, &registered, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	o.UserID = parsed
	o.RegisteredAt, o.TokenUpdatedAt = fromMillis(registered), fromMillis(updated)
	return &o, nil
}

func (s *Store) OAuthAccountByProviderUser(ctx context.Context, provider, providerUserID string) (*store.OAuthAccount, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+oauthCols+` FROM oauth_account WHERE provider_name = ? AND provider_user_id = ?`,
		provider, providerUserID)
	o, err := scanOAuthAccount(row)
	if err != nil {
		return nil, classify("oauth account by provider user", err)
	}
	return o, nil
}

func (s *Store) OAuthAccountsByUser(ctx context.Context, userID uuid.UUID) ([]store.OAuthAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+oauthCols+` FROM oauth_account WHERE user_id = ? ORDER BY registered_at ASC, id ASC`, userID.String())
	if err != nil {
		return nil, classify("oauth accounts by user", err)
	}
	defer rows.Close()

	var out []store.OAuthAccount
	for rows.Next() {
		o, err := scanOAuthAccount(rows)
		if err != nil {
			return nil, classify("scan oauth account", err)
		}
		out = append(out, *o)
	}
	return out, classify("oauth accounts by user", rows.Err())
}

func (s *Store) insertOAuthAccount(ctx context.Context, tx *sql.Tx, userID uuid.UUID, provider, providerUserID string) (*store.OAuthAccount, error) {
	now := millis(s.now())
	res, err := tx.ExecContext(ctx, `
		INSERT INTO oauth_account (user_id, provider_name, provider_user_id, registered_at, token_updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID.String(), provider, providerUserID, now, now)
	if err != nil {
		return nil, classify("insert oauth account", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify("insert oauth account", err)
	}
	return &store.OAuthAccount{
		ID:             id,
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		RegisteredAt:   fromMillis(now),
		TokenUpdatedAt: fromMillis(now),
	}, nil
}

func (s *Store) RegisterOAuth(ctx context.Context, email, name, provider, providerUserID string) (*store.UserAccount, *store.OAuthAccount, error) {
	var (
		a *store.UserAccount
		o *store.OAuthAccount
	)
	err := s.inTx(ctx, "register oauth", func(tx *sql.Tx) error {
		var err error
		if a, err = s.insertAccount(ctx, tx, email, name); err != nil {
			return err
		}
		o, err = s.insertOAuthAccount(ctx, tx, a.ID, provider, providerUserID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return a, o, nil
}

func (s *Store) AppendOAuthAccount(ctx context.Context, userID uuid.UUID, provider, providerUserID string) (*store.OAuthAccount, error) {
	var o *store.OAuthAccount
	err := s.inTx(ctx, "append oauth account", func(tx *sql.Tx) error {
		var err error
		o, err = s.insertOAuthAccount(ctx, tx, userID, provider, providerUserID)
		return err
	})
	return o, err
}

func (s *Store) DeleteOAuthAccount(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_account WHERE id = ?`, id)
	if err != nil {
		return false, classify("delete oauth account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete oauth account", err)
	}
	return n > 0, nil
}
