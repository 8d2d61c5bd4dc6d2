package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/store"
)

func (s *Store) TotpByUser(ctx context.Context, userID uuid.UUID) (*store.Totp, error) {
	var (
		t       = store.Totp{UserID: userID}
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT secret, created_at FROM totp WHERE user_id = ?`, userID.String()).
		Scan(&t.Secret, &created)
	if err != nil {
		return nil, classify("totp by user", err)
	}
	t.CreatedAt = fromMillis(created)
	return &t, nil
}

// InsertTotp enrolls userID. An existing enrollment is store.ErrConflict.
func (s *Store) InsertTotp(ctx context.Context, userID uuid.UUID, secret []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO totp (user_id, secret, created_at) VALUES (?, ?, ?)`,
		userID.String(), secret, millis(s.now()))
	return classify("insert totp", err)
}

func (s *Store) DeleteTotp(ctx context.Context, userID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM totp WHERE user_id = ?`, userID.String())
	if err != nil {
		return false, classify("delete totp", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete totp", err)
	}
	return n > 0, nil
}
