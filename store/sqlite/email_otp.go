package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/store"
)

const emailOtpCols = `id, user_id, email, otp_code, usage, created_at, expires_at, used, used_at`

func scanEmailOtp(row scanner) (*store.EmailOtp, error) {
	var (
		o                store.EmailOtp
		userID           sql.NullString
		usage            string
		created, expires int64
		usedAt           sql.NullInt64
	)
	if err := row.Scan(&o.ID, &userID, &o.Email, &o.Code, &usage, &created, &expires, &o.Used, &usedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		parsed, err := uuid.Parse(userID.String)
		if err != nil {
			return nil, err
		}
		o.UserID = uuid.NullUUID{UUID: parsed, Valid: true}
	}
	u, err := store.ParseOtpUsage(usage)
	if err != nil {
		return nil, err
	}
	o.Usage = u
	o.CreatedAt, o.ExpiresAt = fromMillis(created), fromMillis(expires)
	if usedAt.Valid {
		t := fromMillis(usedAt.Int64)
		o.UsedAt = &t
	}
	return &o, nil
}

func (s *Store) CreateEmailOtp(ctx context.Context, otp store.EmailOtp) (*store.EmailOtp, error) {
	var userID sql.NullString
	if otp.UserID.Valid {
		userID = sql.NullString{String: otp.UserID.UUID.String(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO email_otp (user_id, email, otp_code, usage, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, otp.Email, otp.Code, otp.Usage.String(), millis(otp.CreatedAt), millis(otp.ExpiresAt))
	if err != nil {
		return nil, classify("create email otp", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify("create email otp", err)
	}
	out := otp
	out.ID = id
	out.Used, out.UsedAt = false, nil
	out.CreatedAt, out.ExpiresAt = fromMillis(millis(otp.CreatedAt)), fromMillis(millis(otp.ExpiresAt))
	return &out, nil
}

func (s *Store) FindValidEmailOtp(ctx context.Context, email string, usage store.OtpUsage, code string, now time.Time) (*store.EmailOtp, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+emailOtpCols+` FROM email_otp
		WHERE email = ? AND usage = ? AND otp_code = ? AND used = 0 AND expires_at > ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		email, usage.String(), code, millis(now))
	o, err := scanEmailOtp(row)
	if err != nil {
		return nil, classify("find valid email otp", err)
	}
	return o, nil
}

func (s *Store) MarkEmailOtpUsed(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE email_otp SET used = 1, used_at = ? WHERE id = ? AND used = 0`, millis(now), id)
	if err != nil {
		return false, classify("mark email otp used", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("mark email otp used", err)
	}
	return n == 1, nil
}

func (s *Store) CountEmailOtpsSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_otp WHERE email = ? AND created_at > ?`, email, millis(since)).Scan(&n)
	if err != nil {
		return 0, classify("count email otps", err)
	}
	return n, nil
}

func (s *Store) DeleteEmailOtpsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM email_otp WHERE expires_at < ?`, millis(before))
	if err != nil {
		return 0, classify("delete email otps", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("delete email otps", err)
	}
	return n, nil
}
