package mfa

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/store"
)

// EnterSudo issues a sudo token for userID.
func (m *Manager) EnterSudo(ctx context.Context, userID uuid.UUID) (SudoToken, error) {
	var t SudoToken
	s, err := m.settings(ctx)
	if err != nil {
		return t, err
	}
	if err := randomBytes(t[:]); err != nil {
		return t, err
	}
	data, err := stores.NewRecord(recordVersion).Fixed(userID[:]).Bytes()
	if err != nil {
		return t, err
	}
	if err := m.d.Tokens.Write(ctx, t.key(), data, s.SudoTokenTTL.Std()); err != nil {
		return SudoToken{}, err
	}
	return t, nil
}

// VerifySudo reports whether token is live and belongs to userID. The token
// stays valid until it expires.
func (m *Manager) VerifySudo(ctx context.Context, userID uuid.UUID, token SudoToken) (bool, error) {
	data, found, err := m.d.Tokens.Read(ctx, token.key())
	if err != nil || !found {
		return false, err
	}
	owner, err := decodeUser(data)
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}

// ListSudoMethods returns [MethodTotp] for enrolled users and [MethodEmail]
// otherwise.
func (m *Manager) ListSudoMethods(ctx context.Context, userID uuid.UUID) ([]Method, error) {
	enrolled, err := m.IsEnrolled(ctx, userID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return []Method{MethodTotp}, nil
	}
	return []Method{MethodEmail}, nil
}

// VerifyAndEnterSudo checks proof and issues a sudo token. An email code is
// consumed on success.
func (m *Manager) VerifyAndEnterSudo(ctx context.Context, userID uuid.UUID, proof Proof) (SudoResult, error) {
	methods, err := m.ListSudoMethods(ctx, userID)
	if err != nil {
		return SudoResult{}, err
	}
	allowed := false
	for _, method := range methods {
		allowed = allowed || method == proof.Method
	}
	if !allowed {
		return SudoResult{Outcome: SudoMethodNotAllowed}, nil
	}

	var verified bool
	switch proof.Method {
	case MethodTotp:
		verified, err = m.VerifyCode(ctx, userID, proof.Code)
	case MethodEmail:
		verified, err = m.consumeSudoEmailOtp(ctx, userID, proof.Code)
	}
	if err != nil {
		return SudoResult{}, err
	}
	if !verified {
		return SudoResult{Outcome: SudoInvalidCredential}, nil
	}

	token, err := m.EnterSudo(ctx, userID)
	if err != nil {
		return SudoResult{}, err
	}
	return SudoResult{Outcome: SudoSuccess, Token: token}, nil
}

func (m *Manager) consumeSudoEmailOtp(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	account, err := m.d.Repo.AccountByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	now := m.d.Now()
	rec, err := m.d.Repo.FindValidEmailOtp(ctx, account.Email, store.OtpSudoMode, code, now)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.d.Repo.MarkEmailOtpUsed(ctx, rec.ID, now)
}

func decodeUser(data []byte) (uuid.UUID, error) {
	var id uuid.UUID
	rd := stores.OpenRecord(data, recordVersion)
	rd.Fixed(id[:])
	return id, rd.Err()
}
