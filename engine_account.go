package goIdentity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/notify"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/MrEthical07/goIdentity/store"
)

// SendRegisterEmail mails a Login code to an address that has no account yet.
func (e *Engine) SendRegisterEmail(ctx context.Context, email string) (SendOutcome, error) {
	s, err := e.loadSettings(ctx)
	if err != nil {
		return 0, err
	}
	account, err := e.accountByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if account != nil {
		return SendDuplicatedEmail, nil
	}
	return e.sendEmailOtp(ctx, s, email, store.OtpLogin, uuid.NullUUID{})
}

// RegisterUser creates an account for an address proven by a Login code. The
// code is consumed only once the address is known to be free.
func (e *Engine) RegisterUser(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if e == nil || e.hasher == nil {
		return RegisterResult{}, ErrEngineNotReady
	}
	hasPassword := req.Password != ""
	if hasPassword {
		if err := password.CheckLength(req.Password); err != nil {
			return RegisterResult{Outcome: RegisterInvalidPassword}, nil
		}
	}

	rec, err := e.findEmailOtp(ctx, req.Email, store.OtpLogin, req.Otp)
	if err != nil {
		return RegisterResult{}, err
	}
	if rec == nil {
		return e.registerRejected(ctx, RegisterInvalidOtp), nil
	}
	existing, err := e.accountByEmail(ctx, req.Email)
	if err != nil {
		return RegisterResult{}, err
	}
	if existing != nil {
		return e.registerRejected(ctx, RegisterDuplicatedEmail), nil
	}
	if ok, err := e.markEmailOtpUsed(ctx, rec); err != nil || !ok {
		if err != nil {
			return RegisterResult{}, err
		}
		return e.registerRejected(ctx, RegisterInvalidOtp), nil
	}

	var account *store.UserAccount
	if hasPassword {
		var hash string
		if hash, err = e.hasher.Hash(req.Password); err != nil {
			return RegisterResult{}, err
		}
		account, err = e.repo.RegisterWithPassword(ctx, req.Email, req.Name, hash)
	} else {
		account, err = e.repo.RegisterPasswordless(ctx, req.Email, req.Name)
	}
	if errors.Is(err, store.ErrConflict) {
		return e.registerRejected(ctx, RegisterDuplicatedEmail), nil
	}
	if err != nil {
		return RegisterResult{}, err
	}

	if err := e.events.Publish(ctx, notify.UserRegisterEvent{
		UserID:       account.ID,
		RegisteredAt: account.CreatedAt,
		RegisterMethod: notify.RegisterMethod{
			Kind:        notify.RegisteredByEmail,
			HasPassword: hasPassword,
		},
	}); err != nil {
		e.logger.Warn("register event not published", "component", "engine", "user_id", account.ID, "error", err)
	}
	e.metricInc(MetricRegistered)

	res := RegisterResult{Outcome: RegisterRegistered, UserID: account.ID}
	if req.AutoLogin {
		if res.SessionID, err = e.createSession(ctx, account.ID); err != nil {
			return RegisterResult{}, err
		}
		res.Outcome = RegisterRegisteredWithSession
	}
	e.emitAudit(ctx, auditEventRegister, true, account.ID, res.SessionID, res.Outcome, nil)
	return res, nil
}

func (e *Engine) registerRejected(ctx context.Context, outcome RegisterOutcome) RegisterResult {
	e.emitAudit(ctx, auditEventRegister, false, uuid.Nil, uuid.Nil, outcome, nil)
	return RegisterResult{Outcome: outcome}
}
