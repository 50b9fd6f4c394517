package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	pkgcrypto "github.com/avdeyev/flightapp/internal/crypto"
	"github.com/avdeyev/flightapp/internal/errs"
	"github.com/avdeyev/flightapp/internal/model"
)

// Login authenticates the session. Usernames are case-insensitive; the digest
// is recomputed from the stored salt and compared in constant time.
func (e *Engine) Login(ctx context.Context, s *Session, username, password string) error {
	defer e.checkLeak("login")

	if s.Active() {
		return errs.ErrAlreadyLoggedIn
	}
	name := strings.ToLower(username)
	u, err := e.users.GetByUsername(ctx, name)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			e.log.Warn("login lookup", zap.Error(err))
		}
		// unknown user and lookup failure are indistinguishable to the caller
		return errs.ErrLoginFailed
	}
	if !pkgcrypto.VerifyPassword(password, u.Salt, u.PwdHash) {
		return errs.ErrLoginFailed
	}
	s.bind(u.Username)
	return nil
}

// CreateAccount registers a new user with the given starting balance.
// The existence pre-check is re-run after an insert conflict instead of being
// trusted: two concurrent registrations for the same name race on the unique
// constraint, and the loser must report ErrUserExists, not a storage error.
func (e *Engine) CreateAccount(ctx context.Context, username, password string, initBalance int64) error {
	defer e.checkLeak("create account")

	if initBalance < 0 {
		return errs.ErrInvalidAmount
	}
	name := strings.ToLower(username)
	salt, err := pkgcrypto.RandSalt()
	if err != nil {
		return err
	}
	u := &model.User{
		Username: name,
		PwdHash:  pkgcrypto.HashPassword(password, salt),
		Salt:     salt,
		Balance:  initBalance,
	}

	for {
		_, err := e.users.GetByUsername(ctx, name)
		if err == nil {
			return errs.ErrUserExists
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		err = e.users.Create(ctx, u)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return err
		}
		// lost the race to a concurrent registration; the re-check above
		// confirms the winner on the next pass
	}
}

// Logout clears the session's itinerary cache and drops the login.
func (e *Engine) Logout(ctx context.Context, s *Session) error {
	defer e.checkLeak("logout")

	if err := e.itineraries.Clear(ctx, s.ID()); err != nil {
		e.log.Warn("clear itinerary cache", zap.Error(err))
	}
	s.clear()
	return nil
}
