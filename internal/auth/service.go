// Package auth owns account security: password hashing and verification,
// lockout, the second factor, recovery, and invite-based provisioning. It
// depends on the state repository for user records and never renders UI.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/config"
	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
	"github.com/anvargas/tiendaluz-core/pkg/security"
)

// SessionStore persists the authenticated user across restarts.
type SessionStore interface {
	SaveSession(state.User)
	ClearSession()
}

// Service drives the authentication state machine.
type Service struct {
	store    *state.Store
	sessions SessionStore
	cfg      config.SecurityConfig
	session  config.SessionConfig
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Store    *state.Store
	Sessions SessionStore
	Security config.SecurityConfig
	Session  config.SessionConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("state store required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    params.Store,
		sessions: params.Sessions,
		cfg:      params.Security,
		session:  params.Session,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// LoginResult is the discriminated outcome of one login attempt. Token is
// set only on success and only when a session secret is configured.
type LoginResult struct {
	Outcome enums.LoginOutcome
	User    *state.User
	Token   string
}

// Login runs the interactive state machine:
// credentials -> (success | locked | invalid | second factor required)
// -> (success | invalid second factor).
//
// A failed second-factor check does not count toward the lockout counter;
// the caller already proved the password.
func (s *Service) Login(ctx context.Context, username, password, secondFactorCode string) LoginResult {
	user, ok := s.store.UserByUsername(username)
	if !ok || !user.Active {
		return LoginResult{Outcome: enums.LoginInvalid}
	}

	now := s.now()
	if user.LockoutUntil != nil {
		if user.LockoutUntil.After(now) {
			return LoginResult{Outcome: enums.LoginLocked}
		}
		// Window elapsed: clear before evaluating this attempt.
		user.LockoutUntil = nil
		user.FailedAttempts = 0
		_ = s.store.SaveUser(user)
	}

	if !security.VerifyPassword(password, user.PasswordSalt, user.PasswordHash, s.cfg) {
		return s.recordFailure(ctx, user)
	}

	if user.TOTPSecret != "" {
		if secondFactorCode == "" {
			return LoginResult{Outcome: enums.LoginSecondFactorNeeded}
		}
		if !VerifyTOTP(user.TOTPSecret, secondFactorCode, now) {
			return LoginResult{Outcome: enums.LoginInvalidSecondFactor}
		}
	}

	user.FailedAttempts = 0
	user.LockoutUntil = nil
	user.LastLoginAt = &now
	user.LastActiveAt = &now
	if err := s.store.SaveUser(user); err != nil && s.logg != nil {
		s.logg.Error(ctx, "persisting login stamp failed", err)
	}
	if s.sessions != nil {
		s.sessions.SaveSession(user)
	}
	s.store.AppendActivity(user.Username, enums.ActivityLogin, "logged in")

	token := ""
	if s.session.JWTSecret != "" {
		minted, err := MintSessionToken(s.session, now, user)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "minting session token failed", err)
			}
		} else {
			token = minted
		}
	}

	return LoginResult{Outcome: enums.LoginSuccess, User: &user, Token: token}
}

func (s *Service) recordFailure(ctx context.Context, user state.User) LoginResult {
	user.FailedAttempts++
	threshold := s.cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}
	if user.FailedAttempts >= threshold {
		window := s.cfg.LockoutWindow
		if window <= 0 {
			window = 15 * time.Minute
		}
		until := s.now().Add(window)
		user.LockoutUntil = &until
		s.store.AppendActivity(user.Username, enums.ActivitySecurity,
			fmt.Sprintf("account locked after %d failed attempts", user.FailedAttempts))
		if s.logg != nil {
			s.logg.Warn(s.logg.WithUsername(ctx, user.Username), "account locked out")
		}
	}
	if err := s.store.SaveUser(user); err != nil && s.logg != nil {
		s.logg.Error(ctx, "persisting failed attempt failed", err)
	}
	return LoginResult{Outcome: enums.LoginInvalid}
}

// Logout drops the persisted session.
func (s *Service) Logout(username string) {
	if s.sessions != nil {
		s.sessions.ClearSession()
	}
	s.store.AppendActivity(username, enums.ActivityLogout, "logged out")
}

// ChangePassword verifies the current password and installs a new one with a
// freshly generated salt. The security-answer hash is left untouched: it
// keeps its own salt.
func (s *Service) ChangePassword(username, current, next string) error {
	user, ok := s.store.UserByUsername(username)
	if !ok || !user.Active {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if !security.VerifyPassword(current, user.PasswordSalt, user.PasswordHash, s.cfg) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password does not match")
	}
	if err := security.ValidatePasswordPolicy(next); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weak password")
	}
	if err := s.installPassword(&user, next); err != nil {
		return err
	}
	if err := s.store.SaveUser(user); err != nil {
		return err
	}
	s.store.AppendActivity(username, enums.ActivitySecurity, "password changed")
	return nil
}

// installPassword rotates the salt and rewrites the hash in place.
func (s *Service) installPassword(user *state.User, password string) error {
	salt, err := security.GenerateSalt(s.cfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating salt")
	}
	hash, err := security.HashPassword(password, salt, s.cfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}
	user.PasswordSalt = salt
	user.PasswordHash = hash
	user.FailedAttempts = 0
	user.LockoutUntil = nil
	return nil
}

// Touch stamps last-active for an authenticated user.
func (s *Service) Touch(username string) {
	user, ok := s.store.UserByUsername(username)
	if !ok {
		return
	}
	now := s.now()
	user.LastActiveAt = &now
	_ = s.store.SaveUser(user)
}
