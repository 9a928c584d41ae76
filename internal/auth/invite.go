package auth

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/security"
)

var validate = validator.New()

// CreateInvite lets an admin issue a one-time provisioning code bound to a
// role.
func (s *Service) CreateInvite(actor string, role enums.Role) (state.UserInvite, error) {
	issuer, ok := s.store.UserByUsername(actor)
	if !ok || !issuer.Active || issuer.Role != enums.RoleAdmin {
		return state.UserInvite{}, pkgerrors.New(pkgerrors.CodeForbidden, "only admins issue invites")
	}
	if !role.IsValid() {
		return state.UserInvite{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	length := s.cfg.InviteCodeLength
	if length <= 0 {
		length = 10
	}
	code, err := security.GenerateCode(length)
	if err != nil {
		return state.UserInvite{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating invite code")
	}
	return s.store.AddInvite(actor, state.UserInvite{
		Code:      code,
		Role:      role,
		CreatedBy: issuer.Username,
	})
}

// RevokeInvite withdraws an unredeemed code.
func (s *Service) RevokeInvite(actor, code string) error {
	issuer, ok := s.store.UserByUsername(actor)
	if !ok || issuer.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins revoke invites")
	}
	return s.store.DeleteInvite(actor, code)
}

// RedeemInviteInput is the registration form for an invited user.
type RedeemInviteInput struct {
	Code     string `validate:"required"`
	Username string `validate:"required,min=3,max=32"`
	Password string `validate:"required"`
	FullName string `validate:"omitempty,max=80"`

	SecurityQuestion string
	SecurityAnswer   string

	// Second-factor enrollment: the secret handed out beforehand plus one
	// correct code proving the authenticator is set up.
	TOTPSecret string
	TOTPCode   string
}

// RedeemInvite consumes an invite exactly once and creates the account.
func (s *Service) RedeemInvite(input RedeemInviteInput) (state.User, error) {
	if err := validate.Struct(input); err != nil {
		return state.User{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid registration input")
	}
	if err := security.ValidatePasswordPolicy(input.Password); err != nil {
		return state.User{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weak password")
	}
	invite, ok := s.store.InviteByCode(input.Code)
	if !ok {
		return state.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid invite code")
	}
	if _, taken := s.store.UserByUsername(input.Username); taken {
		return state.User{}, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	}
	if input.TOTPSecret != "" {
		if !VerifyTOTP(input.TOTPSecret, input.TOTPCode, s.now()) {
			return state.User{}, pkgerrors.New(pkgerrors.CodeValidation, "second factor code does not verify")
		}
	}

	user := state.User{
		Username: input.Username,
		FullName: input.FullName,
		Role:     invite.Role,
		Active:   true,
	}
	if err := s.installPassword(&user, input.Password); err != nil {
		return state.User{}, err
	}
	if input.TOTPSecret != "" {
		user.TOTPSecret = input.TOTPSecret
	}
	if input.SecurityQuestion != "" && security.NormalizeAnswer(input.SecurityAnswer) != "" {
		hash, err := security.HashAnswer(input.SecurityAnswer, user.PasswordSalt, s.cfg)
		if err != nil {
			return state.User{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing answer")
		}
		user.SecurityQuestion = input.SecurityQuestion
		user.SecurityAnswerHash = hash
		user.SecurityAnswerSalt = user.PasswordSalt
	}

	created, err := s.store.AddUser(invite.CreatedBy, user)
	if err != nil {
		return state.User{}, err
	}
	if err := s.store.DeleteInvite(created.Username, invite.Code); err != nil && s.logg != nil {
		s.logg.Error(context.Background(), "consuming invite failed", err)
	}
	return created, nil
}

// BeginSecondFactorEnrollment hands out a fresh secret. It is persisted only
// by ConfirmSecondFactor once the user proves a working authenticator.
func (s *Service) BeginSecondFactorEnrollment() (string, error) {
	secret, err := security.GenerateTOTPSecret()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating secret")
	}
	return secret, nil
}

// ConfirmSecondFactor persists the secret after one correct code.
func (s *Service) ConfirmSecondFactor(username, secret, code string) error {
	user, ok := s.store.UserByUsername(username)
	if !ok || !user.Active {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if !VerifyTOTP(secret, code, s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "second factor code does not verify")
	}
	user.TOTPSecret = secret
	if err := s.store.SaveUser(user); err != nil {
		return err
	}
	s.store.AppendActivity(username, enums.ActivitySecurity, "second factor enabled")
	return nil
}

// DisableSecondFactor removes the enrolled secret.
func (s *Service) DisableSecondFactor(username string) error {
	user, ok := s.store.UserByUsername(username)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	user.TOTPSecret = ""
	if err := s.store.SaveUser(user); err != nil {
		return err
	}
	s.store.AppendActivity(username, enums.ActivitySecurity, "second factor disabled")
	return nil
}
