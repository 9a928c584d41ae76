package auth

import (
	"crypto/subtle"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/security"
)

// SetSecurityQuestion enrolls the question/answer recovery method. The
// answer hash is bound to the salt current at enrollment time; that salt is
// kept on the record so later password resets cannot orphan the answer.
func (s *Service) SetSecurityQuestion(username, question, answer string) error {
	user, ok := s.store.UserByUsername(username)
	if !ok || !user.Active {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if question == "" || security.NormalizeAnswer(answer) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "question and answer required")
	}
	hash, err := security.HashAnswer(answer, user.PasswordSalt, s.cfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing answer")
	}
	user.SecurityQuestion = question
	user.SecurityAnswerHash = hash
	user.SecurityAnswerSalt = user.PasswordSalt
	if err := s.store.SaveUser(user); err != nil {
		return err
	}
	s.store.AppendActivity(username, enums.ActivitySecurity, "security question set")
	return nil
}

// IssueRecoveryCode generates and stores a fresh one-time master recovery
// code, returning it for the user to file away.
func (s *Service) IssueRecoveryCode(username string) (string, error) {
	user, ok := s.store.UserByUsername(username)
	if !ok || !user.Active {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	code, err := security.GenerateCode(16)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating recovery code")
	}
	user.RecoveryCode = code
	if err := s.store.SaveUser(user); err != nil {
		return "", err
	}
	s.store.AppendActivity(username, enums.ActivitySecurity, "recovery code issued")
	return code, nil
}

// SecurityQuestionFor exposes the enrolled question for the recovery UI.
func (s *Service) SecurityQuestionFor(username string) (string, bool) {
	user, ok := s.store.UserByUsername(username)
	if !ok || user.SecurityQuestion == "" {
		return "", false
	}
	return user.SecurityQuestion, true
}

// RecoverWithAnswer resets the password after verifying the security answer.
// The answer keeps its original salt across the reset.
func (s *Service) RecoverWithAnswer(username, answer, newPassword string) error {
	user, ok := s.store.UserByUsername(username)
	if !ok || !user.Active {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if user.SecurityAnswerHash == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "no security question enrolled")
	}
	computed, err := security.HashAnswer(answer, user.SecurityAnswerSalt, s.cfg)
	if err != nil || subtle.ConstantTimeCompare([]byte(computed), []byte(user.SecurityAnswerHash)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "answer does not match")
	}
	return s.resetPassword(user, newPassword, "password recovered via security question")
}

// RecoverWithCode resets the password after verifying the one-time master
// recovery code, which is consumed on success.
func (s *Service) RecoverWithCode(username, code, newPassword string) error {
	user, ok := s.store.UserByUsername(username)
	if !ok || !user.Active {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if user.RecoveryCode == "" ||
		subtle.ConstantTimeCompare([]byte(user.RecoveryCode), []byte(code)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "recovery code does not match")
	}
	user.RecoveryCode = ""
	return s.resetPassword(user, newPassword, "password recovered via recovery code")
}

func (s *Service) resetPassword(user state.User, newPassword, detail string) error {
	if err := security.ValidatePasswordPolicy(newPassword); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weak password")
	}
	if err := s.installPassword(&user, newPassword); err != nil {
		return err
	}
	if err := s.store.SaveUser(user); err != nil {
		return err
	}
	s.store.AppendActivity(user.Username, enums.ActivitySecurity, detail)
	return nil
}
