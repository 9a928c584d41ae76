package auth

import (
	"context"
	"fmt"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/security"
)

// BootstrapResult reports the credentials minted on first run. Password is
// populated only when a new admin was actually created.
type BootstrapResult struct {
	Created  bool
	Username string
	Password string
}

// EnsureAdmin guarantees at least one active admin exists. On a fresh store
// it provisions a default admin with a random policy-compliant password and
// returns it so the operator can capture it once; it is never logged.
func (s *Service) EnsureAdmin(ctx context.Context) (BootstrapResult, error) {
	if len(s.store.Users()) > 0 {
		return BootstrapResult{}, nil
	}

	password, err := generateInitialPassword()
	if err != nil {
		return BootstrapResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating initial password")
	}

	admin := state.User{
		Username: "admin",
		FullName: "Administrador",
		Role:     enums.RoleAdmin,
		Active:   true,
	}
	if err := s.installPassword(&admin, password); err != nil {
		return BootstrapResult{}, err
	}
	if _, err := s.store.AddUser(admin.Username, admin); err != nil {
		return BootstrapResult{}, err
	}
	if s.logg != nil {
		s.logg.Warn(ctx, "no users found, provisioned initial admin account")
	}
	return BootstrapResult{Created: true, Username: admin.Username, Password: password}, nil
}

// generateInitialPassword builds a random password that satisfies the
// policy's character-class requirements.
func generateInitialPassword() (string, error) {
	tail, err := security.GenerateCode(12)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Aa1!%s", tail), nil
}
