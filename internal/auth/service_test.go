package auth

import (
	"context"
	"testing"
	"time"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/config"
	"github.com/anvargas/tiendaluz-core/pkg/enums"
)

// Low iteration count keeps the tests fast; production defaults live in the
// config package.
func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		PBKDF2Iterations: 1000,
		SaltLen:          16,
		KeyLen:           32,
		LockoutThreshold: 5,
		LockoutWindow:    15 * time.Minute,
		InviteCodeLength: 10,
	}
}

type fakeSessions struct {
	saved   []state.User
	cleared int
}

func (f *fakeSessions) SaveSession(u state.User) { f.saved = append(f.saved, u) }
func (f *fakeSessions) ClearSession()            { f.cleared++ }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestAuth(t *testing.T) (*Service, *state.Store, *fakeSessions, *fakeClock) {
	t.Helper()
	store := state.NewStore(state.Options{})
	sessions := &fakeSessions{}
	clock := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Store:    store,
		Sessions: sessions,
		Security: testSecurityConfig(),
		Now:      clock.Now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store, sessions, clock
}

func mustAddUser(t *testing.T, svc *Service, store *state.Store, u state.User, password string) state.User {
	t.Helper()
	if err := svc.installPassword(&u, password); err != nil {
		t.Fatalf("install password: %v", err)
	}
	created, err := store.AddUser("system", u)
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
	return created
}

const goodPassword = "Segura%Clave19"

func TestLoginSuccess(t *testing.T) {
	svc, store, sessions, clock := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	res := svc.Login(context.Background(), "ana", goodPassword, "")
	if res.Outcome != enums.LoginSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}
	if res.User == nil || res.User.LastLoginAt == nil || !res.User.LastLoginAt.Equal(clock.now) {
		t.Fatal("expected login timestamp stamped on user")
	}
	if res.Token != "" {
		t.Fatal("token must be empty when no session secret is configured")
	}
	if len(sessions.saved) != 1 {
		t.Fatalf("sessions saved = %d, want 1", len(sessions.saved))
	}

	acts := store.Activity()
	if len(acts) == 0 || acts[len(acts)-1].Action != enums.ActivityLogin {
		t.Fatal("expected login activity entry")
	}
}

func TestLoginWrongPasswordIsInvalid(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	res := svc.Login(context.Background(), "ana", "wrong-Password9!", "")
	if res.Outcome != enums.LoginInvalid {
		t.Fatalf("outcome = %s, want invalid", res.Outcome)
	}
	user, _ := store.UserByUsername("ana")
	if user.FailedAttempts != 1 {
		t.Fatalf("failed attempts = %d, want 1", user.FailedAttempts)
	}
}

func TestUnknownUserIsInvalid(t *testing.T) {
	svc, _, _, _ := newTestAuth(t)
	if res := svc.Login(context.Background(), "ghost", goodPassword, ""); res.Outcome != enums.LoginInvalid {
		t.Fatalf("outcome = %s, want invalid", res.Outcome)
	}
}

func TestInactiveUserIsInvalid(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleCashier, Active: false}, goodPassword)

	if res := svc.Login(context.Background(), "ana", goodPassword, ""); res.Outcome != enums.LoginInvalid {
		t.Fatalf("outcome = %s, want invalid", res.Outcome)
	}
}

func TestLockoutAfterThreshold(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	for i := 0; i < 5; i++ {
		if res := svc.Login(context.Background(), "ana", "wrong-Password9!", ""); res.Outcome != enums.LoginInvalid {
			t.Fatalf("attempt %d outcome = %s, want invalid", i+1, res.Outcome)
		}
	}

	// Even the correct password is refused while the window is open.
	if res := svc.Login(context.Background(), "ana", goodPassword, ""); res.Outcome != enums.LoginLocked {
		t.Fatalf("outcome = %s, want locked", res.Outcome)
	}

	user, _ := store.UserByUsername("ana")
	if user.LockoutUntil == nil {
		t.Fatal("expected lockout timestamp persisted")
	}
	acts := store.Activity()
	found := false
	for _, a := range acts {
		if a.Action == enums.ActivitySecurity {
			found = true
		}
	}
	if !found {
		t.Fatal("expected security activity for the lockout")
	}
}

func TestLockoutWindowElapses(t *testing.T) {
	svc, store, _, clock := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	for i := 0; i < 5; i++ {
		svc.Login(context.Background(), "ana", "wrong-Password9!", "")
	}
	if res := svc.Login(context.Background(), "ana", goodPassword, ""); res.Outcome != enums.LoginLocked {
		t.Fatalf("outcome = %s, want locked", res.Outcome)
	}

	clock.Advance(16 * time.Minute)
	res := svc.Login(context.Background(), "ana", goodPassword, "")
	if res.Outcome != enums.LoginSuccess {
		t.Fatalf("outcome after window = %s, want success", res.Outcome)
	}
	user, _ := store.UserByUsername("ana")
	if user.FailedAttempts != 0 || user.LockoutUntil != nil {
		t.Fatal("expected counters reset after successful login")
	}
}

func TestSecondFactorFlow(t *testing.T) {
	svc, store, _, clock := newTestAuth(t)
	secret := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	mustAddUser(t, svc, store, state.User{
		Username:   "ana",
		Role:       enums.RoleAdmin,
		Active:     true,
		TOTPSecret: secret,
	}, goodPassword)

	if res := svc.Login(context.Background(), "ana", goodPassword, ""); res.Outcome != enums.LoginSecondFactorNeeded {
		t.Fatalf("outcome = %s, want second factor required", res.Outcome)
	}

	if res := svc.Login(context.Background(), "ana", goodPassword, "000000"); res.Outcome != enums.LoginInvalidSecondFactor {
		t.Fatalf("outcome = %s, want invalid second factor", res.Outcome)
	}

	// A bad code after a good password never feeds the lockout counter.
	user, _ := store.UserByUsername("ana")
	if user.FailedAttempts != 0 {
		t.Fatalf("failed attempts = %d, want 0", user.FailedAttempts)
	}

	code, err := TOTPCode(secret, clock.Now())
	if err != nil {
		t.Fatalf("totp code: %v", err)
	}
	if res := svc.Login(context.Background(), "ana", goodPassword, code); res.Outcome != enums.LoginSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	svc, store, sessions, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)
	svc.Login(context.Background(), "ana", goodPassword, "")

	svc.Logout("ana")
	if sessions.cleared != 1 {
		t.Fatalf("sessions cleared = %d, want 1", sessions.cleared)
	}
	acts := store.Activity()
	if acts[len(acts)-1].Action != enums.ActivityLogout {
		t.Fatal("expected logout activity entry")
	}
}

func TestChangePassword(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	if err := svc.ChangePassword("ana", "not-the-one9!A", "Otra%Clave2026x"); err == nil {
		t.Fatal("expected rejection with wrong current password")
	}
	if err := svc.ChangePassword("ana", goodPassword, "short"); err == nil {
		t.Fatal("expected rejection of weak password")
	}
	if err := svc.ChangePassword("ana", goodPassword, "Otra%Clave2026x"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if res := svc.Login(context.Background(), "ana", goodPassword, ""); res.Outcome != enums.LoginInvalid {
		t.Fatal("old password must stop working")
	}
	if res := svc.Login(context.Background(), "ana", "Otra%Clave2026x", ""); res.Outcome != enums.LoginSuccess {
		t.Fatal("new password must log in")
	}
}

func TestEnsureAdminOnFreshStore(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)

	res, err := svc.EnsureAdmin(context.Background())
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	if !res.Created || res.Username != "admin" || res.Password == "" {
		t.Fatalf("unexpected bootstrap result: %+v", res)
	}
	if login := svc.Login(context.Background(), "admin", res.Password, ""); login.Outcome != enums.LoginSuccess {
		t.Fatalf("bootstrap credentials failed: %s", login.Outcome)
	}
	if store.AdminCount() != 1 {
		t.Fatalf("admin count = %d, want 1", store.AdminCount())
	}

	// Second call is a no-op once a user exists.
	again, err := svc.EnsureAdmin(context.Background())
	if err != nil {
		t.Fatalf("ensure admin again: %v", err)
	}
	if again.Created {
		t.Fatal("expected no second bootstrap")
	}
}
