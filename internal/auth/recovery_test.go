package auth

import (
	"context"
	"testing"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/enums"
)

func TestRecoverWithAnswer(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	if err := svc.SetSecurityQuestion("ana", "primera mascota", "  Firulais "); err != nil {
		t.Fatalf("set question: %v", err)
	}
	if q, ok := svc.SecurityQuestionFor("ana"); !ok || q != "primera mascota" {
		t.Fatalf("question = %q, ok = %v", q, ok)
	}

	if err := svc.RecoverWithAnswer("ana", "gato", "Nueva%Clave2026"); err == nil {
		t.Fatal("expected wrong answer rejection")
	}
	// Normalization makes case and padding irrelevant.
	if err := svc.RecoverWithAnswer("ana", "FIRULAIS", "Nueva%Clave2026"); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if res := svc.Login(context.Background(), "ana", "Nueva%Clave2026", ""); res.Outcome != enums.LoginSuccess {
		t.Fatalf("outcome = %s, want success with recovered password", res.Outcome)
	}
}

func TestAnswerSurvivesPasswordReset(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)
	if err := svc.SetSecurityQuestion("ana", "primera mascota", "firulais"); err != nil {
		t.Fatalf("set question: %v", err)
	}

	// Two resets in a row: the answer hash keeps its enrollment salt, so it
	// must keep verifying even after the password salt rotates.
	if err := svc.RecoverWithAnswer("ana", "firulais", "Nueva%Clave2026"); err != nil {
		t.Fatalf("first recover: %v", err)
	}
	if err := svc.RecoverWithAnswer("ana", "firulais", "Tercera%Clave27"); err != nil {
		t.Fatalf("second recover: %v", err)
	}
}

func TestRecoverWithCodeIsOneTime(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	code, err := svc.IssueRecoveryCode("ana")
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	if len(code) != 16 {
		t.Fatalf("code length = %d, want 16", len(code))
	}

	if err := svc.RecoverWithCode("ana", "WRONGCODE1234567", "Nueva%Clave2026"); err == nil {
		t.Fatal("expected wrong code rejection")
	}
	if err := svc.RecoverWithCode("ana", code, "Nueva%Clave2026"); err != nil {
		t.Fatalf("recover: %v", err)
	}
	// Consumed on success.
	if err := svc.RecoverWithCode("ana", code, "Tercera%Clave27"); err == nil {
		t.Fatal("expected consumed code rejection")
	}
}

func TestRecoveryRejectsWeakPassword(t *testing.T) {
	svc, store, _, _ := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)
	svc.SetSecurityQuestion("ana", "primera mascota", "firulais")

	if err := svc.RecoverWithAnswer("ana", "firulais", "corta1!"); err == nil {
		t.Fatal("expected weak password rejection")
	}
	// The old password still works: nothing was reset.
	if res := svc.Login(context.Background(), "ana", goodPassword, ""); res.Outcome != enums.LoginSuccess {
		t.Fatalf("outcome = %s, want success", res.Outcome)
	}
}

func TestSecondFactorEnrollment(t *testing.T) {
	svc, store, _, clock := newTestAuth(t)
	mustAddUser(t, svc, store, state.User{Username: "ana", Role: enums.RoleAdmin, Active: true}, goodPassword)

	secret, err := svc.BeginSecondFactorEnrollment()
	if err != nil {
		t.Fatalf("begin enrollment: %v", err)
	}

	if err := svc.ConfirmSecondFactor("ana", secret, "000000"); err == nil {
		t.Fatal("expected wrong code rejection")
	}
	user, _ := store.UserByUsername("ana")
	if user.TOTPSecret != "" {
		t.Fatal("secret must not persist before confirmation")
	}

	code, err := TOTPCode(secret, clock.Now())
	if err != nil {
		t.Fatalf("totp code: %v", err)
	}
	if err := svc.ConfirmSecondFactor("ana", secret, code); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	user, _ = store.UserByUsername("ana")
	if user.TOTPSecret != secret {
		t.Fatal("secret must persist after confirmation")
	}

	if err := svc.DisableSecondFactor("ana"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	user, _ = store.UserByUsername("ana")
	if user.TOTPSecret != "" {
		t.Fatal("secret must be cleared after disable")
	}
}
