package syncstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/anvargas/tiendaluz-core/pkg/config"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
)

func testStoreConfig() config.SyncStoreConfig {
	return config.SyncStoreConfig{
		LockTimeout:     50 * time.Millisecond,
		MinPayloadBytes: 64,
		BackupLimit:     3,
	}
}

func bigPayload(tag string) string {
	return fmt.Sprintf("TLZ1:%s:%s", tag, strings.Repeat("x", 100))
}

func TestPushThenPull(t *testing.T) {
	svc := NewService(NewMemoryBackend(), testStoreConfig(), nil)
	ctx := context.Background()

	if _, found, err := svc.Pull(ctx); err != nil || found {
		t.Fatalf("pull on empty store: found=%v err=%v", found, err)
	}

	payload := bigPayload("v1")
	if err := svc.Push(ctx, payload); err != nil {
		t.Fatalf("push: %v", err)
	}
	snap, found, err := svc.Pull(ctx)
	if err != nil || !found {
		t.Fatalf("pull: found=%v err=%v", found, err)
	}
	if snap.Payload != payload {
		t.Fatal("pulled payload differs from pushed payload")
	}
	if snap.StoredAt.IsZero() {
		t.Fatal("expected a storage timestamp")
	}
}

func TestPushRejectsTinyPayload(t *testing.T) {
	svc := NewService(NewMemoryBackend(), testStoreConfig(), nil)
	err := svc.Push(context.Background(), "TLZ1:short")
	if err == nil {
		t.Fatal("expected minimum-size rejection")
	}
	if e := pkgerrors.As(err); e == nil || e.Code() != pkgerrors.CodeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestBackupsKeepPreviousSnapshots(t *testing.T) {
	svc := NewService(NewMemoryBackend(), testStoreConfig(), nil)
	ctx := context.Background()

	// First push has nothing to back up.
	if err := svc.Push(ctx, bigPayload("v1")); err != nil {
		t.Fatalf("push v1: %v", err)
	}
	backups, err := svc.Backups(ctx)
	if err != nil {
		t.Fatalf("backups: %v", err)
	}
	if len(backups) != 0 {
		t.Fatalf("backups after first push = %d, want 0", len(backups))
	}

	if err := svc.Push(ctx, bigPayload("v2")); err != nil {
		t.Fatalf("push v2: %v", err)
	}
	backups, _ = svc.Backups(ctx)
	if len(backups) != 1 || backups[0].Payload != bigPayload("v1") {
		t.Fatalf("expected v1 backed up, got %d entries", len(backups))
	}
}

func TestBackupHistoryIsBounded(t *testing.T) {
	svc := NewService(NewMemoryBackend(), testStoreConfig(), nil)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		if err := svc.Push(ctx, bigPayload(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("push v%d: %v", i, err)
		}
	}

	backups, err := svc.Backups(ctx)
	if err != nil {
		t.Fatalf("backups: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("backups = %d, want cap 3", len(backups))
	}
	// Newest first, oldest evicted.
	if backups[0].Payload != bigPayload("v5") || backups[2].Payload != bigPayload("v3") {
		t.Fatalf("unexpected backup order: %q … %q", backups[0].Payload[:12], backups[2].Payload[:12])
	}
}

func TestCheckSecret(t *testing.T) {
	cfg := testStoreConfig()
	cfg.Secret = "tienda-secreta"
	svc := NewService(NewMemoryBackend(), cfg, nil)

	if err := svc.CheckSecret("tienda-secreta"); err != nil {
		t.Fatalf("matching secret: %v", err)
	}
	err := svc.CheckSecret("intruso")
	if err == nil {
		t.Fatal("expected mismatched secret rejection")
	}
	if e := pkgerrors.As(err); e == nil || e.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("error = %v, want forbidden", err)
	}

	open := NewService(NewMemoryBackend(), testStoreConfig(), nil)
	if err := open.CheckSecret("anything"); err != nil {
		t.Fatalf("unconfigured secret must admit everyone: %v", err)
	}
}

type slowBackend struct {
	*MemoryBackend
	started chan struct{}
	release chan struct{}
}

func (s *slowBackend) Load(ctx context.Context) (StoredSnapshot, bool, error) {
	s.started <- struct{}{}
	<-s.release
	return s.MemoryBackend.Load(ctx)
}

func TestLockTimeoutReportsBusy(t *testing.T) {
	backend := &slowBackend{
		MemoryBackend: NewMemoryBackend(),
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	svc := NewService(backend, testStoreConfig(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Pull(context.Background())
	}()
	<-backend.started

	// The lock is held by the in-flight pull until we release the backend.
	err := svc.Push(context.Background(), bigPayload("v1"))
	if err == nil {
		t.Fatal("expected busy while the lock is held")
	}
	if e := pkgerrors.As(err); e == nil || e.Code() != pkgerrors.CodeBusy {
		t.Fatalf("error = %v, want busy", err)
	}

	close(backend.release)
	<-done
}
