package syncstore

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/anvargas/tiendaluz-core/pkg/config"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

// Service applies the store's request rules: one global lock with an
// acquisition timeout, an optional shared secret, a minimum payload size,
// and a backup of the previous snapshot before every overwrite.
type Service struct {
	backend Backend
	cfg     config.SyncStoreConfig
	logg    *logger.Logger
	lock    chan struct{}
	now     func() time.Time
}

func NewService(backend Backend, cfg config.SyncStoreConfig, logg *logger.Logger) *Service {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 2 * time.Second
	}
	if cfg.MinPayloadBytes <= 0 {
		cfg.MinPayloadBytes = 64
	}
	if cfg.BackupLimit <= 0 {
		cfg.BackupLimit = 10
	}
	lock := make(chan struct{}, 1)
	lock <- struct{}{}
	return &Service{
		backend: backend,
		cfg:     cfg,
		logg:    logg,
		lock:    lock,
		now:     time.Now,
	}
}

// CheckSecret validates the shared secret. An unconfigured secret admits
// everyone.
func (s *Service) CheckSecret(provided string) error {
	if s.cfg.Secret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(s.cfg.Secret), []byte(provided)) != 1 {
		return pkgerrors.New(pkgerrors.CodeForbidden, "access denied")
	}
	return nil
}

// Pull returns the stored snapshot; found is false when nothing was pushed
// yet.
func (s *Service) Pull(ctx context.Context) (StoredSnapshot, bool, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return StoredSnapshot{}, false, err
	}
	defer release()

	snap, found, err := s.backend.Load(ctx)
	if err != nil {
		return StoredSnapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading snapshot")
	}
	return snap, found, nil
}

// Push stores a new snapshot, backing up the previous one first. Payloads
// below the minimum size are rejected: a full snapshot is never that small,
// so a tiny payload signals a broken or malicious client.
func (s *Service) Push(ctx context.Context, payload string) error {
	if len(payload) < s.cfg.MinPayloadBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, "payload too small to be a snapshot")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	previous, found, err := s.backend.Load(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading previous snapshot")
	}
	if found {
		if err := s.backend.PushBackup(ctx, previous, s.cfg.BackupLimit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "backing up previous snapshot")
		}
	}

	snap := StoredSnapshot{Payload: payload, StoredAt: s.now()}
	if err := s.backend.Save(ctx, snap); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving snapshot")
	}
	if s.logg != nil {
		s.logg.Info(ctx, "stored new snapshot")
	}
	return nil
}

// Backups exposes the rolling history, newest first.
func (s *Service) Backups(ctx context.Context) ([]StoredSnapshot, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	backups, err := s.backend.Backups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing backups")
	}
	return backups, nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	timer := time.NewTimer(s.cfg.LockTimeout)
	defer timer.Stop()
	select {
	case <-s.lock:
		return func() { s.lock <- struct{}{} }, nil
	case <-timer.C:
		return nil, pkgerrors.New(pkgerrors.CodeBusy, "store is busy")
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusy, ctx.Err(), "request cancelled waiting for the store")
	}
}
