// Package sync reconciles the local state repository with the single remote
// authoritative store: debounced pushes after mutations, guarded pulls, and
// a heartbeat that keeps idle devices convergent. Replication is
// full-snapshot, last-writer-wins at collection granularity.
package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/codec"
	"github.com/anvargas/tiendaluz-core/pkg/config"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
	"github.com/anvargas/tiendaluz-core/pkg/metrics"
)

// Notifier surfaces user-visible sync outcomes. Nil means silent.
type Notifier func(message string)

// Options collects the Engine's dependencies.
type Options struct {
	Store     *state.Store
	Client    Client
	Scheduler Scheduler
	Codec     *codec.Codec
	Config    config.SyncConfig
	Logger    *logger.Logger
	Metrics   *metrics.SyncMetrics
	Notify    Notifier
}

// Engine orchestrates push/pull. At most one transfer is in flight at a
// time; concurrent requests are rejected, never queued.
type Engine struct {
	store   *state.Store
	client  Client
	sched   Scheduler
	codec   *codec.Codec
	cfg     config.SyncConfig
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
	notify  Notifier
	now     func() time.Time

	mu        stdsync.Mutex
	inFlight  bool
	debounce  Timer
	heartbeat Timer
	stopped   bool
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state store required")
	}
	if opts.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sync client required")
	}
	if opts.Codec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "codec required")
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = NewScheduler()
	}
	cfg := opts.Config
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 3 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 45 * time.Second
	}
	return &Engine{
		store:   opts.Store,
		client:  opts.Client,
		sched:   sched,
		codec:   opts.Codec,
		cfg:     cfg,
		logg:    opts.Logger,
		metrics: opts.Metrics,
		notify:  opts.Notify,
		now:     time.Now,
	}, nil
}

// Start arms the change listener and the heartbeat.
func (e *Engine) Start() {
	e.store.SetOnChange(e.NoteChange)
	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()
	e.scheduleHeartbeat()
}

// Stop cancels all pending timers. In-flight transfers run to completion.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	if e.debounce != nil {
		e.debounce.Stop()
		e.debounce = nil
	}
	if e.heartbeat != nil {
		e.heartbeat.Stop()
		e.heartbeat = nil
	}
}

// NoteChange reschedules the debounce timer. Bursts of edits collapse into
// one push after the quiet period.
func (e *Engine) NoteChange() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if e.debounce != nil {
		e.debounce.Stop()
		if e.metrics != nil {
			e.metrics.IncDebounceReset()
		}
	}
	e.debounce = e.sched.Schedule(e.cfg.DebounceInterval, func() {
		ctx, cancel := e.requestContext()
		defer cancel()
		if err := e.Push(ctx, false); err != nil {
			e.warn(ctx, "debounced push failed", err)
		}
	})
}

// Push serializes the full local snapshot and replaces the remote copy.
// Without force it refuses when the local state shows no evidence of real
// usage, so a fresh or wiped device can never blank the remote.
func (e *Engine) Push(ctx context.Context, force bool) error {
	settings := e.store.Settings()
	if err := checkConfigured(settings); err != nil {
		return err
	}

	snap := e.store.Snapshot()
	if !force && !snap.HasLocalEvidence() {
		if e.metrics != nil {
			e.metrics.IncRejected()
		}
		e.warnMsg(ctx, "push refused: local state is empty and unforced")
		return pkgerrors.New(pkgerrors.CodeValidation, "refusing to overwrite remote with empty local state")
	}

	release, ok := e.acquire()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeBusy, "a sync operation is already in progress")
	}
	defer release()

	started := e.now()
	payload := e.codec.Encode(snap)
	err := e.client.Push(ctx, settings.SyncEndpoint, settings.SyncSecret, payload)
	e.observe("push", started, err)
	if err != nil {
		// Pending stays set so the next heartbeat retries.
		e.warn(ctx, "push failed", err)
		e.tell("No se pudo sincronizar con el servidor")
		return err
	}

	e.store.ClearPending()
	if e.logg != nil {
		e.logg.Info(ctx, "pushed local snapshot to remote")
	}
	return nil
}

// Pull fetches the remote snapshot and replaces every local collection
// wholesale, except settings which go through MergeSettings. A pull while
// pending changes exist converts into a push unless forced.
func (e *Engine) Pull(ctx context.Context, force bool) error {
	settings := e.store.Settings()
	if err := checkConfigured(settings); err != nil {
		return err
	}

	if pending, _ := e.store.Pending(); pending && !force {
		if e.logg != nil {
			e.logg.Info(ctx, "pending local changes, converting pull into push")
		}
		return e.Push(ctx, false)
	}

	release, ok := e.acquire()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeBusy, "a sync operation is already in progress")
	}
	defer release()

	started := e.now()
	payload, found, err := e.client.Pull(ctx, settings.SyncEndpoint, settings.SyncSecret)
	e.observe("pull", started, err)
	if err != nil {
		e.warn(ctx, "pull failed", err)
		e.tell("No se pudo sincronizar con el servidor")
		return err
	}
	if !found {
		if e.logg != nil {
			e.logg.Info(ctx, "remote has no snapshot yet, keeping local state")
		}
		return nil
	}

	var remote state.Snapshot
	if !e.codec.DecodeInto(payload, &remote) {
		// Never replace good local state with an unreadable snapshot.
		err := pkgerrors.New(pkgerrors.CodeCorruption, "remote snapshot is unreadable")
		e.warn(ctx, "pull discarded", err)
		return err
	}

	remote.Settings = MergeSettings(settings, remote.Settings)
	e.store.ReplaceAll(remote)
	if e.logg != nil {
		e.logg.Info(ctx, "replaced local state with remote snapshot")
	}
	return nil
}

func (e *Engine) scheduleHeartbeat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.heartbeat = e.sched.Schedule(e.cfg.HeartbeatInterval, func() {
		e.heartbeatTick()
		e.scheduleHeartbeat()
	})
}

// heartbeatTick pushes when local changes are waiting, otherwise pulls
// silently so idle devices converge.
func (e *Engine) heartbeatTick() {
	ctx, cancel := e.requestContext()
	defer cancel()

	settings := e.store.Settings()
	if checkConfigured(settings) != nil {
		return
	}

	// Errors are already logged and left retryable by Push/Pull; the next
	// beat tries again.
	if pending, _ := e.store.Pending(); pending {
		_ = e.Push(ctx, false)
	} else {
		_ = e.Pull(ctx, false)
	}
}

func (e *Engine) requestContext() (context.Context, context.CancelFunc) {
	timeout := e.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (e *Engine) acquire() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return nil, false
	}
	e.inFlight = true
	return func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}, true
}

func (e *Engine) observe(op string, started time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveDuration(op, e.now().Sub(started))
	if err != nil {
		e.metrics.IncFailure(op)
	} else {
		e.metrics.IncSuccess(op)
	}
}

func (e *Engine) tell(message string) {
	if e.notify != nil {
		e.notify(message)
	}
}

func (e *Engine) warn(ctx context.Context, msg string, err error) {
	if e.logg != nil {
		e.logg.Error(ctx, msg, err)
	}
}

func (e *Engine) warnMsg(ctx context.Context, msg string) {
	if e.logg != nil {
		e.logg.Warn(ctx, msg)
	}
}

func checkConfigured(settings state.Settings) error {
	if !settings.SyncEnabled {
		return pkgerrors.New(pkgerrors.CodeValidation, "sync is disabled")
	}
	if settings.SyncEndpoint == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sync endpoint is not configured")
	}
	return nil
}
