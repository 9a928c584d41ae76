// Package state owns the in-process business collections and every mutation
// over them. A Store is constructed explicitly and handed to collaborators;
// there is no package-level state.
//
// Mutators are atomic transitions: they update collections, append one
// activity entry attributed to the acting user, raise the pending-changes
// flag, and mirror the new snapshot to durable storage best-effort. Business
// preconditions (enough stock, positive debt) are the caller's job; the
// mutators maintain structural invariants unconditionally.
package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anvargas/tiendaluz-core/pkg/enums"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

// DefaultActivityCap bounds the append-only log to the most recent entries.
const DefaultActivityCap = 500

// Flusher mirrors snapshots to durable local storage. Implementations must
// not call back into the Store.
type Flusher interface {
	Flush(Snapshot)
}

// Options configures a Store.
type Options struct {
	Logger      *logger.Logger
	Flusher     Flusher
	Now         func() time.Time
	ActivityCap int
}

type Store struct {
	mu   sync.Mutex
	data Snapshot

	pending      bool
	pendingSince time.Time

	flusher     Flusher
	onChange    func()
	logg        *logger.Logger
	now         func() time.Time
	activityCap int
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	activityCap := opts.ActivityCap
	if activityCap <= 0 {
		activityCap = DefaultActivityCap
	}
	return &Store{
		data:        Snapshot{Settings: DefaultSettings()},
		flusher:     opts.Flusher,
		logg:        opts.Logger,
		now:         now,
		activityCap: activityCap,
	}
}

// SetOnChange registers the callback invoked after every mutation, outside
// the store lock. The sync engine uses it to arm its debounce timer.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// LoadSnapshot seeds the store from durable storage without marking pending
// changes or mirroring back.
func (s *Store) LoadSnapshot(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Settings == (Settings{}) {
		snap.Settings = DefaultSettings()
	}
	s.data = snap.clone()
}

// Snapshot returns a deep copy of the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.data.clone()
	snap.ExportedAt = s.now()
	return snap
}

// ReplaceAll is the pull sink: every collection is replaced wholesale and the
// pending flag cleared. Settings merging happens before this call.
func (s *Store) ReplaceAll(snap Snapshot) {
	s.mu.Lock()
	s.data = snap.clone()
	s.pending = false
	mirror := s.data.clone()
	s.mu.Unlock()
	s.flush(mirror)
}

// Pending reports whether local mutations have not yet reached the remote
// store, and since when.
func (s *Store) Pending() (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pendingSince
}

// ClearPending is called by the sync engine after a successful push.
func (s *Store) ClearPending() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

// MarkPending raises the flag without a mutation, e.g. after a failed pull
// detected divergence.
func (s *Store) MarkPending() {
	s.mu.Lock()
	s.pending = true
	s.pendingSince = s.now()
	s.mu.Unlock()
}

// AppendActivity records an audit entry as a mutation in its own right.
func (s *Store) AppendActivity(actor string, action enums.ActivityAction, detail string) {
	s.mu.Lock()
	s.logActivityLocked(actor, action, detail)
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
}

// logActivityLocked appends an entry, trims to the cap, and raises pending.
func (s *Store) logActivityLocked(actor string, action enums.ActivityAction, detail string) {
	entry := ActivityEntry{
		ID:     uuid.NewString(),
		Actor:  actor,
		Action: action,
		Detail: detail,
		At:     s.now(),
	}
	s.data.Activity = append(s.data.Activity, entry)
	if over := len(s.data.Activity) - s.activityCap; over > 0 {
		s.data.Activity = append([]ActivityEntry(nil), s.data.Activity[over:]...)
	}
	s.pending = true
	s.pendingSince = entry.At
}

// finish runs the post-mutation mirror outside the lock. Callers pass the
// snapshot cloned while still holding it.
func (s *Store) finish(mirror Snapshot) {
	s.flush(mirror)
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) flush(mirror Snapshot) {
	if s.flusher == nil {
		return
	}
	s.flusher.Flush(mirror)
}

func (s *Store) warn(msg string) {
	if s.logg != nil {
		s.logg.Warn(context.Background(), msg)
	}
}

// nextID implements the max-plus-one sequence: one greater than the larger
// of the highest existing numeric ID and the sequence floor. Callers raise
// the persisted floor to each assigned ID, so deleting the highest record
// never makes the sequence hand out that ID again.
func nextID(existing []int64, seqStart int64) int64 {
	max := seqStart
	for _, id := range existing {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Settings returns a copy of the settings record.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Settings
}

// UpdateSettings replaces the settings record.
func (s *Store) UpdateSettings(actor string, settings Settings) {
	s.mu.Lock()
	s.data.Settings = settings
	s.logActivityLocked(actor, enums.ActivitySettings, "settings updated")
	mirror := s.data.clone()
	s.mu.Unlock()
	s.finish(mirror)
}

// Activity returns a copy of the audit log, newest last.
func (s *Store) Activity() []ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ActivityEntry(nil), s.data.Activity...)
}

func notFound(what string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
