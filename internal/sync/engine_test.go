package sync

import (
	"context"
	"sort"
	stdsync "sync"
	"testing"
	"time"

	"github.com/anvargas/tiendaluz-core/internal/state"
	"github.com/anvargas/tiendaluz-core/pkg/codec"
	"github.com/anvargas/tiendaluz-core/pkg/config"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
)

// fakeScheduler drives timers with virtual time.
type fakeScheduler struct {
	mu     stdsync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	sched   *fakeScheduler
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{sched: s, at: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves virtual time forward, firing due timers in deadline order.
// Callbacks run outside the scheduler lock so they may schedule again.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *fakeTimer
		for _, t := range s.timers {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.fired = true
		s.now = next.at
		s.mu.Unlock()
		next.fn()
	}
}

type fakeClient struct {
	mu          stdsync.Mutex
	pushes      []string
	pulls       int
	pushErr     error
	pullPayload string
	pullFound   bool
	pullErr     error

	pushStarted chan struct{}
	pushRelease chan struct{}
}

func (c *fakeClient) Push(ctx context.Context, endpoint, secret, payload string) error {
	if c.pushStarted != nil {
		c.pushStarted <- struct{}{}
	}
	if c.pushRelease != nil {
		<-c.pushRelease
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushes = append(c.pushes, payload)
	return c.pushErr
}

func (c *fakeClient) Pull(ctx context.Context, endpoint, secret string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pulls++
	return c.pullPayload, c.pullFound, c.pullErr
}

func (c *fakeClient) pushCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pushes)
}

func (c *fakeClient) pullCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pulls
}

func syncedSettings() state.Settings {
	s := state.DefaultSettings()
	s.SyncEnabled = true
	s.SyncEndpoint = "https://sync.example.test/sync"
	s.SyncSecret = "shared-secret"
	return s
}

func newTestEngine(t *testing.T) (*Engine, *state.Store, *fakeClient, *fakeScheduler) {
	t.Helper()
	store := state.NewStore(state.Options{})
	store.LoadSnapshot(state.Snapshot{Settings: syncedSettings()})
	client := &fakeClient{}
	sched := &fakeScheduler{}
	eng, err := NewEngine(Options{
		Store:     store,
		Client:    client,
		Scheduler: sched,
		Codec:     codec.New(nil),
		Config: config.SyncConfig{
			DebounceInterval:  3 * time.Second,
			HeartbeatInterval: 45 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng, store, client, sched
}

func TestPushRefusesEmptyLocalState(t *testing.T) {
	eng, _, client, _ := newTestEngine(t)

	err := eng.Push(context.Background(), false)
	if err == nil {
		t.Fatal("expected empty-local rejection")
	}
	if client.pushCount() != 0 {
		t.Fatal("remote must not be contacted for a refused push")
	}
}

func TestPushForceOverridesEmptyGuard(t *testing.T) {
	eng, _, client, _ := newTestEngine(t)

	if err := eng.Push(context.Background(), true); err != nil {
		t.Fatalf("forced push: %v", err)
	}
	if client.pushCount() != 1 {
		t.Fatalf("pushes = %d, want 1", client.pushCount())
	}
}

func TestPushClearsPendingAndCarriesSnapshot(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	if _, err := store.AddProduct("ana", state.Product{Name: "Cafe", Stock: 3}); err != nil {
		t.Fatalf("add product: %v", err)
	}
	if pending, _ := store.Pending(); !pending {
		t.Fatal("mutation must raise pending")
	}

	if err := eng.Push(context.Background(), false); err != nil {
		t.Fatalf("push: %v", err)
	}
	if pending, _ := store.Pending(); pending {
		t.Fatal("successful push must clear pending")
	}

	var got state.Snapshot
	if !codec.New(nil).DecodeInto(client.pushes[0], &got) {
		t.Fatal("pushed payload must be a decodable token")
	}
	if len(got.Products) != 1 || got.Products[0].Name != "Cafe" {
		t.Fatalf("unexpected pushed snapshot: %+v", got.Products)
	}
}

func TestPushFailureLeavesPendingSet(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	client.pushErr = pkgerrors.New(pkgerrors.CodeTransport, "remote store unreachable")

	var notes []string
	eng.notify = func(msg string) { notes = append(notes, msg) }

	store.AddProduct("ana", state.Product{Name: "Cafe"})
	if err := eng.Push(context.Background(), false); err == nil {
		t.Fatal("expected push failure")
	}
	if pending, _ := store.Pending(); !pending {
		t.Fatal("failed push must leave pending for the next heartbeat")
	}
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
}

func TestPushRequiresConfiguration(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	s := store.Settings()
	s.SyncEnabled = false
	store.LoadSnapshot(state.Snapshot{Settings: s})

	if err := eng.Push(context.Background(), true); err == nil {
		t.Fatal("expected disabled-sync rejection")
	}
	if client.pushCount() != 0 {
		t.Fatal("remote must not be contacted when sync is disabled")
	}
}

func TestPullConvertsToPushWhenPending(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	store.AddProduct("ana", state.Product{Name: "Cafe"})

	if err := eng.Pull(context.Background(), false); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if client.pushCount() != 1 || client.pullCount() != 0 {
		t.Fatalf("pushes = %d pulls = %d, want 1 and 0", client.pushCount(), client.pullCount())
	}
}

func TestForcedPullIgnoresPending(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	store.AddProduct("ana", state.Product{Name: "Cafe"})
	client.pullFound = false

	if err := eng.Pull(context.Background(), true); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if client.pullCount() != 1 || client.pushCount() != 0 {
		t.Fatalf("pushes = %d pulls = %d, want 0 and 1", client.pushCount(), client.pullCount())
	}
}

func TestPullReplacesCollectionsAndMergesSettings(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)

	local := store.Settings()
	local.Logo = string(make([]byte, 500))
	store.LoadSnapshot(state.Snapshot{Settings: local})

	remote := state.Snapshot{
		Products:  []state.Product{{ID: 1, Name: "Te"}, {ID: 2, Name: "Pan"}},
		Customers: []state.Customer{{ID: 1, Name: "Luisa"}},
		Settings:  state.Settings{BusinessName: "Sucursal Centro"},
	}
	client.pullPayload = codec.New(nil).Encode(remote)
	client.pullFound = true

	if err := eng.Pull(context.Background(), false); err != nil {
		t.Fatalf("pull: %v", err)
	}

	products := store.Products()
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "Pan" || names[1] != "Te" {
		t.Fatalf("products after pull = %v", names)
	}

	merged := store.Settings()
	if merged.BusinessName != "Sucursal Centro" {
		t.Fatalf("business name = %q", merged.BusinessName)
	}
	if len(merged.Logo) != 500 {
		t.Fatal("local logo must survive a pull whose logo is emptier")
	}
	if !merged.SyncEnabled || merged.SyncEndpoint == "" || merged.SyncSecret == "" {
		t.Fatal("connection settings must survive a pull")
	}
}

func TestPullEmptyRemoteKeepsLocalState(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	store.AddProduct("ana", state.Product{Name: "Cafe"})
	store.ClearPending()
	client.pullFound = false

	if err := eng.Pull(context.Background(), false); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(store.Products()) != 1 {
		t.Fatal("empty remote must not clear local collections")
	}
}

func TestPullRejectsUnreadableSnapshot(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	store.AddProduct("ana", state.Product{Name: "Cafe"})
	store.ClearPending()
	client.pullPayload = "TLZ1:%%not-base64%%"
	client.pullFound = true

	if err := eng.Pull(context.Background(), false); err == nil {
		t.Fatal("expected corruption rejection")
	}
	if len(store.Products()) != 1 {
		t.Fatal("unreadable remote snapshot must not replace local state")
	}
}

func TestDebounceCoalescesBursts(t *testing.T) {
	eng, store, client, sched := newTestEngine(t)
	eng.Start()
	defer eng.Stop()

	store.AddProduct("ana", state.Product{Name: "Cafe"})
	sched.Advance(1 * time.Second)
	store.AddProduct("ana", state.Product{Name: "Te"})
	sched.Advance(1 * time.Second)
	store.AddProduct("ana", state.Product{Name: "Pan"})

	// Quiet periods shorter than the debounce fire nothing.
	if client.pushCount() != 0 {
		t.Fatalf("pushes before quiet period = %d, want 0", client.pushCount())
	}

	sched.Advance(3 * time.Second)
	if client.pushCount() != 1 {
		t.Fatalf("pushes = %d, want one coalesced push", client.pushCount())
	}

	var got state.Snapshot
	codec.New(nil).DecodeInto(client.pushes[0], &got)
	if len(got.Products) != 3 {
		t.Fatalf("coalesced snapshot has %d products, want 3", len(got.Products))
	}
}

func TestHeartbeatPushesWhenPending(t *testing.T) {
	eng, store, client, sched := newTestEngine(t)
	eng.Start()
	defer eng.Stop()

	store.AddProduct("ana", state.Product{Name: "Cafe"})
	sched.Advance(3 * time.Second) // debounce push
	store.MarkPending()

	sched.Advance(45 * time.Second)
	if client.pushCount() != 2 {
		t.Fatalf("pushes = %d, want heartbeat push", client.pushCount())
	}
}

func TestHeartbeatPullsWhenIdle(t *testing.T) {
	eng, _, client, sched := newTestEngine(t)
	eng.Start()
	defer eng.Stop()

	sched.Advance(45 * time.Second)
	if client.pullCount() != 1 || client.pushCount() != 0 {
		t.Fatalf("pushes = %d pulls = %d, want silent pull", client.pushCount(), client.pullCount())
	}

	// The heartbeat rearms itself.
	sched.Advance(45 * time.Second)
	if client.pullCount() != 2 {
		t.Fatalf("pulls = %d, want 2 after second beat", client.pullCount())
	}
}

func TestSingleFlightRejectsConcurrentTransfer(t *testing.T) {
	eng, store, client, _ := newTestEngine(t)
	store.AddProduct("ana", state.Product{Name: "Cafe"})
	client.pushStarted = make(chan struct{})
	client.pushRelease = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- eng.Push(context.Background(), false) }()
	<-client.pushStarted

	err := eng.Push(context.Background(), false)
	if err == nil {
		t.Fatal("expected single-flight rejection")
	}
	if e := pkgerrors.As(err); e == nil || e.Code() != pkgerrors.CodeBusy {
		t.Fatalf("error = %v, want busy", err)
	}

	close(client.pushRelease)
	if err := <-done; err != nil {
		t.Fatalf("first push: %v", err)
	}
}
