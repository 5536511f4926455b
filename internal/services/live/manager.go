// Package live keeps the view-state synchronized with the backing store.
// A Manager owns at most one active subscription at a time; each update
// replaces the transaction snapshot wholesale, recomputes the aggregates
// and publishes both in a single step.
package live

import (
	"context"
	"sync"

	"github.com/dimasprabowo/fintrack/internal/models"
	"github.com/dimasprabowo/fintrack/internal/services/analytics"
	"github.com/dimasprabowo/fintrack/internal/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is one full-snapshot update from a feed. Err is set instead of
// Transactions when the transport failed; the manager then keeps the
// last-good snapshot and only surfaces the error.
type Event struct {
	Transactions []models.Transaction
	Err          error
}

// Feed delivers an ordered stream of snapshot events for one owner.
// The channel must emit an initial snapshot promptly after Subscribe and
// close when ctx is cancelled.
type Feed interface {
	Subscribe(ctx context.Context, ownerID uuid.UUID) (<-chan Event, error)
}

// Manager is the subscription state machine: Stopped, or Active for
// exactly one owner. Start supersedes any previous subscription; events
// from a superseded subscription are discarded, never published.
type Manager struct {
	feed  Feed
	store *state.Store
	log   zerolog.Logger

	mu     sync.Mutex
	gen    uint64 // bumped on every Start/Stop; stale events carry an old gen
	cancel context.CancelFunc
	owner  uuid.UUID
}

// NewManager creates a stopped manager
func NewManager(feed Feed, store *state.Store, log zerolog.Logger) *Manager {
	return &Manager{
		feed:  feed,
		store: store,
		log:   log,
	}
}

// Start subscribes to ownerID's transactions. Any active subscription is
// stopped first, so Start is safe to call while Active.
func (m *Manager) Start(ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := m.feed.Subscribe(ctx, ownerID)
	if err != nil {
		cancel()
		return err
	}

	m.gen++
	m.cancel = cancel
	m.owner = ownerID
	m.log.Debug().Str("owner", ownerID.String()).Msg("subscription started")

	go m.run(m.gen, events)
	return nil
}

// Stop tears down the active subscription. Calling Stop while already
// stopped is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Active returns the owner of the current subscription, if any
func (m *Manager) Active() (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner, m.cancel != nil
}

func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.log.Debug().Str("owner", m.owner.String()).Msg("subscription stopped")
	m.owner = uuid.Nil
	m.gen++
}

// run applies events strictly in the order received. One goroutine per
// subscription; the channel is the queue.
func (m *Manager) run(gen uint64, events <-chan Event) {
	for ev := range events {
		m.apply(gen, ev)
	}
}

func (m *Manager) apply(gen uint64, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A late event from a superseded or stopped subscription must not
	// reach the view-state.
	if gen != m.gen {
		return
	}

	if ev.Err != nil {
		m.log.Error().Err(ev.Err).Msg("snapshot update failed")
		m.store.SetError("failed to load transactions")
		return
	}

	m.store.PublishSnapshot(ev.Transactions, analytics.Summarize(ev.Transactions))
}
