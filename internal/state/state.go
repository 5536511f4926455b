// Package state holds the single observable view of the application:
// current user, transaction snapshot, aggregate totals, loading flag and
// error slot. Every write replaces the fields it owns in one critical
// section, so a reader always sees a snapshot and its aggregates from the
// same publish, never a mix.
package state

import (
	"sync"

	"github.com/dimasprabowo/fintrack/internal/models"
)

// View is the consumer-facing tuple. Transactions is replaced wholesale
// on every publish and must not be mutated by readers.
type View struct {
	User         *models.User         `json:"user"`
	Transactions []models.Transaction `json:"transactions"`
	Summary      models.Summary       `json:"summary"`
	Loading      bool                 `json:"loading"`
	Err          string               `json:"error,omitempty"`
}

// Store is the owner of the view. All components write through it; all
// consumers read from it.
type Store struct {
	mu       sync.RWMutex
	view     View
	watchers map[int]chan View
	nextID   int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		view:     View{Transactions: []models.Transaction{}},
		watchers: make(map[int]chan View),
	}
}

// View returns the current view
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Watch registers an observer. The channel carries the whole view after
// every publish; if the observer lags, older views are dropped in favor
// of the newest (each carried view is internally consistent on its own).
// The cancel func unregisters the observer.
func (s *Store) Watch() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan View, 1)
	s.watchers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
	return ch, cancel
}

// SetUser replaces the current user wholesale
func (s *Store) SetUser(u *models.User) {
	s.publish(func(v *View) { v.User = u })
}

// SetLoading sets the loading flag
func (s *Store) SetLoading(loading bool) {
	s.publish(func(v *View) { v.Loading = loading })
}

// SetError writes a user-displayable message to the error slot,
// leaving the rest of the view untouched.
func (s *Store) SetError(msg string) {
	s.publish(func(v *View) { v.Err = msg })
}

// ClearError empties the error slot
func (s *Store) ClearError() {
	s.publish(func(v *View) { v.Err = "" })
}

// PublishSnapshot replaces the transaction list and its aggregates in a
// single publish. The summary must have been computed from exactly this
// list.
func (s *Store) PublishSnapshot(transactions []models.Transaction, summary models.Summary) {
	s.publish(func(v *View) {
		v.Transactions = transactions
		v.Summary = summary
	})
}

// Reset returns the view to its logged-out state: no user, empty
// snapshot, zero totals, no error, not loading. All fields clear in the
// same publish so no observer can see a partially cleared view.
func (s *Store) Reset() {
	s.publish(func(v *View) {
		*v = View{Transactions: []models.Transaction{}}
	})
}

func (s *Store) publish(mutate func(*View)) {
	s.mu.Lock()
	mutate(&s.view)
	current := s.view
	for _, ch := range s.watchers {
		select {
		case ch <- current:
		default:
			// Drop the stale pending view, keep the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- current:
			default:
			}
		}
	}
	s.mu.Unlock()
}
