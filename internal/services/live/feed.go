package live

import (
	"context"

	"github.com/dimasprabowo/fintrack/internal/storage"
	"github.com/google/uuid"
)

// StoreFeed adapts the transaction repository's change signal into a
// snapshot feed: it emits the owner's full transaction list once on
// subscribe and again after every committed store mutation.
type StoreFeed struct {
	repo *storage.TransactionRepository
}

// NewStoreFeed creates a feed over the given repository
func NewStoreFeed(repo *storage.TransactionRepository) *StoreFeed {
	return &StoreFeed{repo: repo}
}

// Subscribe implements Feed
func (f *StoreFeed) Subscribe(ctx context.Context, ownerID uuid.UUID) (<-chan Event, error) {
	changes, cancel := f.repo.Changes()
	out := make(chan Event)

	go func() {
		defer cancel()
		defer close(out)

		if !f.emit(ctx, ownerID, out) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				if !f.emit(ctx, ownerID, out) {
					return
				}
			}
		}
	}()

	return out, nil
}

// emit re-reads the snapshot and delivers it. Returns false once the
// subscription context is cancelled.
func (f *StoreFeed) emit(ctx context.Context, ownerID uuid.UUID, out chan<- Event) bool {
	transactions, err := f.repo.ListByOwner(ownerID)
	ev := Event{Transactions: transactions, Err: err}
	if err != nil {
		ev.Transactions = nil
	}

	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
