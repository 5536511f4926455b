package storage

import (
	"fmt"
	"sync"

	"github.com/dimasprabowo/fintrack/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRepository provides transaction data access. Every committed
// mutation raises a change signal so live feeds can re-read the snapshot.
type TransactionRepository struct {
	db *DB

	mu       sync.Mutex
	watchers map[int]chan struct{}
	nextID   int
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{
		db:       db,
		watchers: make(map[int]chan struct{}),
	}
}

// Create inserts a new transaction
func (r *TransactionRepository) Create(t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, title, amount, type, category, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		t.ID.String(),
		t.OwnerID.String(),
		t.Title,
		t.Amount.String(),
		string(t.Kind),
		t.Category,
		t.Date,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	r.notify()
	return nil
}

// Update replaces the mutable fields of an existing transaction. The
// statement is scoped to the owner, so an id belonging to another user
// behaves exactly like an unknown id: ErrNotFound, nothing written.
func (r *TransactionRepository) Update(id, ownerID uuid.UUID, title string, amount decimal.Decimal, kind models.Kind, category, date string) error {
	query := `
		UPDATE transactions SET title = ?, amount = ?, type = ?, category = ?, date = ?
		WHERE id = ? AND user_id = ?
	`
	res, err := r.db.Exec(query,
		title,
		amount.String(),
		string(kind),
		category,
		date,
		id.String(),
		ownerID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	r.notify()
	return nil
}

// Delete removes a transaction. Scoped to the owner; deleting an id that
// is already gone (or belongs to someone else) is not an error, the
// caller's desired end state is already satisfied.
func (r *TransactionRepository) Delete(id, ownerID uuid.UUID) error {
	res, err := r.db.Exec("DELETE FROM transactions WHERE id = ? AND user_id = ?", id.String(), ownerID.String())
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		r.notify()
	}
	return nil
}

// GetByID retrieves a single transaction
func (r *TransactionRepository) GetByID(id uuid.UUID) (*models.Transaction, error) {
	query := `
		SELECT id, user_id, title, amount, type, category, date, created_at
		FROM transactions WHERE id = ?
	`
	rows, err := r.db.Query(query, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	t, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOwner retrieves the full snapshot for one user, newest date first.
// Ties are broken by insertion time and id so the order is deterministic.
func (r *TransactionRepository) ListByOwner(ownerID uuid.UUID) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, title, amount, type, category, date, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC, id DESC
	`
	rows, err := r.db.Query(query, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var t models.Transaction
	var id, ownerID, amount, kind string

	err := row.Scan(
		&id,
		&ownerID,
		&t.Title,
		&amount,
		&kind,
		&t.Category,
		&t.Date,
		&t.CreatedAt,
	)
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.ID, _ = uuid.Parse(id)
	t.OwnerID, _ = uuid.Parse(ownerID)
	t.Kind = models.Kind(kind)
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return t, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}

	return t, nil
}

// Changes registers a change listener. The returned channel receives a
// signal after every committed mutation; pending signals coalesce. The
// cancel func unregisters the listener.
func (r *TransactionRepository) Changes() (<-chan struct{}, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan struct{}, 1)
	r.watchers[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.watchers, id)
	}
	return ch, cancel
}

func (r *TransactionRepository) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
