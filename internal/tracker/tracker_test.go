package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dimasprabowo/fintrack/internal/config"
	"github.com/dimasprabowo/fintrack/internal/models"
	"github.com/dimasprabowo/fintrack/internal/services/ai"
	"github.com/dimasprabowo/fintrack/internal/services/analytics"
	"github.com/dimasprabowo/fintrack/internal/services/auth"
	"github.com/dimasprabowo/fintrack/internal/services/live"
	"github.com/dimasprabowo/fintrack/internal/state"
	"github.com/dimasprabowo/fintrack/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestTracker(t *testing.T) (*Tracker, *state.Store) {
	t.Helper()

	db, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{SecretKey: "test-secret", SessionDuration: time.Hour}
	authSvc := auth.NewService(cfg, storage.NewUserRepository(db), storage.NewSessionRepository(db))

	repo := storage.NewTransactionRepository(db)
	store := state.NewStore()
	manager := live.NewManager(live.NewStoreFeed(repo), store, zerolog.Nop())
	t.Cleanup(manager.Stop)

	tr := New(authSvc, repo, manager, ai.NewService(nil), store, zerolog.Nop())
	return tr, store
}

func login(t *testing.T, tr *Tracker) *models.User {
	t.Helper()
	user, err := tr.Register("Budi", "budi@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := tr.Login("budi@example.com", "secret123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return user
}

func waitFor(t *testing.T, views <-chan state.View, cond func(state.View) bool) state.View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-views:
			if cond(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for view update")
		}
	}
}

func TestRegisterDoesNotAuthenticate(t *testing.T) {
	tr, store := newTestTracker(t)

	if _, err := tr.Register("Budi", "budi@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if store.View().User != nil {
		t.Error("Expected register to leave the session empty")
	}
	if _, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated before login, got %v", err)
	}
}

func TestLoginPublishesUserAndStartsSubscription(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	user := login(t, tr)

	view := waitFor(t, views, func(v state.View) bool { return v.User != nil && v.Transactions != nil })
	if view.User.ID != user.ID {
		t.Errorf("Expected current user %v, got %v", user.ID, view.User.ID)
	}
}

func TestAddTransactionFlowsThroughSubscription(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)

	if _, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10"); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	view := waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 1 })

	if view.Transactions[0].Title != "Coffee" {
		t.Errorf("Expected Coffee in the snapshot, got %q", view.Transactions[0].Title)
	}
	if !view.Summary.Income.IsZero() {
		t.Errorf("Expected income 0, got %s", view.Summary.Income)
	}
	if !view.Summary.Expense.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("Expected expense 15000, got %s", view.Summary.Expense)
	}
	if !view.Summary.Balance.Equal(decimal.NewFromInt(-15000)) {
		t.Errorf("Expected balance -15000, got %s", view.Summary.Balance)
	}
}

func TestAddTransaction_Validation(t *testing.T) {
	tr, _ := newTestTracker(t)
	login(t, tr)

	tests := []struct {
		name     string
		title    string
		amount   string
		kind     models.Kind
		category string
		date     string
		want     error
	}{
		{"blank title", " ", "100", models.KindExpense, "Makan", "2024-01-10", ErrValidation},
		{"blank category", "Coffee", "100", models.KindExpense, "", "2024-01-10", ErrValidation},
		{"unknown category", "Coffee", "100", models.KindExpense, "Misc", "2024-01-10", ErrValidation},
		{"bad kind", "Coffee", "100", models.Kind("transfer"), "Makan", "2024-01-10", ErrValidation},
		{"non-numeric amount", "Coffee", "abc", models.KindExpense, "Makan", "2024-01-10", ErrInvalidAmount},
		{"zero amount", "Coffee", "0", models.KindExpense, "Makan", "2024-01-10", ErrInvalidAmount},
		{"negative amount", "Coffee", "-5", models.KindExpense, "Makan", "2024-01-10", ErrInvalidAmount},
		{"bad date", "Coffee", "100", models.KindExpense, "Makan", "10-01-2024", ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.AddTransaction(tt.title, tt.amount, tt.kind, tt.category, tt.date)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateTransaction_UnknownID(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)
	if _, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10"); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 1 })

	err := tr.UpdateTransaction(uuid.New(), "Ghost", "1", models.KindExpense, "Makan", "2024-01-01")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected storage.ErrNotFound, got %v", err)
	}

	// Snapshot stays as it was; the failure only fills the error slot.
	view := store.View()
	if len(view.Transactions) != 1 || view.Transactions[0].Title != "Coffee" {
		t.Error("Expected snapshot unchanged after failed update")
	}
	if view.Err == "" {
		t.Error("Expected error slot to be set")
	}
}

func TestDeleteTransaction_Idempotent(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)
	id, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10")
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 1 })

	if err := tr.DeleteTransaction(id); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if err := tr.DeleteTransaction(id); err != nil {
		t.Fatalf("Expected repeated delete to succeed, got %v", err)
	}

	view := waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 0 })
	if !view.Summary.Balance.IsZero() {
		t.Errorf("Expected balance back to zero, got %s", view.Summary.Balance)
	}
}

func TestLogoutClearsEverythingTogether(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)
	if _, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10"); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 1 })

	tr.Logout()

	view := store.View()
	if view.User != nil || len(view.Transactions) != 0 || !view.Summary.Balance.IsZero() || view.Err != "" {
		t.Errorf("Expected user, snapshot, aggregates and error cleared together, got %+v", view)
	}

	// A store mutation after logout must not reach the cleared view.
	if _, err := tr.AddTransaction("Late", "1", models.KindExpense, "Makan", "2024-01-11"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("Expected ErrNotAuthenticated after logout, got %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if len(store.View().Transactions) != 0 {
		t.Error("Expected snapshot to stay empty after logout")
	}
}

func TestReLoginReplacesSubscription(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)
	if _, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10"); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 1 })

	// Second account sees only its own (empty) snapshot.
	if _, err := tr.Register("Siti", "siti@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := tr.Login("siti@example.com", "secret123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	view := waitFor(t, views, func(v state.View) bool {
		return v.User != nil && v.User.Email == "siti@example.com" && len(v.Transactions) == 0
	})
	if !view.Summary.Expense.IsZero() {
		t.Errorf("Expected fresh aggregates for the new user, got expense %s", view.Summary.Expense)
	}
}

func TestFiltered(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)
	if _, err := tr.AddTransaction("Salary", "100000", models.KindIncome, "Gaji", "2024-02-01"); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if _, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10"); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 2 })

	all := tr.Filtered(analytics.Query{Kind: analytics.All, Category: analytics.All})
	if len(all) != 2 {
		t.Errorf("Expected identity filter to keep 2 transactions, got %d", len(all))
	}

	fromFeb := tr.Filtered(analytics.Query{DateFrom: "2024-02-01"})
	if len(fromFeb) != 1 || fromFeb[0].Title != "Salary" {
		t.Errorf("Expected only Salary from 2024-02-01, got %+v", fromFeb)
	}
}

func TestInsights_RequiresLogin(t *testing.T) {
	tr, _ := newTestTracker(t)

	if _, err := tr.Insights(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestClearError(t *testing.T) {
	tr, store := newTestTracker(t)
	login(t, tr)

	if _, err := tr.AddTransaction("", "1", models.KindExpense, "Makan", "2024-01-10"); err == nil {
		t.Fatal("Expected validation error")
	}
	if store.View().Err == "" {
		t.Fatal("Expected error slot to be set")
	}

	tr.ClearError()
	if store.View().Err != "" {
		t.Error("Expected error slot to be cleared")
	}
}

func TestImportTransactions(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)

	csv := `date,title,amount,type,category
2024-01-10,Kopi,15000,expense,Makan
2024-01-15,Gaji,5000000,income,Gaji
bad-date,Pulsa,50000,expense,Tagihan
`
	result, err := tr.ImportTransactions(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ImportTransactions failed: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 imported rows, got %d", len(result.Rows))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 skipped row, got %v", result.Errors)
	}

	view := waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 2 })
	if !view.Summary.Balance.Equal(decimal.NewFromInt(4985000)) {
		t.Errorf("expected balance 4985000, got %s", view.Summary.Balance)
	}
}

func TestImportTransactions_RequiresLogin(t *testing.T) {
	tr, _ := newTestTracker(t)

	if _, err := tr.ImportTransactions(strings.NewReader("date,title,amount,type,category\n")); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestChangePassword_InvalidatesSession(t *testing.T) {
	tr, store := newTestTracker(t)
	login(t, tr)

	if err := tr.ChangePassword("secret123", "newsecret456"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if store.View().User != nil {
		t.Error("Expected state to be reset after password change")
	}

	if _, err := tr.Login("budi@example.com", "secret123"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("Expected old password to be rejected, got %v", err)
	}
	if _, err := tr.Login("budi@example.com", "newsecret456"); err != nil {
		t.Errorf("Expected new password to work, got %v", err)
	}
}

func TestUpdateTransaction_CrossUserIDLooksUnknown(t *testing.T) {
	tr, store := newTestTracker(t)
	views, cancel := store.Watch()
	defer cancel()

	login(t, tr)
	id, err := tr.AddTransaction("Coffee", "15000", models.KindExpense, "Makan", "2024-01-10")
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 1 })

	// A different user takes over the session and addresses the first
	// user's record by id.
	if _, err := tr.Register("Siti", "siti@example.com", "secret123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := tr.Login("siti@example.com", "secret123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := tr.UpdateTransaction(id, "Hijacked", "1", models.KindExpense, "Makan", "2024-01-01"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected storage.ErrNotFound for another user's id, got %v", err)
	}
	if err := tr.DeleteTransaction(id); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}

	// The original owner's record is untouched.
	if _, err := tr.Login("budi@example.com", "secret123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	view := waitFor(t, views, func(v state.View) bool { return len(v.Transactions) == 1 })
	if view.Transactions[0].Title != "Coffee" {
		t.Errorf("Expected Coffee to survive, got %q", view.Transactions[0].Title)
	}
}
