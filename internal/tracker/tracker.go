// Package tracker exposes the callable actions of the finance tracker and
// wires the session, repository, live subscription and view-state
// together. It is the only writer of the error slot and the loading flag.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dimasprabowo/fintrack/internal/models"
	"github.com/dimasprabowo/fintrack/internal/services/ai"
	"github.com/dimasprabowo/fintrack/internal/services/analytics"
	"github.com/dimasprabowo/fintrack/internal/services/auth"
	"github.com/dimasprabowo/fintrack/internal/services/importer"
	"github.com/dimasprabowo/fintrack/internal/services/live"
	"github.com/dimasprabowo/fintrack/internal/state"
	"github.com/dimasprabowo/fintrack/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("all fields are required")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrInvalidDate      = errors.New("date must be yyyy-MM-dd")
)

// Tracker ties the components together behind one action surface
type Tracker struct {
	auth  *auth.Service
	repo  *storage.TransactionRepository
	live  *live.Manager
	ai    *ai.Service
	store *state.Store
	log   zerolog.Logger
}

// New creates a tracker
func New(authSvc *auth.Service, repo *storage.TransactionRepository, liveMgr *live.Manager, aiSvc *ai.Service, store *state.Store, log zerolog.Logger) *Tracker {
	return &Tracker{
		auth:  authSvc,
		repo:  repo,
		live:  liveMgr,
		ai:    aiSvc,
		store: store,
		log:   log,
	}
}

// State returns the current view tuple
func (t *Tracker) State() state.View {
	return t.store.View()
}

// Watch subscribes to view updates; see state.Store.Watch
func (t *Tracker) Watch() (<-chan state.View, func()) {
	return t.store.Watch()
}

// ClearError empties the error slot
func (t *Tracker) ClearError() {
	t.store.ClearError()
}

// Register creates a new account. The new user is not logged in; call
// Login afterwards.
func (t *Tracker) Register(name, email, password string) (*models.User, error) {
	t.store.SetLoading(true)
	defer t.store.SetLoading(false)

	user, err := t.auth.Register(auth.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.fail(err)
		return nil, err
	}

	t.store.ClearError()
	t.log.Info().Str("user", user.ID.String()).Msg("user registered")
	return user, nil
}

// Login authenticates, replaces the session wholesale and starts the live
// subscription for the new user.
func (t *Tracker) Login(email, password string) (*auth.LoginResult, error) {
	t.store.SetLoading(true)
	defer t.store.SetLoading(false)

	result, err := t.auth.Login(auth.LoginInput{Email: email, Password: password})
	if err != nil {
		t.fail(err)
		return nil, err
	}

	t.live.Stop()
	t.store.SetUser(result.User)
	if err := t.live.Start(result.User.ID); err != nil {
		t.fail(err)
		return nil, err
	}

	t.store.ClearError()
	t.log.Info().Str("user", result.User.ID.String()).Msg("user logged in")
	return result, nil
}

// Logout stops the subscription, invalidates the persisted sessions and
// clears user, snapshot, aggregates and error together. It always
// succeeds from the caller's point of view.
func (t *Tracker) Logout() {
	view := t.store.View()

	t.live.Stop()
	if view.User != nil {
		if err := t.auth.Logout(view.User.ID); err != nil {
			t.log.Warn().Err(err).Msg("failed to delete sessions on logout")
		}
	}
	t.store.Reset()
	t.log.Info().Msg("user logged out and state cleared")
}

// ChangePassword updates the current user's password and invalidates
// every session, including the one in use.
func (t *Tracker) ChangePassword(oldPassword, newPassword string) error {
	owner, err := t.currentUser()
	if err != nil {
		return err
	}

	if err := t.auth.ChangePassword(owner, oldPassword, newPassword); err != nil {
		t.fail(err)
		return err
	}

	t.live.Stop()
	t.store.Reset()
	t.log.Info().Str("user", owner.String()).Msg("password changed, sessions invalidated")
	return nil
}

// AddTransaction validates the input and persists one new record. The
// snapshot update arrives through the live subscription.
func (t *Tracker) AddTransaction(title, amount string, kind models.Kind, category, date string) (uuid.UUID, error) {
	owner, err := t.currentUser()
	if err != nil {
		return uuid.Nil, err
	}

	value, err := t.validate(title, amount, kind, category, date)
	if err != nil {
		t.fail(err)
		return uuid.Nil, err
	}

	txn := models.NewTransaction(owner, strings.TrimSpace(title), value, kind, category, date)
	if err := t.repo.Create(txn); err != nil {
		t.fail(fmt.Errorf("failed to save transaction: %w", err))
		return uuid.Nil, err
	}
	return txn.ID, nil
}

// UpdateTransaction replaces the mutable fields of an existing record.
// The id and owner are never part of the payload; records of other users
// are out of reach and look like unknown ids.
func (t *Tracker) UpdateTransaction(id uuid.UUID, title, amount string, kind models.Kind, category, date string) error {
	owner, err := t.currentUser()
	if err != nil {
		return err
	}

	value, err := t.validate(title, amount, kind, category, date)
	if err != nil {
		t.fail(err)
		return err
	}

	if err := t.repo.Update(id, owner, strings.TrimSpace(title), value, kind, category, date); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			t.fail(err)
			return err
		}
		t.fail(fmt.Errorf("failed to update transaction: %w", err))
		return err
	}
	return nil
}

// DeleteTransaction removes one of the current user's records. Deleting
// an id that is already gone succeeds.
func (t *Tracker) DeleteTransaction(id uuid.UUID) error {
	owner, err := t.currentUser()
	if err != nil {
		return err
	}

	if err := t.repo.Delete(id, owner); err != nil {
		t.fail(fmt.Errorf("failed to delete transaction: %w", err))
		return err
	}
	return nil
}

// ImportTransactions parses a CSV export and persists every valid row
// for the current user. Per-row failures are reported in the result and
// do not abort the rest of the file.
func (t *Tracker) ImportTransactions(reader io.Reader) (*importer.ParseResult, error) {
	owner, err := t.currentUser()
	if err != nil {
		return nil, err
	}

	result, err := importer.ParseCSV(reader)
	if err != nil {
		t.fail(err)
		return nil, err
	}

	for _, row := range result.Rows {
		txn := models.NewTransaction(owner, row.Title, row.Amount, row.Kind, row.Category, row.Date)
		if err := t.repo.Create(txn); err != nil {
			t.fail(fmt.Errorf("failed to save imported transaction: %w", err))
			return result, err
		}
	}

	t.log.Info().Int("imported", len(result.Rows)).Int("skipped", len(result.Errors)).Msg("CSV import finished")
	return result, nil
}

// Filtered applies the query to the current snapshot
func (t *Tracker) Filtered(q analytics.Query) []models.Transaction {
	return analytics.Filter(t.store.View().Transactions, q)
}

// Insights generates the textual financial analysis for the current
// snapshot. Re-invoke to regenerate.
func (t *Tracker) Insights(ctx context.Context) (string, error) {
	if _, err := t.currentUser(); err != nil {
		return "", err
	}

	view := t.store.View()
	text, err := t.ai.Generate(ctx, view.Summary, view.Transactions)
	if err != nil {
		t.fail(err)
		return "", err
	}
	return text, nil
}

func (t *Tracker) currentUser() (uuid.UUID, error) {
	view := t.store.View()
	if view.User == nil {
		return uuid.Nil, ErrNotAuthenticated
	}
	return view.User.ID, nil
}

// validate checks the shared create/update input rules and parses the
// amount. Validation happens before any I/O.
func (t *Tracker) validate(title, amount string, kind models.Kind, category, date string) (decimal.Decimal, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(category) == "" {
		return decimal.Zero, ErrValidation
	}
	if !kind.Valid() {
		return decimal.Zero, fmt.Errorf("%w: unknown kind %q", ErrValidation, kind)
	}
	if !models.ValidCategory(category) {
		return decimal.Zero, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return decimal.Zero, ErrInvalidDate
	}

	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !value.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

// fail writes a user-displayable message to the error slot. The last-good
// snapshot and session stay in place.
func (t *Tracker) fail(err error) {
	t.log.Error().Err(err).Msg("action failed")
	t.store.SetError(err.Error())
}
