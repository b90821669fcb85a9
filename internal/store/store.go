// Package store defines the persistence contract shared by the SQL and CSV
// backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fincontrol-dev/fincontrol/internal/model"
)

// ErrNotFound is returned when a record ID does not exist.
var ErrNotFound = errors.New("not found")

// Store persists transactions and the entities they reference.
//
// Calls made with the context handed to WithinTransaction's callback join
// that transaction: they commit together or not at all, and readers outside
// the transaction never observe part of it.
type Store interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// InsertTransactions inserts all records or none.
	InsertTransactions(ctx context.Context, txns []model.Transaction) error
	GetTransaction(ctx context.Context, id string) (model.Transaction, error)
	ListTransactions(ctx context.Context, f Filter) ([]model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	// DeleteGroup removes every member of a group and returns them.
	DeleteGroup(ctx context.Context, groupID string) ([]model.Transaction, error)

	SaveAccount(ctx context.Context, a model.Account) error
	GetAccount(ctx context.Context, id string) (model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	SaveCard(ctx context.Context, c model.Card) error
	GetCard(ctx context.Context, id string) (model.Card, error)
	ListCards(ctx context.Context) ([]model.Card, error)
	DeleteCard(ctx context.Context, id string) error

	SaveCategory(ctx context.Context, c model.Category) error
	GetCategory(ctx context.Context, id string) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	SaveStatementStatus(ctx context.Context, s model.StatementStatus) error
	// GetStatementStatus returns a pending status when none was saved.
	GetStatementStatus(ctx context.Context, cardID string, year int, month time.Month) (model.StatementStatus, error)

	Close() error
}

// Filter narrows ListTransactions. Zero fields match everything; From and To
// are inclusive dates.
type Filter struct {
	CardID     string
	AccountID  string
	GroupID    string
	CategoryID string
	Type       model.TransactionType
	Origin     model.Origin
	From       time.Time
	To         time.Time
}

// Match reports whether t passes the filter.
func (f Filter) Match(t model.Transaction) bool {
	switch {
	case f.CardID != "" && t.CardID != f.CardID:
		return false
	case f.AccountID != "" && t.AccountID != f.AccountID:
		return false
	case f.GroupID != "" && t.GroupID != f.GroupID:
		return false
	case f.CategoryID != "" && t.CategoryID != f.CategoryID:
		return false
	case f.Type != "" && t.Type != f.Type:
		return false
	case f.Origin != "" && t.Origin != f.Origin:
		return false
	case !f.From.IsZero() && t.Date.Before(f.From):
		return false
	case !f.To.IsZero() && t.Date.After(f.To):
		return false
	}
	return true
}
