// Package ledger is the input boundary for recording and removing
// transactions. It validates intents, splits them into installments and
// keeps account balances in step with the records, all inside one store
// transaction. Read-side helpers hand store snapshots to the statement and
// dashboard aggregators.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/categories"
	"github.com/fincontrol-dev/fincontrol/internal/dashboard"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
	"github.com/fincontrol-dev/fincontrol/internal/statement"
	"github.com/fincontrol-dev/fincontrol/internal/store"
)

var (
	// ErrUnknownReference is returned when an intent names a category,
	// account or card that does not exist.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrInvalidGroup is returned when split records break a group invariant.
	ErrInvalidGroup = errors.New("invalid installment group")
)

// Service provides the ledger operations over a store.
type Service struct {
	store    store.Store
	splitter *installment.Splitter
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a ledger Service.
func NewService(st store.Store, splitter *installment.Splitter, log zerolog.Logger) *Service {
	return &Service{store: st, splitter: splitter, log: log, now: time.Now}
}

type recordOptions struct {
	skipBalance bool
}

// RecordOption tunes Record.
type RecordOption func(*recordOptions)

// WithoutBalanceUpdate records without touching account balances. Imports
// use it because legacy balances already include their transactions.
func WithoutBalanceUpdate() RecordOption {
	return func(o *recordOptions) { o.skipBalance = true }
}

// Record splits intent and stores every installment atomically. It returns
// the stored records ordered by installment index.
func (s *Service) Record(ctx context.Context, intent installment.Intent, opts ...RecordOption) ([]model.Transaction, error) {
	var o recordOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !money.HasAtMostCents(intent.TotalAmount) {
		return nil, &installment.IntentError{Field: "total amount", Reason: fmt.Sprintf("%s has more than 2 decimal places", intent.TotalAmount)}
	}
	if !intent.Type.Valid() {
		return nil, &installment.IntentError{Field: "type", Reason: fmt.Sprintf("unknown type %q", intent.Type)}
	}
	if !intent.Origin.Valid() {
		return nil, &installment.IntentError{Field: "origin", Reason: fmt.Sprintf("unknown origin %q", intent.Origin)}
	}

	txns, err := s.splitter.Split(intent)
	if err != nil {
		return nil, err
	}
	if verrs := ValidateGroup(txns); len(verrs) > 0 {
		return nil, joinValidation(verrs)
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, intent); err != nil {
			return err
		}
		if err := s.store.InsertTransactions(ctx, txns); err != nil {
			return fmt.Errorf("storing installments: %w", err)
		}
		if o.skipBalance || intent.AccountID == "" {
			return nil
		}
		delta := decimal.Zero
		for _, t := range txns {
			delta = delta.Add(t.SignedAmount())
		}
		return s.adjustBalance(ctx, intent.AccountID, delta)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("group", txns[0].GroupID).
		Str("first", txns[0].ID).
		Int("installments", len(txns)).
		Str("total", intent.TotalAmount.StringFixed(2)).
		Msg("recorded intent")
	return txns, nil
}

func (s *Service) checkReferences(ctx context.Context, intent installment.Intent) error {
	cat, err := s.store.GetCategory(ctx, intent.CategoryID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: category %q", ErrUnknownReference, intent.CategoryID)
	}
	if err != nil {
		return err
	}
	if cat.Type != intent.Type {
		return &installment.IntentError{Field: "category", Reason: fmt.Sprintf("%s is a %s category", cat.ID, cat.Type)}
	}

	if intent.AccountID != "" {
		if _, err := s.store.GetAccount(ctx, intent.AccountID); errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: account %q", ErrUnknownReference, intent.AccountID)
		} else if err != nil {
			return err
		}
	}
	if intent.CardID != "" {
		if _, err := s.store.GetCard(ctx, intent.CardID); errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: card %q", ErrUnknownReference, intent.CardID)
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) adjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	acc.Balance = acc.Balance.Add(delta)
	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	return nil
}

// revertBalance undoes the balance effect of removed records. Accounts that
// no longer exist are skipped.
func (s *Service) revertBalance(ctx context.Context, removed []model.Transaction) error {
	deltas := make(map[string]decimal.Decimal)
	var order []string
	for _, t := range removed {
		if t.AccountID == "" {
			continue
		}
		if _, ok := deltas[t.AccountID]; !ok {
			order = append(order, t.AccountID)
			deltas[t.AccountID] = decimal.Zero
		}
		deltas[t.AccountID] = deltas[t.AccountID].Sub(t.SignedAmount())
	}
	for _, accountID := range order {
		err := s.adjustBalance(ctx, accountID, deltas[accountID])
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Str("account", accountID).Msg("account gone, balance not reverted")
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteInstallment removes one record and reverts its balance effect. The
// rest of its group is left in place.
func (s *Service) DeleteInstallment(ctx context.Context, id string) (model.Transaction, error) {
	var removed model.Transaction
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := s.store.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := s.store.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		removed = t
		return s.revertBalance(ctx, []model.Transaction{t})
	})
	if err != nil {
		return model.Transaction{}, err
	}
	s.log.Debug().Str("id", id).Str("group", removed.GroupID).Msg("deleted installment")
	return removed, nil
}

// DeleteGroup removes every member of a group, reverts balances and returns
// how many records were removed.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.store.DeleteGroup(ctx, groupID)
		if err != nil {
			return err
		}
		n = len(removed)
		return s.revertBalance(ctx, removed)
	})
	if err != nil {
		return 0, err
	}
	s.log.Debug().Str("group", groupID).Int("removed", n).Msg("deleted group")
	return n, nil
}

// Statement returns the statement of cardID for period. Unknown cards yield
// an empty statement.
func (s *Service) Statement(ctx context.Context, cardID string, period calendar.Period) (statement.Statement, error) {
	txns, err := s.store.ListTransactions(ctx, store.Filter{CardID: cardID})
	if err != nil {
		return statement.Statement{}, err
	}
	card, err := s.store.GetCard(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return statement.Compute(txns, cardID, period), nil
	}
	if err != nil {
		return statement.Statement{}, err
	}
	return statement.ForCard(txns, card, period), nil
}

// StatementStatus returns the payment status of a card's statement.
func (s *Service) StatementStatus(ctx context.Context, cardID string, period calendar.Period) (model.StatementStatus, error) {
	return s.store.GetStatementStatus(ctx, cardID, period.Year, period.Month)
}

// Upcoming returns n consecutive statements of cardID starting at from.
func (s *Service) Upcoming(ctx context.Context, cardID string, from calendar.Period, n int) ([]statement.Statement, error) {
	card, txns, err := s.cardSnapshot(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return statement.Upcoming(txns, card, from, n), nil
}

// AvailableCredit returns the card's limit minus every expense installment
// billed in the month of asOf or later.
func (s *Service) AvailableCredit(ctx context.Context, cardID string, asOf time.Time) (decimal.Decimal, error) {
	card, txns, err := s.cardSnapshot(ctx, cardID)
	if err != nil {
		return decimal.Zero, err
	}
	return statement.Available(txns, card, calendar.PeriodOf(asOf)), nil
}

func (s *Service) cardSnapshot(ctx context.Context, cardID string) (model.Card, []model.Transaction, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Card{}, nil, fmt.Errorf("%w: card %q", ErrUnknownReference, cardID)
	}
	if err != nil {
		return model.Card{}, nil, err
	}
	txns, err := s.store.ListTransactions(ctx, store.Filter{CardID: cardID})
	if err != nil {
		return model.Card{}, nil, err
	}
	return card, txns, nil
}

// Dashboard summarises period. An empty origin includes everything.
func (s *Service) Dashboard(ctx context.Context, period calendar.Period, origin model.Origin) (dashboard.Summary, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return dashboard.Summary{}, err
	}
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return dashboard.Summary{}, err
	}
	txns, err := s.store.ListTransactions(ctx, store.Filter{})
	if err != nil {
		return dashboard.Summary{}, err
	}
	return dashboard.Compute(dashboard.Input{
		Accounts:     accounts,
		Cards:        cards,
		Transactions: txns,
		Period:       period,
		Origin:       origin,
	}), nil
}

// Report computes the chart aggregates for period over months months of
// trend. An empty origin includes everything.
func (s *Service) Report(ctx context.Context, period calendar.Period, origin model.Origin, months int) (dashboard.Report, error) {
	txns, err := s.store.ListTransactions(ctx, store.Filter{})
	if err != nil {
		return dashboard.Report{}, err
	}
	return dashboard.BuildReport(dashboard.Input{
		Transactions: txns,
		Period:       period,
		Origin:       origin,
	}, months), nil
}

// Check validates every stored record, references included.
func (s *Service) Check(ctx context.Context) ([]ValidationError, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	return ValidateGroups(txns, newRefSet(accounts, cards, cats)), nil
}

// SetStatementStatus marks a card's statement as paid or pending.
func (s *Service) SetStatementStatus(ctx context.Context, cardID string, period calendar.Period, status model.PaymentStatus) error {
	if status != model.PaymentPaid && status != model.PaymentPending {
		return fmt.Errorf("unknown payment status %q", status)
	}
	return s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetCard(ctx, cardID); errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: card %q", ErrUnknownReference, cardID)
		} else if err != nil {
			return err
		}
		st := model.StatementStatus{CardID: cardID, Year: period.Year, Month: period.Month, Status: status}
		if status == model.PaymentPaid {
			st.PaidAt = s.now().UTC()
		}
		return s.store.SaveStatementStatus(ctx, st)
	})
}

// Categories loads the category set for name resolution.
func (s *Service) Categories(ctx context.Context) (*categories.Service, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return categories.NewService(cats), nil
}
