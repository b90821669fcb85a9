// Package installment splits a purchase into monthly installment records.
//
// A purchase of total T in N installments becomes N transactions sharing one
// group ID. Every installment carries the total divided by N truncated to
// whole cents; the leftover cents go to installment 1, so the amounts always
// add up to T exactly. Installment i is due i-1 months after the start date.
package installment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/id"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

// ErrInvalidIntent is wrapped by every error Split returns.
var ErrInvalidIntent = errors.New("invalid intent")

// IntentError names the offending intent field.
type IntentError struct {
	Field  string
	Reason string
}

func (e *IntentError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidIntent, e.Field, e.Reason)
}

func (e *IntentError) Unwrap() error { return ErrInvalidIntent }

// Intent is a purchase or income as the user entered it, before splitting.
type Intent struct {
	TotalAmount      decimal.Decimal
	InstallmentCount int
	StartDate        time.Time
	Type             model.TransactionType
	Origin           model.Origin
	CategoryID       string
	AccountID        string
	CardID           string
	Notes            string
	ReceiptRef       string
	// SourceID, when set, replaces minted IDs so re-imports are recognisable:
	// a single record takes it as its ID, a group takes it as the group ID
	// and its members become SourceID-1..SourceID-N.
	SourceID string
}

// Validate checks the fields Split depends on.
func (in Intent) Validate() error {
	if !in.TotalAmount.IsPositive() {
		return &IntentError{Field: "total amount", Reason: fmt.Sprintf("must be positive, got %s", in.TotalAmount)}
	}
	if in.InstallmentCount < 1 {
		return &IntentError{Field: "installment count", Reason: fmt.Sprintf("must be at least 1, got %d", in.InstallmentCount)}
	}
	if in.StartDate.IsZero() {
		return &IntentError{Field: "start date", Reason: "is missing"}
	}
	return nil
}

// Splitter turns intents into installment records.
type Splitter struct {
	ids    id.Generator
	policy calendar.MonthPolicy
}

// NewSplitter creates a Splitter. An empty policy means calendar.Overflow.
func NewSplitter(ids id.Generator, policy calendar.MonthPolicy) *Splitter {
	if policy == "" {
		policy = calendar.Overflow
	}
	return &Splitter{ids: ids, policy: policy}
}

// Policy returns the month policy used for due dates.
func (s *Splitter) Policy() calendar.MonthPolicy {
	return s.policy
}

// Split produces intent.InstallmentCount records ordered by installment index.
func (s *Splitter) Split(intent Intent) ([]model.Transaction, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	n := intent.InstallmentCount
	amounts := Amounts(intent.TotalAmount, n)
	start := calendar.Truncate(intent.StartDate)

	var groupID string
	if n > 1 {
		groupID = intent.SourceID
		if groupID == "" {
			groupID = s.ids.NewID()
		}
	}

	txns := make([]model.Transaction, n)
	for i := 0; i < n; i++ {
		txns[i] = model.Transaction{
			ID:               s.memberID(intent.SourceID, i, n),
			Type:             intent.Type,
			Origin:           intent.Origin,
			CategoryID:       intent.CategoryID,
			Amount:           amounts[i],
			Date:             calendar.AddMonths(start, i, s.policy),
			AccountID:        intent.AccountID,
			CardID:           intent.CardID,
			InstallmentCount: n,
			InstallmentIndex: i + 1,
			GroupID:          groupID,
			Notes:            intent.Notes,
		}
	}
	txns[0].ReceiptRef = intent.ReceiptRef
	return txns, nil
}

func (s *Splitter) memberID(sourceID string, i, n int) string {
	switch {
	case sourceID == "":
		return s.ids.NewID()
	case n == 1:
		return sourceID
	}
	return fmt.Sprintf("%s-%d", sourceID, i+1)
}

// Amounts splits total into n per-installment amounts. The first amount
// absorbs the cents lost to truncation. n must be at least 1.
func Amounts(total decimal.Decimal, n int) []decimal.Decimal {
	count := decimal.NewFromInt(int64(n))
	base, _ := total.QuoRem(count, 2)
	remainder := total.Sub(base.Mul(count)).Round(2)

	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = base
	}
	out[0] = base.Add(remainder)
	return out
}
