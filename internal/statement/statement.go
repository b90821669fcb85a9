// Package statement rebuilds a credit card's monthly statement (fatura)
// from the card's transaction snapshot.
//
// A single purchase belongs to the statement of the month it is dated in.
// An installment belongs to the statement of the month it is scheduled for:
// the group's start month plus its index minus one. The start month is
// derived from the records themselves so a due date pushed forward by
// day-of-month overflow still lands on its scheduled statement.
package statement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

// Line is one charge on a statement.
type Line struct {
	TransactionID    string
	GroupID          string
	Date             time.Time
	Type             model.TransactionType
	Origin           model.Origin
	CategoryID       string
	Notes            string
	Amount           decimal.Decimal
	InstallmentIndex int
	InstallmentCount int
}

// Statement is a card's bill for one month.
type Statement struct {
	CardID        string
	Period        calendar.Period
	Items         []Line
	Total         decimal.Decimal
	PersonalTotal decimal.Decimal
	BusinessTotal decimal.Decimal
	ClosingDate   time.Time // zero unless built by ForCard
	DueDate       time.Time // zero unless built by ForCard
}

// Compute returns the statement of cardID for period. Unknown cards and
// empty periods give an empty statement with zero totals.
func Compute(txns []model.Transaction, cardID string, period calendar.Period) Statement {
	st := Statement{
		CardID:        cardID,
		Period:        period,
		Total:         decimal.Zero,
		PersonalTotal: decimal.Zero,
		BusinessTotal: decimal.Zero,
	}
	if cardID == "" {
		return st
	}

	for _, t := range attributed(txns, cardID, period) {
		st.Items = append(st.Items, Line{
			TransactionID:    t.ID,
			GroupID:          t.GroupID,
			Date:             t.Date,
			Type:             t.Type,
			Origin:           t.Origin,
			CategoryID:       t.CategoryID,
			Notes:            t.Notes,
			Amount:           t.Amount,
			InstallmentIndex: t.InstallmentIndex,
			InstallmentCount: t.InstallmentCount,
		})
		st.Total = st.Total.Add(t.Amount)
		switch t.Origin {
		case model.OriginPersonal:
			st.PersonalTotal = st.PersonalTotal.Add(t.Amount)
		case model.OriginBusiness:
			st.BusinessTotal = st.BusinessTotal.Add(t.Amount)
		}
	}
	return st
}

// ForCard computes the statement and fills in its closing and due dates.
func ForCard(txns []model.Transaction, card model.Card, period calendar.Period) Statement {
	st := Compute(txns, card.ID, period)
	st.ClosingDate, st.DueDate = Dates(card, period)
	return st
}

// Dates returns the closing and due dates of card's statement for period.
// Days past the end of the month are clamped. The due date falls in the
// following month when DueDay is not after ClosingDay.
func Dates(card model.Card, period calendar.Period) (closing, due time.Time) {
	closing = calendar.DayIn(period, card.ClosingDay)
	duePeriod := period
	if card.DueDay <= card.ClosingDay {
		duePeriod = period.Add(1)
	}
	return closing, calendar.DayIn(duePeriod, card.DueDay)
}

// Upcoming returns n consecutive statements starting at from.
func Upcoming(txns []model.Transaction, card model.Card, from calendar.Period, n int) []Statement {
	out := make([]Statement, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, ForCard(txns, card, from.Add(i)))
	}
	return out
}

// attributed returns the card's records that fall on period's statement,
// in snapshot order.
func attributed(txns []model.Transaction, cardID string, period calendar.Period) []model.Transaction {
	starts := groupStarts(txns, cardID)
	target := period.Index()

	var out []model.Transaction
	for _, t := range txns {
		if t.CardID != cardID {
			continue
		}
		if idx, ok := scheduled(t, starts); ok && idx == target {
			out = append(out, t)
		}
	}
	return out
}

// scheduled returns the period index of the statement t is billed on.
// Installments with an index outside 1..count are never billed.
func scheduled(t model.Transaction, starts map[string]int) (int, bool) {
	if !t.IsInstallment() {
		return calendar.PeriodOf(t.Date).Index(), true
	}
	if t.InstallmentIndex < 1 || t.InstallmentIndex > t.InstallmentCount {
		return 0, false
	}
	start := startIndex(t)
	if s, ok := starts[t.GroupID]; ok {
		start = s
	}
	return start + t.InstallmentIndex - 1, true
}

// startIndex derives the group's first month from one member.
func startIndex(t model.Transaction) int {
	return calendar.PeriodOf(t.Date).Index() - (t.InstallmentIndex - 1)
}

// groupStarts maps each of the card's groups to its earliest derived start.
func groupStarts(txns []model.Transaction, cardID string) map[string]int {
	starts := make(map[string]int)
	for _, t := range txns {
		if t.CardID != cardID || !t.IsInstallment() || t.GroupID == "" {
			continue
		}
		if t.InstallmentIndex < 1 || t.InstallmentIndex > t.InstallmentCount {
			continue
		}
		s := startIndex(t)
		if cur, ok := starts[t.GroupID]; !ok || s < cur {
			starts[t.GroupID] = s
		}
	}
	return starts
}
