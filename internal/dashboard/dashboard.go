package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/statement"
)

// RecentLimit is how many records Summary.Recent holds.
const RecentLimit = 8

// Input is the snapshot a summary is computed from. An empty Origin
// includes both personal and business records.
type Input struct {
	Accounts     []model.Account
	Cards        []model.Card
	Transactions []model.Transaction
	Period       calendar.Period
	Origin       model.Origin
}

// Summary is the month overview.
type Summary struct {
	Period         calendar.Period
	Balance        decimal.Decimal
	Income         decimal.Decimal
	Expense        decimal.Decimal
	Net            decimal.Decimal
	OpenStatements decimal.Decimal
	Recent         []model.Transaction
}

// Compute builds the summary for in.Period.
func Compute(in Input) Summary {
	s := Summary{
		Period:         in.Period,
		Balance:        decimal.Zero,
		Income:         decimal.Zero,
		Expense:        decimal.Zero,
		OpenStatements: decimal.Zero,
	}

	for _, a := range in.Accounts {
		if in.Origin == "" || a.Origin == in.Origin {
			s.Balance = s.Balance.Add(a.Balance)
		}
	}

	var txns []model.Transaction
	for _, t := range in.Transactions {
		if in.Origin != "" && t.Origin != in.Origin {
			continue
		}
		txns = append(txns, t)
		if !in.Period.Contains(t.Date) {
			continue
		}
		switch t.Type {
		case model.TypeIncome:
			s.Income = s.Income.Add(t.Amount)
		case model.TypeExpense:
			s.Expense = s.Expense.Add(t.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)

	for _, c := range in.Cards {
		s.OpenStatements = s.OpenStatements.Add(statement.Compute(txns, c.ID, in.Period).Total)
	}

	s.Recent = recent(txns, RecentLimit)
	return s
}

func recent(txns []model.Transaction, n int) []model.Transaction {
	sorted := make([]model.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
