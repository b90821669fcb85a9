package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

// TrendMonths is the default length of Report.Trend.
const TrendMonths = 6

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	CategoryID string
	Total      decimal.Decimal
}

// MonthTotals is one month of the income versus expense trend.
type MonthTotals struct {
	Period  calendar.Period
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// OriginSplit is a month's expenses divided by origin.
type OriginSplit struct {
	Personal decimal.Decimal
	Business decimal.Decimal
}

// Report holds the chart aggregates for a month.
type Report struct {
	Period     calendar.Period
	ByCategory []CategoryTotal
	Trend      []MonthTotals
	Split      OriginSplit
}

// BuildReport computes every aggregate for in.Period. The trend covers the
// months months ending at in.Period. in.Origin filters the category totals
// and the trend; the split always covers both origins. Accounts and cards
// are not used.
func BuildReport(in Input, months int) Report {
	return Report{
		Period:     in.Period,
		ByCategory: ByCategory(in.Transactions, in.Period, in.Origin),
		Trend:      Trend(in.Transactions, in.Period, months, in.Origin),
		Split:      SplitByOrigin(in.Transactions, in.Period),
	}
}

// ByCategory sums the expenses of period per category, largest first. Ties
// are ordered by category ID.
func ByCategory(txns []model.Transaction, period calendar.Period, origin model.Origin) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != model.TypeExpense || !period.Contains(t.Date) || !matchOrigin(t, origin) {
			continue
		}
		sum, ok := sums[t.CategoryID]
		if !ok {
			sum = decimal.Zero
		}
		sums[t.CategoryID] = sum.Add(t.Amount)
	}

	out := make([]CategoryTotal, 0, len(sums))
	for id, total := range sums {
		out = append(out, CategoryTotal{CategoryID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// Trend returns income and expense totals for the months months ending at
// end, oldest first. Months without records are present with zero totals.
func Trend(txns []model.Transaction, end calendar.Period, months int, origin model.Origin) []MonthTotals {
	if months < 1 {
		return nil
	}
	first := end.Add(-(months - 1)).Index()
	out := make([]MonthTotals, months)
	for i := range out {
		out[i] = MonthTotals{Period: end.Add(i - (months - 1)), Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, t := range txns {
		if !matchOrigin(t, origin) {
			continue
		}
		i := calendar.PeriodOf(t.Date).Index() - first
		if i < 0 || i >= months {
			continue
		}
		switch t.Type {
		case model.TypeIncome:
			out[i].Income = out[i].Income.Add(t.Amount)
		case model.TypeExpense:
			out[i].Expense = out[i].Expense.Add(t.Amount)
		}
	}
	return out
}

// SplitByOrigin sums the expenses of period per origin.
func SplitByOrigin(txns []model.Transaction, period calendar.Period) OriginSplit {
	s := OriginSplit{Personal: decimal.Zero, Business: decimal.Zero}
	for _, t := range txns {
		if t.Type != model.TypeExpense || !period.Contains(t.Date) {
			continue
		}
		switch t.Origin {
		case model.OriginPersonal:
			s.Personal = s.Personal.Add(t.Amount)
		case model.OriginBusiness:
			s.Business = s.Business.Add(t.Amount)
		}
	}
	return s
}

func matchOrigin(t model.Transaction, origin model.Origin) bool {
	return origin == "" || t.Origin == origin
}
