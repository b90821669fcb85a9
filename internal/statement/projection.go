package statement

import (
	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
)

// Projected approximates the statement total by charging every installment
// its group total divided by the installment count, rounded to cents. It can
// differ from Statement.Total by the remainder cents the first installment
// carries; Statement.Total is the amount actually owed.
func Projected(txns []model.Transaction, cardID string, period calendar.Period) decimal.Decimal {
	groupTotals := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.CardID == cardID && t.IsInstallment() && t.GroupID != "" {
			groupTotals[t.GroupID] = groupTotals[t.GroupID].Add(t.Amount)
		}
	}

	total := decimal.Zero
	for _, t := range attributed(txns, cardID, period) {
		gt, ok := groupTotals[t.GroupID]
		if !t.IsInstallment() || !ok {
			total = total.Add(t.Amount)
			continue
		}
		share := gt.Div(decimal.NewFromInt(int64(t.InstallmentCount)))
		total = total.Add(money.Round(share))
	}
	return total
}

// Outstanding sums the card's expense charges billed on from or any later
// statement: the part of the credit limit still committed.
func Outstanding(txns []model.Transaction, cardID string, from calendar.Period) decimal.Decimal {
	starts := groupStarts(txns, cardID)
	total := decimal.Zero
	for _, t := range txns {
		if t.CardID != cardID || t.Type != model.TypeExpense {
			continue
		}
		if idx, ok := scheduled(t, starts); ok && idx >= from.Index() {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Available returns the card's credit limit minus Outstanding.
func Available(txns []model.Transaction, card model.Card, from calendar.Period) decimal.Decimal {
	return card.CreditLimit.Sub(Outstanding(txns, card.ID, from))
}
