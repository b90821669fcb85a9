package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func txn(id string, typ model.TransactionType, origin model.Origin, amount string, date time.Time) model.Transaction {
	return model.Transaction{
		ID:               id,
		Type:             typ,
		Origin:           origin,
		Amount:           dec(amount),
		Date:             date,
		InstallmentCount: 1,
		InstallmentIndex: 1,
	}
}

func demo() Input {
	onCard := txn("c1", model.TypeExpense, model.OriginPersonal, "450", calendar.Date(2024, 5, 10))
	onCard.CardID = "nubank"
	bizCard := txn("c2", model.TypeExpense, model.OriginBusiness, "3200", calendar.Date(2024, 5, 12))
	bizCard.CardID = "itau"

	return Input{
		Accounts: []model.Account{
			{ID: "a1", Name: "Conta Corrente Itau", Origin: model.OriginPersonal, Balance: dec("5420.50")},
			{ID: "a2", Name: "Conta PJ Bradesco", Origin: model.OriginBusiness, Balance: dec("18750.00")},
		},
		Cards: []model.Card{{ID: "nubank"}, {ID: "itau"}},
		Transactions: []model.Transaction{
			txn("t1", model.TypeIncome, model.OriginPersonal, "8500", calendar.Date(2024, 5, 5)),
			txn("t2", model.TypeIncome, model.OriginBusiness, "15000", calendar.Date(2024, 5, 3)),
			txn("t3", model.TypeExpense, model.OriginBusiness, "6500", calendar.Date(2024, 5, 5)),
			txn("t4", model.TypeExpense, model.OriginPersonal, "350", calendar.Date(2024, 5, 14)),
			txn("old", model.TypeExpense, model.OriginPersonal, "99", calendar.Date(2024, 4, 30)),
			onCard,
			bizCard,
		},
		Period: calendar.Period{Year: 2024, Month: time.May},
	}
}

func TestCompute_All(t *testing.T) {
	s := Compute(demo())

	assert.Equal(t, "24170.50", s.Balance.StringFixed(2))
	assert.Equal(t, "23500.00", s.Income.StringFixed(2))
	assert.Equal(t, "10500.00", s.Expense.StringFixed(2))
	assert.Equal(t, "13000.00", s.Net.StringFixed(2))
	assert.Equal(t, "3650.00", s.OpenStatements.StringFixed(2))
	require.Len(t, s.Recent, 7)
	assert.Equal(t, "t4", s.Recent[0].ID)
	assert.Equal(t, "old", s.Recent[6].ID)
}

func TestCompute_OriginFilter(t *testing.T) {
	in := demo()
	in.Origin = model.OriginBusiness
	s := Compute(in)

	assert.Equal(t, "18750.00", s.Balance.StringFixed(2))
	assert.Equal(t, "15000.00", s.Income.StringFixed(2))
	assert.Equal(t, "9700.00", s.Expense.StringFixed(2))
	assert.Equal(t, "3200.00", s.OpenStatements.StringFixed(2))
	for _, r := range s.Recent {
		assert.Equal(t, model.OriginBusiness, r.Origin)
	}
}

func TestCompute_RecentLimit(t *testing.T) {
	in := Input{Period: calendar.Period{Year: 2024, Month: time.May}}
	for i := 1; i <= 12; i++ {
		in.Transactions = append(in.Transactions, txn(fmt.Sprintf("t%02d", i), model.TypeExpense, model.OriginPersonal, "1", calendar.Date(2024, 5, i)))
	}

	s := Compute(in)
	require.Len(t, s.Recent, RecentLimit)
	assert.Equal(t, "t12", s.Recent[0].ID)
	assert.Equal(t, "t05", s.Recent[RecentLimit-1].ID)
	assert.Equal(t, "t01", in.Transactions[0].ID, "input order untouched")
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(Input{Period: calendar.Period{Year: 2024, Month: time.May}})
	assert.True(t, s.Balance.IsZero())
	assert.True(t, s.Net.IsZero())
	assert.True(t, s.OpenStatements.IsZero())
	assert.Empty(t, s.Recent)
}
