// Package storetest holds the behavioural suite every store.Store backend
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/store"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises a backend against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"TransactionRoundTrip", testTransactionRoundTrip},
		{"InsertDuplicateIsAtomic", testInsertDuplicateIsAtomic},
		{"ListFilters", testListFilters},
		{"DeleteTransaction", testDeleteTransaction},
		{"DeleteGroup", testDeleteGroup},
		{"RollbackOnError", testRollbackOnError},
		{"CommitSpansEntities", testCommitSpansEntities},
		{"Accounts", testAccounts},
		{"Cards", testCards},
		{"Categories", testCategories},
		{"StatementStatus", testStatementStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Group returns a three-installment card purchase dated from January 2025.
func Group() []model.Transaction {
	var txns []model.Transaction
	for i := 1; i <= 3; i++ {
		txns = append(txns, model.Transaction{
			ID:               "g1-" + string(rune('0'+i)),
			Type:             model.TypeExpense,
			Origin:           model.OriginPersonal,
			CategoryID:       "d-lazer",
			Amount:           d("33.34"),
			Date:             calendar.Date(2025, time.Month(i), 10),
			CardID:           "card-1",
			InstallmentCount: 3,
			InstallmentIndex: i,
			GroupID:          "g1",
		})
	}
	txns[1].Amount = d("33.33")
	txns[2].Amount = d("33.33")
	txns[0].ReceiptRef = "receipt.pdf"
	return txns
}

// Single returns a one-off account transaction.
func Single(id string, typ model.TransactionType, amount string, date time.Time) model.Transaction {
	return model.Transaction{
		ID:               id,
		Type:             typ,
		Origin:           model.OriginBusiness,
		CategoryID:       "r-salario",
		Amount:           d(amount),
		Date:             date,
		AccountID:        "acc-1",
		InstallmentCount: 1,
		InstallmentIndex: 1,
		Notes:            "note, with comma",
	}
}

func assertSameTransaction(t *testing.T, want, got model.Transaction) {
	t.Helper()
	assert.True(t, want.Amount.Equal(got.Amount), "amount: want %s, got %s", want.Amount, got.Amount)
	assert.True(t, want.Date.Equal(got.Date), "date: want %s, got %s", want.Date, got.Date)
	want.Amount, got.Amount = decimal.Zero, decimal.Zero
	want.Date, got.Date = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func testTransactionRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	single := Single("s1", model.TypeIncome, "1500.00", calendar.Date(2025, 2, 5))
	require.NoError(t, s.InsertTransactions(ctx, append(Group(), single)))

	got, err := s.GetTransaction(ctx, "s1")
	require.NoError(t, err)
	assertSameTransaction(t, single, got)

	got, err = s.GetTransaction(ctx, "g1-1")
	require.NoError(t, err)
	assertSameTransaction(t, Group()[0], got)

	_, err = s.GetTransaction(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	all, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"g1-1", "s1", "g1-2", "g1-3"}, ids(all))
}

func testInsertDuplicateIsAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTransactions(ctx, Group()[:1]))

	err := s.InsertTransactions(ctx, Group())
	require.Error(t, err)

	all, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1-1"}, ids(all))
}

func testListFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	txns := append(Group(),
		Single("s1", model.TypeIncome, "10.00", calendar.Date(2025, 2, 1)),
		Single("s2", model.TypeExpense, "5.00", calendar.Date(2025, 2, 28)),
	)
	require.NoError(t, s.InsertTransactions(ctx, txns))

	tests := []struct {
		name   string
		filter store.Filter
		want   []string
	}{
		{"card", store.Filter{CardID: "card-1"}, []string{"g1-1", "g1-2", "g1-3"}},
		{"account", store.Filter{AccountID: "acc-1"}, []string{"s1", "s2"}},
		{"group", store.Filter{GroupID: "g1"}, []string{"g1-1", "g1-2", "g1-3"}},
		{"category", store.Filter{CategoryID: "r-salario"}, []string{"s1", "s2"}},
		{"type", store.Filter{Type: model.TypeIncome}, []string{"s1"}},
		{"origin", store.Filter{Origin: model.OriginPersonal}, []string{"g1-1", "g1-2", "g1-3"}},
		{"inclusive range", store.Filter{From: calendar.Date(2025, 2, 1), To: calendar.Date(2025, 2, 28)}, []string{"s1", "g1-2", "s2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func testDeleteTransaction(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertTransactions(ctx, Group()))

	require.NoError(t, s.DeleteTransaction(ctx, "g1-2"))
	all, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1-1", "g1-3"}, ids(all))

	err = s.DeleteTransaction(ctx, "g1-2")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testDeleteGroup(t *testing.T, s store.Store) {
	ctx := context.Background()
	single := Single("s1", model.TypeIncome, "10.00", calendar.Date(2025, 2, 1))
	require.NoError(t, s.InsertTransactions(ctx, append(Group(), single)))

	removed, err := s.DeleteGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1-1", "g1-2", "g1-3"}, ids(removed))

	all, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(all))

	_, err = s.DeleteGroup(ctx, "g1")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testRollbackOnError(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.InsertTransactions(ctx, Group()))
		require.NoError(t, s.SaveAccount(ctx, model.Account{ID: "acc-1", Name: "Main", Origin: model.OriginPersonal, Balance: d("1.00")}))

		inside, err := s.ListTransactions(ctx, store.Filter{})
		require.NoError(t, err)
		assert.Len(t, inside, 3)
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := s.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.GetAccount(ctx, "acc-1")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testCommitSpansEntities(t *testing.T, s store.Store) {
	ctx := context.Background()
	acc := model.Account{ID: "acc-1", Name: "Main", Origin: model.OriginPersonal, Balance: d("100.00")}
	require.NoError(t, s.SaveAccount(ctx, acc))

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		txn := Single("s1", model.TypeExpense, "40.00", calendar.Date(2025, 3, 1))
		if err := s.InsertTransactions(ctx, []model.Transaction{txn}); err != nil {
			return err
		}
		acc.Balance = acc.Balance.Sub(txn.Amount)
		return s.SaveAccount(ctx, acc)
	})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "60.00", got.Balance.StringFixed(2))

	_, err = s.GetTransaction(ctx, "s1")
	assert.NoError(t, err)
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := model.Account{ID: "acc-1", Name: "Nubank", Origin: model.OriginPersonal, Balance: d("1234.56")}
	require.NoError(t, s.SaveAccount(ctx, a))

	a.Balance = d("-10.00")
	require.NoError(t, s.SaveAccount(ctx, a))

	got, err := s.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Nubank", got.Name)
	assert.Equal(t, "-10.00", got.Balance.StringFixed(2))

	list, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteAccount(ctx, "acc-1"))
	assert.ErrorIs(t, s.DeleteAccount(ctx, "acc-1"), store.ErrNotFound)
	_, err = s.GetAccount(ctx, "acc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCards(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := model.Card{ID: "card-1", Name: "Visa", Bank: "Itaú", Origin: model.OriginBusiness, CreditLimit: d("5000.00"), ClosingDay: 5, DueDay: 12}
	require.NoError(t, s.SaveCard(ctx, c))

	got, err := s.GetCard(ctx, "card-1")
	require.NoError(t, err)
	assert.True(t, c.CreditLimit.Equal(got.CreditLimit))
	c.CreditLimit, got.CreditLimit = decimal.Zero, decimal.Zero
	assert.Equal(t, c, got)

	list, err := s.ListCards(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteCard(ctx, "card-1"))
	_, err = s.GetCard(ctx, "card-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveCategory(ctx, model.Category{ID: "d-lazer", Name: "Lazer", Type: model.TypeExpense}))
	require.NoError(t, s.SaveCategory(ctx, model.Category{ID: "r-salario", Name: "Salário", Type: model.TypeIncome}))

	got, err := s.GetCategory(ctx, "r-salario")
	require.NoError(t, err)
	assert.Equal(t, model.Category{ID: "r-salario", Name: "Salário", Type: model.TypeIncome}, got)

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteCategory(ctx, "d-lazer"))
	assert.ErrorIs(t, s.DeleteCategory(ctx, "d-lazer"), store.ErrNotFound)
}

func testStatementStatus(t *testing.T, s store.Store) {
	ctx := context.Background()

	got, err := s.GetStatementStatus(ctx, "card-1", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, got.Status)
	assert.True(t, got.PaidAt.IsZero())

	paidAt := time.Date(2025, 4, 10, 14, 30, 0, 0, time.UTC)
	st := model.StatementStatus{CardID: "card-1", Year: 2025, Month: time.March, Status: model.PaymentPaid, PaidAt: paidAt}
	require.NoError(t, s.SaveStatementStatus(ctx, st))

	got, err = s.GetStatementStatus(ctx, "card-1", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.Status)
	assert.True(t, paidAt.Equal(got.PaidAt))

	st.Status, st.PaidAt = model.PaymentPending, time.Time{}
	require.NoError(t, s.SaveStatementStatus(ctx, st))
	got, err = s.GetStatementStatus(ctx, "card-1", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, got.Status)

	other, err := s.GetStatementStatus(ctx, "card-1", 2025, time.April)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, other.Status)
}

func ids(txns []model.Transaction) []string {
	out := make([]string, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.ID)
	}
	return out
}
