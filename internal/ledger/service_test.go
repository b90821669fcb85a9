package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/id"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/store"
	"github.com/fincontrol-dev/fincontrol/internal/store/csvstore"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc   *Service
	store store.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st, err := csvstore.Open(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.SaveCategory(ctx, model.Category{ID: "d-lazer", Name: "Lazer", Type: model.TypeExpense}))
	require.NoError(t, st.SaveCategory(ctx, model.Category{ID: "r-salario", Name: "Salário", Type: model.TypeIncome}))
	require.NoError(t, st.SaveAccount(ctx, model.Account{ID: "acc-1", Name: "Main", Origin: model.OriginPersonal, Balance: dec("1000.00")}))
	require.NoError(t, st.SaveCard(ctx, model.Card{ID: "card-1", Name: "Visa", Origin: model.OriginPersonal, CreditLimit: dec("500.00"), ClosingDay: 5, DueDay: 12}))

	svc := NewService(st, installment.NewSplitter(id.NewSequence("id"), calendar.Overflow), zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2025, 2, 13, 9, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, store: st}
}

func cardPurchase(total string, n int, start time.Time) installment.Intent {
	return installment.Intent{
		TotalAmount:      dec(total),
		InstallmentCount: n,
		StartDate:        start,
		Type:             model.TypeExpense,
		Origin:           model.OriginPersonal,
		CategoryID:       "d-lazer",
		CardID:           "card-1",
	}
}

func balance(t *testing.T, f fixture) string {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	return acc.Balance.StringFixed(2)
}

func TestRecord_SplitsIntoGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txns, err := f.svc.Record(ctx, cardPurchase("100.00", 3, calendar.Date(2025, 1, 15)))
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "id-0001", txns[0].GroupID)

	stored, err := f.store.ListTransactions(ctx, store.Filter{GroupID: "id-0001"})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "33.34", stored[0].Amount.StringFixed(2))
	assert.Equal(t, "33.33", stored[1].Amount.StringFixed(2))
	assert.Equal(t, calendar.Date(2025, 3, 15), stored[2].Date)

	st, err := f.svc.Statement(ctx, "card-1", calendar.Period{Year: 2025, Month: time.February})
	require.NoError(t, err)
	require.Len(t, st.Items, 1)
	assert.Equal(t, txns[1].ID, st.Items[0].TransactionID)
	assert.Equal(t, "33.33", st.Total.StringFixed(2))
	assert.Equal(t, calendar.Date(2025, 2, 5), st.ClosingDate)
	assert.Equal(t, calendar.Date(2025, 2, 12), st.DueDate)
}

func TestRecord_UpdatesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, installment.Intent{
		TotalAmount:      dec("250.00"),
		InstallmentCount: 1,
		StartDate:        calendar.Date(2025, 1, 5),
		Type:             model.TypeIncome,
		Origin:           model.OriginPersonal,
		CategoryID:       "r-salario",
		AccountID:        "acc-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "1250.00", balance(t, f))

	intent := cardPurchase("90.00", 3, calendar.Date(2025, 1, 5))
	intent.CardID, intent.AccountID = "", "acc-1"
	_, err = f.svc.Record(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, "1160.00", balance(t, f))

	_, err = f.svc.Record(ctx, intent, WithoutBalanceUpdate())
	require.NoError(t, err)
	assert.Equal(t, "1160.00", balance(t, f))
}

func TestRecord_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*installment.Intent)
		target error
	}{
		{"three decimals", func(in *installment.Intent) { in.TotalAmount = dec("10.005") }, installment.ErrInvalidIntent},
		{"zero amount", func(in *installment.Intent) { in.TotalAmount = decimal.Zero }, installment.ErrInvalidIntent},
		{"zero installments", func(in *installment.Intent) { in.InstallmentCount = 0 }, installment.ErrInvalidIntent},
		{"bad type", func(in *installment.Intent) { in.Type = "transfer" }, installment.ErrInvalidIntent},
		{"bad origin", func(in *installment.Intent) { in.Origin = "" }, installment.ErrInvalidIntent},
		{"category type mismatch", func(in *installment.Intent) { in.CategoryID = "r-salario" }, installment.ErrInvalidIntent},
		{"unknown category", func(in *installment.Intent) { in.CategoryID = "d-nope" }, ErrUnknownReference},
		{"unknown card", func(in *installment.Intent) { in.CardID = "card-9" }, ErrUnknownReference},
		{"unknown account", func(in *installment.Intent) { in.AccountID = "acc-9" }, ErrUnknownReference},
		{"fewer cents than installments", func(in *installment.Intent) { in.TotalAmount = dec("0.02") }, ErrInvalidGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			intent := cardPurchase("100.00", 3, calendar.Date(2025, 1, 15))
			tt.mutate(&intent)

			_, err := f.svc.Record(ctx, intent)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)

			all, err := f.store.ListTransactions(ctx, store.Filter{})
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestRecord_FailedBalanceRollsBackGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent := cardPurchase("60.00", 2, calendar.Date(2025, 1, 5))
	intent.AccountID = "acc-1"

	// An enclosing transaction that fails discards the group and the
	// balance update together.
	err := f.store.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := f.svc.Record(ctx, intent); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	all, err := f.store.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, "1000.00", balance(t, f))
}

func TestDeleteInstallment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent := cardPurchase("90.00", 3, calendar.Date(2025, 1, 5))
	intent.CardID, intent.AccountID = "", "acc-1"
	txns, err := f.svc.Record(ctx, intent)
	require.NoError(t, err)
	require.Equal(t, "910.00", balance(t, f))

	removed, err := f.svc.DeleteInstallment(ctx, txns[1].ID)
	require.NoError(t, err)
	assert.Equal(t, txns[1].ID, removed.ID)
	assert.Equal(t, "940.00", balance(t, f))

	rest, err := f.store.ListTransactions(ctx, store.Filter{GroupID: txns[0].GroupID})
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	_, err = f.svc.DeleteInstallment(ctx, txns[1].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent := cardPurchase("90.00", 3, calendar.Date(2025, 1, 5))
	intent.AccountID = "acc-1"
	txns, err := f.svc.Record(ctx, intent)
	require.NoError(t, err)
	require.Equal(t, "910.00", balance(t, f))

	n, err := f.svc.DeleteGroup(ctx, txns[0].GroupID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "1000.00", balance(t, f))

	_, err = f.svc.DeleteGroup(ctx, txns[0].GroupID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteGroup_AccountGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent := cardPurchase("90.00", 3, calendar.Date(2025, 1, 5))
	intent.AccountID = "acc-1"
	txns, err := f.svc.Record(ctx, intent)
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteAccount(ctx, "acc-1"))

	n, err := f.svc.DeleteGroup(ctx, txns[0].GroupID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStatement_UnknownCardIsEmpty(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.Statement(context.Background(), "card-9", calendar.Period{Year: 2025, Month: time.January})
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.True(t, st.Total.IsZero())
	assert.True(t, st.DueDate.IsZero())
}

func TestUpcomingAndAvailableCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, cardPurchase("300.00", 3, calendar.Date(2025, 1, 20)))
	require.NoError(t, err)

	sts, err := f.svc.Upcoming(ctx, "card-1", calendar.Period{Year: 2025, Month: time.January}, 4)
	require.NoError(t, err)
	require.Len(t, sts, 4)
	for i, want := range []string{"100.00", "100.00", "100.00", "0.00"} {
		assert.Equal(t, want, sts[i].Total.StringFixed(2), "statement %d", i)
	}

	avail, err := f.svc.AvailableCredit(ctx, "card-1", calendar.Date(2025, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, "300.00", avail.StringFixed(2))

	_, err = f.svc.AvailableCredit(ctx, "card-9", calendar.Date(2025, 2, 1))
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Record(ctx, cardPurchase("300.00", 3, calendar.Date(2025, 1, 20)))
	require.NoError(t, err)

	sum, err := f.svc.Dashboard(ctx, calendar.Period{Year: 2025, Month: time.February}, "")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", sum.Balance.StringFixed(2))
	assert.Equal(t, "100.00", sum.Expense.StringFixed(2))
	assert.Equal(t, "100.00", sum.OpenStatements.StringFixed(2))
	assert.Len(t, sum.Recent, 3)
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txns, err := f.svc.Record(ctx, cardPurchase("90.00", 3, calendar.Date(2025, 1, 5)))
	require.NoError(t, err)

	verrs, err := f.svc.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, verrs)

	_, err = f.svc.DeleteInstallment(ctx, txns[2].ID)
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteCategory(ctx, "d-lazer"))

	verrs, err = f.svc.Check(ctx)
	require.NoError(t, err)
	invariants := map[int]int{}
	for _, ve := range verrs {
		invariants[ve.Invariant]++
	}
	assert.Equal(t, map[int]int{1: 1, 6: 2}, invariants)
}

func TestSetStatementStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	feb := calendar.Period{Year: 2025, Month: time.February}

	require.NoError(t, f.svc.SetStatementStatus(ctx, "card-1", feb, model.PaymentPaid))
	st, err := f.svc.StatementStatus(ctx, "card-1", feb)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, st.Status)
	assert.True(t, time.Date(2025, 2, 13, 9, 0, 0, 0, time.UTC).Equal(st.PaidAt))

	assert.ErrorIs(t, f.svc.SetStatementStatus(ctx, "card-9", feb, model.PaymentPaid), ErrUnknownReference)
	assert.Error(t, f.svc.SetStatementStatus(ctx, "card-1", feb, "overdue"))
}
