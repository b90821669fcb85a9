package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/categories"
	"github.com/fincontrol-dev/fincontrol/internal/id"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/ledger"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/store"
	"github.com/fincontrol-dev/fincontrol/internal/store/csvstore"
)

func parseFile(t *testing.T, p Parser, name string) *Batch {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	defer f.Close()

	b, err := p.Parse(f)
	require.NoError(t, err)
	return b
}

func TestLegacyParser_Parse(t *testing.T) {
	b := parseFile(t, &LegacyParser{}, "legacy_backup.json")

	require.Len(t, b.Accounts, 2)
	assert.Equal(t, "12450.50", b.Accounts[0].Balance.StringFixed(2))
	assert.Equal(t, model.OriginBusiness, b.Accounts[1].Origin)

	require.Len(t, b.Cards, 2, "string-encoded key")
	assert.Equal(t, model.OriginPersonal, b.Cards[0].Origin, "missing tipo")
	assert.Equal(t, 15, b.Cards[0].ClosingDay)
	assert.Equal(t, 25, b.Cards[0].DueDay)

	require.Len(t, b.Statements, 1)
	assert.Equal(t, time.January, b.Statements[0].Month)
	assert.Equal(t, model.PaymentPaid, b.Statements[0].Status)

	require.Len(t, b.Entries, 4)
	notebook := b.Entries[2]
	assert.Equal(t, 3, notebook.Intent.InstallmentCount)
	assert.Equal(t, "2400.00", notebook.Intent.TotalAmount.StringFixed(2))
	assert.Equal(t, calendar.Date(2025, 1, 8), notebook.Intent.StartDate)
	assert.Equal(t, "Compras", notebook.CategoryRef)
	assert.Equal(t, "t3", notebook.Intent.SourceID)
	assert.Equal(t, "1736000000003-i7j8k9l", notebook.Intent.CardID)
	assert.Empty(t, notebook.Intent.AccountID)
	assert.True(t, b.BalancesIncluded)
}

func TestLegacyParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", "nope", "reading legacy backup"},
		{"bad key", `{"fincontrol_contas": "[{"}`, "decoding fincontrol_contas"},
		{"bad tipo", `{"fincontrol_transacoes": [{"id":"x","tipo":"transfer","data":"2025-01-01","valor":1}]}`, `unknown tipo "transfer"`},
		{"bad date", `{"fincontrol_transacoes": [{"id":"x","tipo":"receita","data":"05/01/2025","valor":1}]}`, "parsing date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&LegacyParser{}).Parse(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCSVParser_Parse(t *testing.T) {
	b := parseFile(t, &CSVParser{}, "import.csv")

	require.Len(t, b.Entries, 3)
	first := b.Entries[0]
	assert.Equal(t, "100.00", first.Intent.TotalAmount.StringFixed(2))
	assert.Equal(t, 3, first.Intent.InstallmentCount)
	assert.Equal(t, "card-1", first.Intent.CardID)
	assert.Equal(t, "d-lazer", first.CategoryRef)

	second := b.Entries[1]
	assert.Equal(t, 1, second.Intent.InstallmentCount)
	assert.Equal(t, model.TypeIncome, second.Intent.Type)
	assert.Equal(t, model.OriginBusiness, second.Intent.Origin)
	assert.Equal(t, "Projeto ABC, parcela única", second.Intent.Notes)
	assert.False(t, b.BalancesIncluded)
}

func TestCSVParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"date", "15/01/2025,expense,personal,d-lazer,1,1,,,", "parsing date"},
		{"type", "2025-01-15,transfer,personal,d-lazer,1,1,,,", "unknown type"},
		{"origin", "2025-01-15,expense,home,d-lazer,1,1,,,", "unknown origin"},
		{"amount", "2025-01-15,expense,personal,d-lazer,abc,1,,,", "parsing amount"},
		{"installments", "2025-01-15,expense,personal,d-lazer,1,x,,,", "parsing installments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&CSVParser{}).Parse(strings.NewReader(CSVHeader + "\n" + tt.row + "\n"))
			assert.ErrorContains(t, err, "row 2")
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := (&CSVParser{}).Parse(strings.NewReader("a,b,c,d,e,f,g,h,i\n"))
	assert.ErrorContains(t, err, "unexpected header")
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry(time.Now())
	assert.NotNil(t, r.Get("FINCONTROL-JSON"))
	assert.NotNil(t, r.Get("csv"))
	assert.NotNil(t, r.Get("message"))
	assert.Nil(t, r.Get("ofx"))

	assert.Equal(t, FormatLegacy, r.Detect("backup.JSON").Format())
	assert.Equal(t, FormatCSV, r.Detect("march.csv").Format())
	assert.Equal(t, FormatMessage, r.Detect("chat.txt").Format())
	assert.Nil(t, r.Detect("statement.ofx"))

	assert.Panics(t, func() { r.Register(&CSVParser{}) })
}

func TestScanAndMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	files, err := Scan(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	importPath := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(importPath, "sub"), 0o755))
	for _, name := range []string{"a.csv", "b.json", "c.txt", "d.ofx"} {
		require.NoError(t, os.WriteFile(filepath.Join(importPath, name), []byte("x"), 0o644))
	}

	files, err = Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.csv", files[0].Name)
	assert.Equal(t, "b.json", files[1].Name)
	assert.Equal(t, "c.txt", files[2].Name)

	require.NoError(t, MarkProcessed(dir, "a.csv"))
	_, err = os.Stat(filepath.Join(importPath, "processed", "a.csv"))
	assert.NoError(t, err)

	files, err = Scan(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func newLedger(t *testing.T) (store.Store, *ledger.Service) {
	t.Helper()
	st, err := csvstore.Open(t.TempDir())
	require.NoError(t, err)
	svc := ledger.NewService(st, installment.NewSplitter(id.NewSequence("id"), calendar.Overflow), zerolog.Nop())
	return st, svc
}

func TestApply_Legacy(t *testing.T) {
	ctx := context.Background()
	st, led := newLedger(t)
	b := parseFile(t, &LegacyParser{}, "legacy_backup.json")

	res, err := Apply(ctx, st, led, b)
	require.NoError(t, err)
	assert.Equal(t, Result{Accounts: 2, Cards: 2, Categories: 4, Statements: 1, Entries: 4, Records: 6}, res)

	acc, err := st.GetAccount(ctx, "1736000000001-a1b2c3d")
	require.NoError(t, err)
	assert.Equal(t, "12450.50", acc.Balance.StringFixed(2), "legacy balances are kept")

	notebook, err := st.ListTransactions(ctx, store.Filter{CardID: "1736000000003-i7j8k9l", Type: model.TypeExpense})
	require.NoError(t, err)
	require.Len(t, notebook, 4)

	feb, err := led.Statement(ctx, "1736000000003-i7j8k9l", calendar.Period{Year: 2025, Month: time.February})
	require.NoError(t, err)
	assert.Equal(t, "800.00", feb.Total.StringFixed(2))

	paid, err := st.GetStatementStatus(ctx, "1736000000003-i7j8k9l", 2025, time.January)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, paid.Status)
}

func TestApply_LegacyTwiceSkipsKnownIDs(t *testing.T) {
	ctx := context.Background()
	st, led := newLedger(t)

	_, err := Apply(ctx, st, led, parseFile(t, &LegacyParser{}, "legacy_backup.json"))
	require.NoError(t, err)

	res, err := Apply(ctx, st, led, parseFile(t, &LegacyParser{}, "legacy_backup.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Entries)
	assert.Equal(t, 0, res.Records)
	assert.Equal(t, 4, res.Skipped)

	txns, err := st.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, txns, 6)

	single, err := st.GetTransaction(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "450.00", single.Amount.StringFixed(2))

	group, err := st.ListTransactions(ctx, store.Filter{GroupID: "t3"})
	require.NoError(t, err)
	require.Len(t, group, 3)
	assert.Equal(t, "t3-1", group[0].ID)
	assert.Equal(t, "800.00", group[0].Amount.StringFixed(2))
}

func TestApply_CSVMovesBalances(t *testing.T) {
	ctx := context.Background()
	st, led := newLedger(t)
	for _, c := range categories.Default() {
		require.NoError(t, st.SaveCategory(ctx, c))
	}
	require.NoError(t, st.SaveAccount(ctx, model.Account{ID: "acc-1", Name: "Main", Origin: model.OriginBusiness, Balance: decimal.Zero}))
	require.NoError(t, st.SaveCard(ctx, model.Card{ID: "card-1", Name: "Visa", Origin: model.OriginPersonal, ClosingDay: 5, DueDay: 12}))

	res, err := Apply(ctx, st, led, parseFile(t, &CSVParser{}, "import.csv"))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Records)

	acc, err := st.GetAccount(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "1454.10", acc.Balance.StringFixed(2))
}

func TestApply_UnknownCategoryRollsBack(t *testing.T) {
	ctx := context.Background()
	st, led := newLedger(t)

	b := parseFile(t, &LegacyParser{}, "legacy_backup.json")
	b.Entries[3].CategoryRef = "Marketing"

	_, err := Apply(ctx, st, led, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, categories.ErrUnknownCategory))
	assert.ErrorContains(t, err, "entry 4")

	accounts, err := st.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
	txns, err := st.ListTransactions(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}
