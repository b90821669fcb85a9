package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
)

// FormatLegacy is the browser localStorage backup of the web app.
const FormatLegacy = "fincontrol-json"

// LegacyParser reads a JSON object holding the web app's localStorage keys.
// Each key holds either the array itself or the array serialised as a
// string, the way localStorage stores it.
type LegacyParser struct{}

// Format returns the parser name.
func (p *LegacyParser) Format() string { return FormatLegacy }

type legacyBackup struct {
	Contas     json.RawMessage `json:"fincontrol_contas"`
	Cartoes    json.RawMessage `json:"fincontrol_cartoes"`
	Transacoes json.RawMessage `json:"fincontrol_transacoes"`
	Faturas    json.RawMessage `json:"fincontrol_faturas"`
	Categorias json.RawMessage `json:"fincontrol_categorias"`
}

type legacyConta struct {
	ID    string          `json:"id"`
	Nome  string          `json:"nome"`
	Tipo  string          `json:"tipo"`
	Saldo decimal.Decimal `json:"saldo"`
}

type legacyCartao struct {
	ID         string          `json:"id"`
	Nome       string          `json:"nome"`
	Banco      string          `json:"banco"`
	Limite     decimal.Decimal `json:"limite"`
	Fechamento int             `json:"fechamento"`
	Vencimento int             `json:"vencimento"`
	Tipo       string          `json:"tipo"`
}

type legacyTransacao struct {
	ID          string          `json:"id"`
	Tipo        string          `json:"tipo"`
	Origem      string          `json:"origem"`
	Categoria   string          `json:"categoria"`
	Valor       decimal.Decimal `json:"valor"`
	Data        string          `json:"data"`
	ContaID     *string         `json:"contaId"`
	CartaoID    *string         `json:"cartaoId"`
	Parcelas    int             `json:"parcelas"`
	Observacoes string          `json:"observacoes"`
}

type legacyFatura struct {
	CartaoID        string `json:"cartaoId"`
	Mes             int    `json:"mes"` // 0-based
	Ano             int    `json:"ano"`
	StatusPagamento string `json:"statusPagamento"`
}

type legacyCategoria struct {
	ID   string `json:"id"`
	Nome string `json:"nome"`
	Tipo string `json:"tipo"`
}

// Parse reads the backup. Installment purchases, stored by the web app as a
// single record carrying the purchase total, become one intent with the
// original installment count so they are re-split on import.
func (p *LegacyParser) Parse(r io.Reader) (*Batch, error) {
	var backup legacyBackup
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("reading legacy backup: %w", err)
	}

	var (
		contas     []legacyConta
		cartoes    []legacyCartao
		transacoes []legacyTransacao
		faturas    []legacyFatura
		categorias []legacyCategoria
	)
	for _, key := range []struct {
		name string
		raw  json.RawMessage
		dst  any
	}{
		{"fincontrol_contas", backup.Contas, &contas},
		{"fincontrol_cartoes", backup.Cartoes, &cartoes},
		{"fincontrol_transacoes", backup.Transacoes, &transacoes},
		{"fincontrol_faturas", backup.Faturas, &faturas},
		{"fincontrol_categorias", backup.Categorias, &categorias},
	} {
		if err := decodeKey(key.raw, key.dst); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", key.name, err)
		}
	}

	b := &Batch{BalancesIncluded: true}
	for _, c := range contas {
		b.Accounts = append(b.Accounts, model.Account{
			ID:      c.ID,
			Name:    c.Nome,
			Origin:  legacyOrigin(c.Tipo),
			Balance: money.Round(c.Saldo),
		})
	}
	for _, c := range cartoes {
		b.Cards = append(b.Cards, model.Card{
			ID:          c.ID,
			Name:        c.Nome,
			Bank:        c.Banco,
			Origin:      legacyOrigin(c.Tipo),
			CreditLimit: money.Round(c.Limite),
			ClosingDay:  c.Fechamento,
			DueDay:      c.Vencimento,
		})
	}
	for _, c := range categorias {
		typ, err := legacyType(c.Tipo)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.ID, err)
		}
		b.Categories = append(b.Categories, model.Category{ID: c.ID, Name: c.Nome, Type: typ})
	}
	for _, f := range faturas {
		st := model.StatementStatus{
			CardID: f.CartaoID,
			Year:   f.Ano,
			Month:  time.Month(f.Mes + 1),
			Status: model.PaymentPending,
		}
		if f.StatusPagamento == "pago" {
			st.Status = model.PaymentPaid
		}
		b.Statements = append(b.Statements, st)
	}
	for i, t := range transacoes {
		entry, err := legacyEntry(t)
		if err != nil {
			return nil, fmt.Errorf("transaction %d (%s): %w", i+1, t.ID, err)
		}
		b.Entries = append(b.Entries, entry)
	}
	return b, nil
}

func legacyEntry(t legacyTransacao) (Entry, error) {
	typ, err := legacyType(t.Tipo)
	if err != nil {
		return Entry{}, err
	}
	date, err := legacyDate(t.Data)
	if err != nil {
		return Entry{}, err
	}
	count := t.Parcelas
	if count < 1 {
		count = 1
	}
	return Entry{
		Intent: installment.Intent{
			TotalAmount:      money.Round(t.Valor),
			InstallmentCount: count,
			StartDate:        date,
			Type:             typ,
			Origin:           legacyOrigin(t.Origem),
			AccountID:        deref(t.ContaID),
			CardID:           deref(t.CartaoID),
			Notes:            t.Observacoes,
			SourceID:         t.ID,
		},
		CategoryRef: t.Categoria,
	}, nil
}

// decodeKey unmarshals raw into dst, unwrapping a JSON string first.
func decodeKey(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(s)
	}
	return json.Unmarshal(raw, dst)
}

func legacyType(s string) (model.TransactionType, error) {
	switch s {
	case "receita":
		return model.TypeIncome, nil
	case "despesa":
		return model.TypeExpense, nil
	}
	return "", fmt.Errorf("unknown tipo %q", s)
}

// legacyOrigin maps the web app's profile; cards created before the profile
// field existed have none and count as personal.
func legacyOrigin(s string) model.Origin {
	if s == "empresa" {
		return model.OriginBusiness
	}
	return model.OriginPersonal
}

// legacyDate accepts YYYY-MM-DD and full ISO timestamps.
func legacyDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(calendar.DateLayout) {
		s = s[:len(calendar.DateLayout)]
	}
	return calendar.ParseDate(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
