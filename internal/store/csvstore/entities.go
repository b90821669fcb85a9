package csvstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/model"
)

const (
	accountsHeader   = "id,name,origin,balance"
	cardsHeader      = "id,name,bank,origin,credit_limit,closing_day,due_day"
	categoriesHeader = "id,name,type"
	statementsHeader = "card_id,year,month,status,paid_at"
)

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(a model.Account) []string {
	return []string{a.ID, a.Name, string(a.Origin), a.Balance.StringFixed(2)}
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != 4 {
		return model.Account{}, fmt.Errorf("expected 4 fields, got %d", len(record))
	}
	balance, err := decimal.NewFromString(record[3])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing balance %q: %w", record[3], err)
	}
	return model.Account{
		ID:      record[0],
		Name:    record[1],
		Origin:  model.Origin(record[2]),
		Balance: balance,
	}, nil
}

// MarshalCard converts a Card to a CSV row.
func MarshalCard(c model.Card) []string {
	return []string{
		c.ID,
		c.Name,
		c.Bank,
		string(c.Origin),
		c.CreditLimit.StringFixed(2),
		strconv.Itoa(c.ClosingDay),
		strconv.Itoa(c.DueDay),
	}
}

// UnmarshalCard converts a CSV row to a Card.
func UnmarshalCard(record []string) (model.Card, error) {
	if len(record) != 7 {
		return model.Card{}, fmt.Errorf("expected 7 fields, got %d", len(record))
	}
	limit, err := decimal.NewFromString(record[4])
	if err != nil {
		return model.Card{}, fmt.Errorf("parsing credit_limit %q: %w", record[4], err)
	}
	closing, err := strconv.Atoi(record[5])
	if err != nil {
		return model.Card{}, fmt.Errorf("parsing closing_day %q: %w", record[5], err)
	}
	due, err := strconv.Atoi(record[6])
	if err != nil {
		return model.Card{}, fmt.Errorf("parsing due_day %q: %w", record[6], err)
	}
	return model.Card{
		ID:          record[0],
		Name:        record[1],
		Bank:        record[2],
		Origin:      model.Origin(record[3]),
		CreditLimit: limit,
		ClosingDay:  closing,
		DueDay:      due,
	}, nil
}

// MarshalCategory converts a Category to a CSV row.
func MarshalCategory(c model.Category) []string {
	return []string{c.ID, c.Name, string(c.Type)}
}

// UnmarshalCategory converts a CSV row to a Category.
func UnmarshalCategory(record []string) (model.Category, error) {
	if len(record) != 3 {
		return model.Category{}, fmt.Errorf("expected 3 fields, got %d", len(record))
	}
	return model.Category{ID: record[0], Name: record[1], Type: model.TransactionType(record[2])}, nil
}

// MarshalStatement converts a StatementStatus to a CSV row.
func MarshalStatement(s model.StatementStatus) []string {
	var paidAt string
	if !s.PaidAt.IsZero() {
		paidAt = s.PaidAt.UTC().Format(time.RFC3339)
	}
	return []string{s.CardID, strconv.Itoa(s.Year), strconv.Itoa(int(s.Month)), string(s.Status), paidAt}
}

// UnmarshalStatement converts a CSV row to a StatementStatus.
func UnmarshalStatement(record []string) (model.StatementStatus, error) {
	if len(record) != 5 {
		return model.StatementStatus{}, fmt.Errorf("expected 5 fields, got %d", len(record))
	}
	year, err := strconv.Atoi(record[1])
	if err != nil {
		return model.StatementStatus{}, fmt.Errorf("parsing year %q: %w", record[1], err)
	}
	month, err := strconv.Atoi(record[2])
	if err != nil {
		return model.StatementStatus{}, fmt.Errorf("parsing month %q: %w", record[2], err)
	}
	var paidAt time.Time
	if record[4] != "" {
		paidAt, err = time.Parse(time.RFC3339, record[4])
		if err != nil {
			return model.StatementStatus{}, fmt.Errorf("parsing paid_at %q: %w", record[4], err)
		}
	}
	return model.StatementStatus{
		CardID: record[0],
		Year:   year,
		Month:  time.Month(month),
		Status: model.PaymentStatus(record[3]),
		PaidAt: paidAt,
	}, nil
}

// readRows decodes every data row of r with unmarshal.
func readRows[T any](r io.Reader, header string, unmarshal func([]string) (T, error)) ([]T, error) {
	records, err := readAll(r, len(strings.Split(header, ",")))
	if err != nil {
		return nil, err
	}
	var out []T
	for i, rec := range records {
		v, err := unmarshal(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// writeRows encodes items after the header.
func writeRows[T any](w io.Writer, header string, items []T, marshal func(T) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, item := range items {
		if err := cw.Write(marshal(item)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
