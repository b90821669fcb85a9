package sqlstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

type transactionEntity struct {
	ID               string          `gorm:"primaryKey;column:id"`
	Type             string          `gorm:"column:type;not null"`
	Origin           string          `gorm:"column:origin;not null"`
	CategoryID       string          `gorm:"column:category_id;not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Date             string          `gorm:"column:date;not null"`
	AccountID        string          `gorm:"column:account_id;not null"`
	CardID           string          `gorm:"column:card_id;not null"`
	InstallmentCount int             `gorm:"column:installment_count;not null"`
	InstallmentIndex int             `gorm:"column:installment_index;not null"`
	GroupID          string          `gorm:"column:group_id;not null"`
	Notes            string          `gorm:"column:notes;not null"`
	ReceiptRef       string          `gorm:"column:receipt_ref;not null"`
}

func (transactionEntity) TableName() string { return "transactions" }

func toTransactionEntity(t model.Transaction) transactionEntity {
	return transactionEntity{
		ID:               t.ID,
		Type:             string(t.Type),
		Origin:           string(t.Origin),
		CategoryID:       t.CategoryID,
		Amount:           t.Amount,
		Date:             t.Date.Format(calendar.DateLayout),
		AccountID:        t.AccountID,
		CardID:           t.CardID,
		InstallmentCount: t.InstallmentCount,
		InstallmentIndex: t.InstallmentIndex,
		GroupID:          t.GroupID,
		Notes:            t.Notes,
		ReceiptRef:       t.ReceiptRef,
	}
}

func toTransactionModel(e transactionEntity) (model.Transaction, error) {
	date, err := calendar.ParseDate(e.Date)
	if err != nil {
		return model.Transaction{}, err
	}
	return model.Transaction{
		ID:               e.ID,
		Type:             model.TransactionType(e.Type),
		Origin:           model.Origin(e.Origin),
		CategoryID:       e.CategoryID,
		Amount:           e.Amount,
		Date:             date,
		AccountID:        e.AccountID,
		CardID:           e.CardID,
		InstallmentCount: e.InstallmentCount,
		InstallmentIndex: e.InstallmentIndex,
		GroupID:          e.GroupID,
		Notes:            e.Notes,
		ReceiptRef:       e.ReceiptRef,
	}, nil
}

func toTransactionModels(entities []transactionEntity) ([]model.Transaction, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	out := make([]model.Transaction, len(entities))
	for i, e := range entities {
		t, err := toTransactionModel(e)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", e.ID, err)
		}
		out[i] = t
	}
	return out, nil
}

type accountEntity struct {
	ID      string          `gorm:"primaryKey;column:id"`
	Name    string          `gorm:"column:name;not null"`
	Origin  string          `gorm:"column:origin;not null"`
	Balance decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null"`
}

func (accountEntity) TableName() string { return "accounts" }

func toAccountEntity(a model.Account) accountEntity {
	return accountEntity{ID: a.ID, Name: a.Name, Origin: string(a.Origin), Balance: a.Balance}
}

func toAccountModel(e accountEntity) model.Account {
	return model.Account{ID: e.ID, Name: e.Name, Origin: model.Origin(e.Origin), Balance: e.Balance}
}

type cardEntity struct {
	ID          string          `gorm:"primaryKey;column:id"`
	Name        string          `gorm:"column:name;not null"`
	Bank        string          `gorm:"column:bank;not null"`
	Origin      string          `gorm:"column:origin;not null"`
	CreditLimit decimal.Decimal `gorm:"column:credit_limit;type:numeric(14,2);not null"`
	ClosingDay  int             `gorm:"column:closing_day;not null"`
	DueDay      int             `gorm:"column:due_day;not null"`
}

func (cardEntity) TableName() string { return "cards" }

func toCardEntity(c model.Card) cardEntity {
	return cardEntity{
		ID:          c.ID,
		Name:        c.Name,
		Bank:        c.Bank,
		Origin:      string(c.Origin),
		CreditLimit: c.CreditLimit,
		ClosingDay:  c.ClosingDay,
		DueDay:      c.DueDay,
	}
}

func toCardModel(e cardEntity) model.Card {
	return model.Card{
		ID:          e.ID,
		Name:        e.Name,
		Bank:        e.Bank,
		Origin:      model.Origin(e.Origin),
		CreditLimit: e.CreditLimit,
		ClosingDay:  e.ClosingDay,
		DueDay:      e.DueDay,
	}
}

type categoryEntity struct {
	ID   string `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;not null"`
	Type string `gorm:"column:type;not null"`
}

func (categoryEntity) TableName() string { return "categories" }

type statementEntity struct {
	CardID string     `gorm:"primaryKey;column:card_id"`
	Year   int        `gorm:"primaryKey;column:year;autoIncrement:false"`
	Month  int        `gorm:"primaryKey;column:month;autoIncrement:false"`
	Status string     `gorm:"column:status;not null"`
	PaidAt *time.Time `gorm:"column:paid_at"`
}

func (statementEntity) TableName() string { return "statement_statuses" }

func toStatementEntity(s model.StatementStatus) statementEntity {
	e := statementEntity{CardID: s.CardID, Year: s.Year, Month: int(s.Month), Status: string(s.Status)}
	if !s.PaidAt.IsZero() {
		paidAt := s.PaidAt.UTC()
		e.PaidAt = &paidAt
	}
	return e
}

func toStatementModel(e statementEntity) model.StatementStatus {
	s := model.StatementStatus{
		CardID: e.CardID,
		Year:   e.Year,
		Month:  time.Month(e.Month),
		Status: model.PaymentStatus(e.Status),
	}
	if e.PaidAt != nil {
		s.PaidAt = e.PaidAt.UTC()
	}
	return s
}
