package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a record.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Origin tags a record, account or card as personal or business.
type Origin string

const (
	OriginPersonal Origin = "personal"
	OriginBusiness Origin = "business"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginPersonal || o == OriginBusiness
}

// Transaction is one stored record. When it belongs to an installment group,
// Amount is this installment's share, not the purchase total.
type Transaction struct {
	ID               string
	Type             TransactionType
	Origin           Origin
	CategoryID       string
	Amount           decimal.Decimal
	Date             time.Time // midnight UTC
	AccountID        string    // empty = none
	CardID           string    // empty = none
	InstallmentCount int
	InstallmentIndex int // 1-based
	GroupID          string
	Notes            string
	ReceiptRef       string
}

// IsInstallment reports whether the record is part of a multi-installment group.
func (t Transaction) IsInstallment() bool {
	return t.InstallmentCount > 1
}

// SignedAmount returns Amount for income and -Amount for expenses.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}
