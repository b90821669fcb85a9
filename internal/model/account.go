package model

import "github.com/shopspring/decimal"

// Account is a bank account. Balance moves with every transaction that
// references it through AccountID.
type Account struct {
	ID      string
	Name    string
	Origin  Origin
	Balance decimal.Decimal
}

// Card is a credit card. ClosingDay and DueDay are days of month (1-31).
type Card struct {
	ID          string
	Name        string
	Bank        string
	Origin      Origin
	CreditLimit decimal.Decimal
	ClosingDay  int
	DueDay      int
}
