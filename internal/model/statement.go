package model

import "time"

// PaymentStatus is the payment state of a card statement.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// StatementStatus records whether a card's statement for a month was paid.
type StatementStatus struct {
	CardID string
	Year   int
	Month  time.Month
	Status PaymentStatus
	PaidAt time.Time // zero unless paid
}
