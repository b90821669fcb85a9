package model

// Category is a user-defined income or expense category. Transactions
// reference it by ID.
type Category struct {
	ID   string
	Name string
	Type TransactionType
}
