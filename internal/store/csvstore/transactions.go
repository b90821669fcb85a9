package csvstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

// TransactionsHeader is the CSV header for transactions.csv.
const TransactionsHeader = "id,type,origin,category_id,amount,date,account_id,card_id,installment_count,installment_index,group_id,notes,receipt_ref"

const (
	txnNumFields  = 13
	txnColID      = 0
	txnColType    = 1
	txnColOrigin  = 2
	txnColCat     = 3
	txnColAmount  = 4
	txnColDate    = 5
	txnColAccount = 6
	txnColCard    = 7
	txnColCount   = 8
	txnColIndex   = 9
	txnColGroup   = 10
	txnColNotes   = 11
	txnColReceipt = 12
)

// ReadTransactions reads all records from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	records, err := readAll(r, txnNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}

	var txns []model.Transaction
	for i, rec := range records {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes records to w, header included.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TransactionsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, txnNumFields)
	row[txnColID] = t.ID
	row[txnColType] = string(t.Type)
	row[txnColOrigin] = string(t.Origin)
	row[txnColCat] = t.CategoryID
	row[txnColAmount] = t.Amount.StringFixed(2)
	row[txnColDate] = t.Date.Format(calendar.DateLayout)
	row[txnColAccount] = t.AccountID
	row[txnColCard] = t.CardID
	row[txnColCount] = strconv.Itoa(t.InstallmentCount)
	row[txnColIndex] = strconv.Itoa(t.InstallmentIndex)
	row[txnColGroup] = t.GroupID
	row[txnColNotes] = t.Notes
	row[txnColReceipt] = t.ReceiptRef
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != txnNumFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", txnNumFields, len(record))
	}

	amount, err := decimal.NewFromString(record[txnColAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[txnColAmount], err)
	}

	date, err := calendar.ParseDate(record[txnColDate])
	if err != nil {
		return model.Transaction{}, err
	}

	count, err := strconv.Atoi(record[txnColCount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing installment_count %q: %w", record[txnColCount], err)
	}

	index, err := strconv.Atoi(record[txnColIndex])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing installment_index %q: %w", record[txnColIndex], err)
	}

	return model.Transaction{
		ID:               record[txnColID],
		Type:             model.TransactionType(record[txnColType]),
		Origin:           model.Origin(record[txnColOrigin]),
		CategoryID:       record[txnColCat],
		Amount:           amount,
		Date:             date,
		AccountID:        record[txnColAccount],
		CardID:           record[txnColCard],
		InstallmentCount: count,
		InstallmentIndex: index,
		GroupID:          record[txnColGroup],
		Notes:            record[txnColNotes],
		ReceiptRef:       record[txnColReceipt],
	}, nil
}

// readAll returns the data rows of a CSV with the given width, header skipped.
func readAll(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}
