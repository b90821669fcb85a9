package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
)

// FormatCSV is the plain CSV layout, one intent per row.
const FormatCSV = "csv"

// CSVHeader is the expected header row.
const CSVHeader = "date,type,origin,category,amount,installments,account_id,card_id,notes"

const (
	csvNumFields   = 9
	csvColDate     = 0
	csvColType     = 1
	csvColOrigin   = 2
	csvColCategory = 3
	csvColAmount   = 4
	csvColCount    = 5
	csvColAccount  = 6
	csvColCard     = 7
	csvColNotes    = 8
)

// CSVParser parses the plain CSV layout. Amounts are purchase totals and
// the installments column (blank = 1) splits them.
type CSVParser struct{}

// Format returns the parser name.
func (p *CSVParser) Format() string { return FormatCSV }

// Parse reads the CSV and returns one entry per row.
func (p *CSVParser) Parse(r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = csvNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import CSV: %w", err)
	}
	if len(records) == 0 {
		return &Batch{}, nil
	}
	if got := strings.Join(records[0], ","); got != CSVHeader {
		return nil, fmt.Errorf("unexpected header %q, want %q", got, CSVHeader)
	}

	b := &Batch{}
	for i, rec := range records[1:] {
		entry, err := parseCSVRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		b.Entries = append(b.Entries, entry)
	}
	return b, nil
}

func parseCSVRow(rec []string) (Entry, error) {
	date, err := calendar.ParseDate(rec[csvColDate])
	if err != nil {
		return Entry{}, err
	}

	typ := model.TransactionType(strings.ToLower(strings.TrimSpace(rec[csvColType])))
	if !typ.Valid() {
		return Entry{}, fmt.Errorf("unknown type %q", rec[csvColType])
	}
	origin := model.Origin(strings.ToLower(strings.TrimSpace(rec[csvColOrigin])))
	if !origin.Valid() {
		return Entry{}, fmt.Errorf("unknown origin %q", rec[csvColOrigin])
	}

	amount, err := money.Parse(rec[csvColAmount])
	if err != nil {
		return Entry{}, err
	}

	count := 1
	if s := strings.TrimSpace(rec[csvColCount]); s != "" {
		count, err = strconv.Atoi(s)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing installments %q: %w", s, err)
		}
	}

	return Entry{
		Intent: installment.Intent{
			TotalAmount:      amount,
			InstallmentCount: count,
			StartDate:        date,
			Type:             typ,
			Origin:           origin,
			AccountID:        strings.TrimSpace(rec[csvColAccount]),
			CardID:           strings.TrimSpace(rec[csvColCard]),
			Notes:            rec[csvColNotes],
		},
		CategoryRef: strings.TrimSpace(rec[csvColCategory]),
	}, nil
}
