package importer

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
)

// FormatMessage is free text, one purchase or income per line, as typed in a
// chat: "R$ 120,00 Restaurante Cartão Nubank Pessoal 3x".
const FormatMessage = "message"

// fallbackCategory receives expenses no keyword matched.
const fallbackCategory = "d-outros"

type keyword struct {
	word       string
	categoryID string
}

// keywords is checked in order; the first word found in a message wins.
var keywords = []keyword{
	{"restaurante", "d-alimentacao"},
	{"supermercado", "d-alimentacao"},
	{"mercado", "d-alimentacao"},
	{"comida", "d-alimentacao"},
	{"alimentacao", "d-alimentacao"},
	{"uber", "d-transporte"},
	{"gasolina", "d-transporte"},
	{"combustivel", "d-transporte"},
	{"transporte", "d-transporte"},
	{"aluguel", "d-moradia"},
	{"moradia", "d-moradia"},
	{"condominio", "d-moradia"},
	{"farmacia", "d-saude"},
	{"medico", "d-saude"},
	{"hospital", "d-saude"},
	{"saude", "d-saude"},
	{"escola", "d-educacao"},
	{"curso", "d-educacao"},
	{"faculdade", "d-educacao"},
	{"educacao", "d-educacao"},
	{"cinema", "d-lazer"},
	{"teatro", "d-lazer"},
	{"viagem", "d-lazer"},
	{"lazer", "d-lazer"},
	{"compras", "d-compras"},
	{"loja", "d-compras"},
	{"shopping", "d-compras"},
	{"netflix", "d-assinaturas"},
	{"spotify", "d-assinaturas"},
	{"assinatura", "d-assinaturas"},
	{"imposto", "d-impostos"},
	{"salario", "r-salario"},
	{"freelance", "r-freelance"},
	{"investimento", "r-investimentos"},
	{"venda", "r-vendas"},
	{"servico", "r-servicos"},
}

// banks are card names recognised without a preceding "cartão".
var banks = []string{"nubank", "itau", "bradesco", "santander", "inter", "c6", "bb", "caixa"}

var (
	countRe  = regexp.MustCompile(`^(\d+)x$`)
	amountRe = regexp.MustCompile(`^\d[\d.,]*$`)
	brDateRe = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
)

// MessageParser reads free-text messages. Lines without a date fall on
// Today, or on the current day when Today is zero.
type MessageParser struct {
	Today time.Time
}

// Format returns the parser name.
func (p *MessageParser) Format() string { return FormatMessage }

// Parse reads one entry per non-blank line. Lines starting with # are
// skipped.
func (p *MessageParser) Parse(r io.Reader) (*Batch, error) {
	b := &Batch{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		e, err := p.ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		b.Entries = append(b.Entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return b, nil
}

// ParseLine turns one message into an entry. The amount is required; the
// installment count defaults to 1, the origin to personal and the category
// to d-outros. A card is taken from the word after "cartão" or from a known
// bank name and is left in CardRef for Apply to resolve.
func (p *MessageParser) ParseLine(text string) (Entry, error) {
	tokens := strings.Fields(fold(text))

	var (
		amount   decimal.Decimal
		hasAmt   bool
		count    = 1
		date     time.Time
		origin   = model.OriginPersonal
		category string
		cardRef  string
	)
	for i := 0; i < len(tokens); i++ {
		tok := strings.Trim(tokens[i], ";:!?()")
		next := ""
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		switch {
		case tok == "r$" && next != "" && !hasAmt:
			i++
			a, err := parseBRL(next)
			if err != nil {
				return Entry{}, err
			}
			amount, hasAmt = a, true
		case strings.HasPrefix(tok, "r$") && !hasAmt:
			a, err := parseBRL(strings.TrimPrefix(tok, "r$"))
			if err != nil {
				return Entry{}, err
			}
			amount, hasAmt = a, true
		case countRe.MatchString(tok):
			n, err := strconv.Atoi(countRe.FindStringSubmatch(tok)[1])
			if err != nil {
				return Entry{}, fmt.Errorf("installments %q: %w", tok, err)
			}
			count = n
		case amountRe.MatchString(tok) && next == "x":
			n, err := strconv.Atoi(tok)
			if err != nil {
				return Entry{}, fmt.Errorf("installments %q: %w", tok, err)
			}
			count = n
			i++
		case brDateRe.MatchString(tok):
			d, err := time.Parse("02/01/2006", tok)
			if err != nil {
				return Entry{}, fmt.Errorf("parsing date %q: %w", tok, err)
			}
			date = d
		case len(tok) == len(calendar.DateLayout) && tok[4] == '-':
			d, err := calendar.ParseDate(tok)
			if err != nil {
				return Entry{}, err
			}
			date = d
		case amountRe.MatchString(tok) && !hasAmt:
			a, err := parseBRL(tok)
			if err != nil {
				return Entry{}, err
			}
			amount, hasAmt = a, true
		case tok == "cartao" && next != "":
			cardRef = next
			i++
		case tok == "empresa" || tok == "empresarial" || tok == "business" || tok == "pj":
			origin = model.OriginBusiness
		case cardRef == "" && isBank(tok):
			cardRef = tok
		case category == "":
			category = matchKeyword(tok)
		}
	}

	if !hasAmt {
		return Entry{}, fmt.Errorf("no amount in %q", text)
	}
	if category == "" {
		category = fallbackCategory
	}
	typ := model.TypeExpense
	if strings.HasPrefix(category, "r-") {
		typ = model.TypeIncome
	}
	if date.IsZero() {
		date = p.Today
		if date.IsZero() {
			date = time.Now()
		}
	}

	return Entry{
		Intent: installment.Intent{
			TotalAmount:      amount,
			InstallmentCount: count,
			StartDate:        calendar.Truncate(date),
			Type:             typ,
			Origin:           origin,
			Notes:            strings.TrimSpace(text),
		},
		CategoryRef: category,
		CardRef:     cardRef,
	}, nil
}

func matchKeyword(tok string) string {
	for _, k := range keywords {
		if tok == k.word || tok == k.word+"s" {
			return k.categoryID
		}
	}
	return ""
}

func isBank(tok string) bool {
	for _, b := range banks {
		if tok == b {
			return true
		}
	}
	return false
}

// parseBRL reads "1.500,00", "1500,00", "1500.00" or "1500". A dot followed
// by exactly three digits with no comma is a thousands separator.
func parseBRL(s string) (decimal.Decimal, error) {
	s = strings.TrimRight(s, ".,")
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ".") > 1 || thousandsOnly(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	return money.Parse(s)
}

func thousandsOnly(s string) bool {
	_, frac, ok := strings.Cut(s, ".")
	return ok && len(frac) == 3
}

// fold lowercases s and strips accents so "Cartão" matches "cartao".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
