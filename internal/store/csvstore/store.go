// Package csvstore is a Store backed by one CSV file per entity in a data
// directory. The whole dataset is held in memory and files are rewritten on
// commit.
package csvstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/store"
)

// File names inside the data directory.
const (
	TransactionsFile = "transactions.csv"
	AccountsFile     = "accounts.csv"
	CardsFile        = "cards.csv"
	CategoriesFile   = "categories.csv"
	StatementsFile   = "statements.csv"
)

type txKey struct{}

type state struct {
	txns       []model.Transaction
	accounts   []model.Account
	cards      []model.Card
	categories []model.Category
	statements []model.StatementStatus
}

func (s state) clone() state {
	return state{
		txns:       slices.Clone(s.txns),
		accounts:   slices.Clone(s.accounts),
		cards:      slices.Clone(s.cards),
		categories: slices.Clone(s.categories),
		statements: slices.Clone(s.statements),
	}
}

// Store implements store.Store on CSV files.
type Store struct {
	dir string

	mu    sync.Mutex
	data  state
	dirty map[string]bool
}

var _ store.Store = (*Store)(nil)

// Open loads every entity file under dir, creating dir if needed. Missing
// files are treated as empty.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	s := &Store{dir: dir, dirty: map[string]bool{}}
	var err error
	if s.data.txns, err = loadFile(dir, TransactionsFile, ReadTransactions); err != nil {
		return nil, err
	}
	if s.data.accounts, err = loadFile(dir, AccountsFile, func(r io.Reader) ([]model.Account, error) {
		return readRows(r, accountsHeader, UnmarshalAccount)
	}); err != nil {
		return nil, err
	}
	if s.data.cards, err = loadFile(dir, CardsFile, func(r io.Reader) ([]model.Card, error) {
		return readRows(r, cardsHeader, UnmarshalCard)
	}); err != nil {
		return nil, err
	}
	if s.data.categories, err = loadFile(dir, CategoriesFile, func(r io.Reader) ([]model.Category, error) {
		return readRows(r, categoriesHeader, UnmarshalCategory)
	}); err != nil {
		return nil, err
	}
	if s.data.statements, err = loadFile(dir, StatementsFile, func(r io.Reader) ([]model.StatementStatus, error) {
		return readRows(r, statementsHeader, UnmarshalStatement)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Close is a no-op; every committed change is already on disk.
func (s *Store) Close() error { return nil }

// WithinTransaction runs fn holding the store lock. On error the in-memory
// state is restored and nothing is written. Nested calls join the outer one.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	clear(s.dirty)

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		clear(s.dirty)
		return err
	}
	if err := s.flush(); err != nil {
		s.data = snapshot
		clear(s.dirty)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// update runs a mutation as its own transaction unless ctx already holds one.
func (s *Store) update(ctx context.Context, fn func(d *state) error) error {
	return s.WithinTransaction(ctx, func(context.Context) error {
		return fn(&s.data)
	})
}

func (s *Store) view(ctx context.Context, fn func(d *state)) {
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn(&s.data)
}

func (s *Store) markDirty(names ...string) {
	for _, n := range names {
		s.dirty[n] = true
	}
}

func (s *Store) flush() error {
	writers := map[string]func(io.Writer) error{
		TransactionsFile: func(w io.Writer) error { return WriteTransactions(w, s.data.txns) },
		AccountsFile: func(w io.Writer) error {
			return writeRows(w, accountsHeader, s.data.accounts, MarshalAccount)
		},
		CardsFile: func(w io.Writer) error {
			return writeRows(w, cardsHeader, s.data.cards, MarshalCard)
		},
		CategoriesFile: func(w io.Writer) error {
			return writeRows(w, categoriesHeader, s.data.categories, MarshalCategory)
		},
		StatementsFile: func(w io.Writer) error {
			return writeRows(w, statementsHeader, s.data.statements, MarshalStatement)
		},
	}
	// Every dirty file is staged before any is renamed, so an encoding or
	// write failure leaves the whole directory untouched.
	var staged []stagedFile
	defer func() {
		for _, f := range staged {
			os.Remove(f.tmp)
		}
	}()
	for _, name := range []string{TransactionsFile, AccountsFile, CardsFile, CategoriesFile, StatementsFile} {
		if !s.dirty[name] {
			continue
		}
		var buf bytes.Buffer
		if err := writers[name](&buf); err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		f, err := stageFile(filepath.Join(s.dir, name), buf.Bytes())
		if err != nil {
			return err
		}
		staged = append(staged, f)
	}
	for _, f := range staged {
		if err := os.Rename(f.tmp, f.path); err != nil {
			return fmt.Errorf("replacing %s: %w", filepath.Base(f.path), err)
		}
	}
	clear(s.dirty)
	return nil
}

func loadFile[T any](dir, name string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	items, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return items, nil
}

type stagedFile struct {
	tmp, path string
}

// createTemp is swapped in tests to simulate a full disk.
var createTemp = os.CreateTemp

// stageFile writes data to a temp file next to path.
func stageFile(path string, data []byte) (stagedFile, error) {
	tmp, err := createTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return stagedFile{}, fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return stagedFile{}, fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return stagedFile{}, fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	return stagedFile{tmp: tmp.Name(), path: path}, nil
}

// Transactions

func (s *Store) InsertTransactions(ctx context.Context, txns []model.Transaction) error {
	return s.update(ctx, func(d *state) error {
		for _, t := range txns {
			if slices.ContainsFunc(d.txns, func(e model.Transaction) bool { return e.ID == t.ID }) {
				return fmt.Errorf("transaction %s already exists", t.ID)
			}
		}
		d.txns = append(d.txns, txns...)
		s.markDirty(TransactionsFile)
		return nil
	})
}

func (s *Store) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	var (
		out   model.Transaction
		found bool
	)
	s.view(ctx, func(d *state) {
		if i := slices.IndexFunc(d.txns, func(t model.Transaction) bool { return t.ID == id }); i >= 0 {
			out, found = d.txns[i], true
		}
	})
	if !found {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, f store.Filter) ([]model.Transaction, error) {
	var out []model.Transaction
	s.view(ctx, func(d *state) {
		for _, t := range d.txns {
			if f.Match(t) {
				out = append(out, t)
			}
		}
	})
	sortTransactions(out)
	return out, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.update(ctx, func(d *state) error {
		i := slices.IndexFunc(d.txns, func(t model.Transaction) bool { return t.ID == id })
		if i < 0 {
			return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
		}
		d.txns = slices.Delete(d.txns, i, i+1)
		s.markDirty(TransactionsFile)
		return nil
	})
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) ([]model.Transaction, error) {
	var removed []model.Transaction
	err := s.update(ctx, func(d *state) error {
		removed = nil
		if groupID == "" {
			return fmt.Errorf("group %q: %w", groupID, store.ErrNotFound)
		}
		kept := d.txns[:0:0]
		for _, t := range d.txns {
			if t.GroupID == groupID {
				removed = append(removed, t)
				continue
			}
			kept = append(kept, t)
		}
		if len(removed) == 0 {
			return fmt.Errorf("group %s: %w", groupID, store.ErrNotFound)
		}
		d.txns = kept
		s.markDirty(TransactionsFile)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortTransactions(removed)
	return removed, nil
}

// sortTransactions orders by date, then group and installment index, then ID.
func sortTransactions(txns []model.Transaction) {
	slices.SortStableFunc(txns, func(a, b model.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.GroupID, b.GroupID); c != 0 {
			return c
		}
		if a.InstallmentIndex != b.InstallmentIndex {
			return a.InstallmentIndex - b.InstallmentIndex
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Accounts

func (s *Store) SaveAccount(ctx context.Context, a model.Account) error {
	return s.update(ctx, func(d *state) error {
		d.accounts = upsert(d.accounts, a, func(e model.Account) bool { return e.ID == a.ID })
		s.markDirty(AccountsFile)
		return nil
	})
}

func (s *Store) GetAccount(ctx context.Context, id string) (model.Account, error) {
	return get(ctx, s, func(d *state) []model.Account { return d.accounts },
		func(a model.Account) bool { return a.ID == id }, "account "+id)
}

func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var out []model.Account
	s.view(ctx, func(d *state) { out = slices.Clone(d.accounts) })
	return out, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.update(ctx, func(d *state) error {
		var ok bool
		if d.accounts, ok = remove(d.accounts, func(a model.Account) bool { return a.ID == id }); !ok {
			return fmt.Errorf("account %s: %w", id, store.ErrNotFound)
		}
		s.markDirty(AccountsFile)
		return nil
	})
}

// Cards

func (s *Store) SaveCard(ctx context.Context, c model.Card) error {
	return s.update(ctx, func(d *state) error {
		d.cards = upsert(d.cards, c, func(e model.Card) bool { return e.ID == c.ID })
		s.markDirty(CardsFile)
		return nil
	})
}

func (s *Store) GetCard(ctx context.Context, id string) (model.Card, error) {
	return get(ctx, s, func(d *state) []model.Card { return d.cards },
		func(c model.Card) bool { return c.ID == id }, "card "+id)
}

func (s *Store) ListCards(ctx context.Context) ([]model.Card, error) {
	var out []model.Card
	s.view(ctx, func(d *state) { out = slices.Clone(d.cards) })
	return out, nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	return s.update(ctx, func(d *state) error {
		var ok bool
		if d.cards, ok = remove(d.cards, func(c model.Card) bool { return c.ID == id }); !ok {
			return fmt.Errorf("card %s: %w", id, store.ErrNotFound)
		}
		s.markDirty(CardsFile)
		return nil
	})
}

// Categories

func (s *Store) SaveCategory(ctx context.Context, c model.Category) error {
	return s.update(ctx, func(d *state) error {
		d.categories = upsert(d.categories, c, func(e model.Category) bool { return e.ID == c.ID })
		s.markDirty(CategoriesFile)
		return nil
	})
}

func (s *Store) GetCategory(ctx context.Context, id string) (model.Category, error) {
	return get(ctx, s, func(d *state) []model.Category { return d.categories },
		func(c model.Category) bool { return c.ID == id }, "category "+id)
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	s.view(ctx, func(d *state) { out = slices.Clone(d.categories) })
	return out, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.update(ctx, func(d *state) error {
		var ok bool
		if d.categories, ok = remove(d.categories, func(c model.Category) bool { return c.ID == id }); !ok {
			return fmt.Errorf("category %s: %w", id, store.ErrNotFound)
		}
		s.markDirty(CategoriesFile)
		return nil
	})
}

// Statements

func (s *Store) SaveStatementStatus(ctx context.Context, st model.StatementStatus) error {
	return s.update(ctx, func(d *state) error {
		d.statements = upsert(d.statements, st, func(e model.StatementStatus) bool {
			return e.CardID == st.CardID && e.Year == st.Year && e.Month == st.Month
		})
		s.markDirty(StatementsFile)
		return nil
	})
}

func (s *Store) GetStatementStatus(ctx context.Context, cardID string, year int, month time.Month) (model.StatementStatus, error) {
	out := model.StatementStatus{CardID: cardID, Year: year, Month: month, Status: model.PaymentPending}
	s.view(ctx, func(d *state) {
		i := slices.IndexFunc(d.statements, func(e model.StatementStatus) bool {
			return e.CardID == cardID && e.Year == year && e.Month == month
		})
		if i >= 0 {
			out = d.statements[i]
		}
	})
	return out, nil
}

func upsert[T any](items []T, item T, match func(T) bool) []T {
	if i := slices.IndexFunc(items, match); i >= 0 {
		items[i] = item
		return items
	}
	return append(items, item)
}

func remove[T any](items []T, match func(T) bool) ([]T, bool) {
	i := slices.IndexFunc(items, match)
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}

func get[T any](ctx context.Context, s *Store, items func(*state) []T, match func(T) bool, what string) (T, error) {
	var (
		out   T
		found bool
	)
	s.view(ctx, func(d *state) {
		list := items(d)
		if i := slices.IndexFunc(list, match); i >= 0 {
			out, found = list[i], true
		}
	})
	if !found {
		var zero T
		return zero, fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return out, nil
}
