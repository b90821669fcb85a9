// Package sqlstore is a Store on SQLite or PostgreSQL through gorm. The
// schema is managed by goose migrations embedded in the binary.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type txContextKey struct{}

// goose keeps its dialect and filesystem in package globals.
var migrateMu sync.Mutex

// Store implements store.Store on a gorm connection.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects with driver and dsn and applies pending migrations. For
// SQLite, dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		dialector gorm.Dialector
		dialect   string
	)
	switch driver {
	case DriverSQLite:
		dialector, dialect = sqlite.Open(dsn), "sqlite3"
	case DriverPostgres:
		dialector, dialect = postgres.Open(dsn), "postgres"
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql handle: %w", err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" a single database and serialises writers.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := migrate(ctx, sqlDB, dialect); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, sqlDB *sql.DB, dialect string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinTransaction runs fn in a database transaction carried by ctx. Nested
// calls join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("loading %s: %w", what, err)
}

// Transactions

func (s *Store) InsertTransactions(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	entities := make([]transactionEntity, len(txns))
	for i, t := range txns {
		entities[i] = toTransactionEntity(t)
	}
	return s.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.conn(ctx).Create(&entities).Error; err != nil {
			return fmt.Errorf("inserting transactions: %w", err)
		}
		return nil
	})
}

func (s *Store) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	var e transactionEntity
	if err := s.conn(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return model.Transaction{}, notFound(err, "transaction "+id)
	}
	return toTransactionModel(e)
}

func (s *Store) ListTransactions(ctx context.Context, f store.Filter) ([]model.Transaction, error) {
	q := s.conn(ctx).Model(&transactionEntity{})
	if f.CardID != "" {
		q = q.Where("card_id = ?", f.CardID)
	}
	if f.AccountID != "" {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.GroupID != "" {
		q = q.Where("group_id = ?", f.GroupID)
	}
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Origin != "" {
		q = q.Where("origin = ?", string(f.Origin))
	}
	if !f.From.IsZero() {
		q = q.Where("date >= ?", f.From.Format(calendar.DateLayout))
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", f.To.Format(calendar.DateLayout))
	}

	var entities []transactionEntity
	err := q.Order("date, group_id, installment_index, id").Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return toTransactionModels(entities)
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&transactionEntity{})
	if res.Error != nil {
		return fmt.Errorf("deleting transaction %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) ([]model.Transaction, error) {
	if groupID == "" {
		return nil, fmt.Errorf("group %q: %w", groupID, store.ErrNotFound)
	}
	var removed []model.Transaction
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.ListTransactions(ctx, store.Filter{GroupID: groupID})
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			return fmt.Errorf("group %s: %w", groupID, store.ErrNotFound)
		}
		if err := s.conn(ctx).Where("group_id = ?", groupID).Delete(&transactionEntity{}).Error; err != nil {
			return fmt.Errorf("deleting group %s: %w", groupID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *Store) upsert(ctx context.Context, value any) error {
	return s.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func (s *Store) deleteByID(ctx context.Context, value any, id, what string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(value)
	if res.Error != nil {
		return fmt.Errorf("deleting %s: %w", what, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

// Accounts

func (s *Store) SaveAccount(ctx context.Context, a model.Account) error {
	e := toAccountEntity(a)
	if err := s.upsert(ctx, &e); err != nil {
		return fmt.Errorf("saving account %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (model.Account, error) {
	var e accountEntity
	if err := s.conn(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return model.Account{}, notFound(err, "account "+id)
	}
	return toAccountModel(e), nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var entities []accountEntity
	if err := s.conn(ctx).Order("id").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	var out []model.Account
	for _, e := range entities {
		out = append(out, toAccountModel(e))
	}
	return out, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &accountEntity{}, id, "account "+id)
}

// Cards

func (s *Store) SaveCard(ctx context.Context, c model.Card) error {
	e := toCardEntity(c)
	if err := s.upsert(ctx, &e); err != nil {
		return fmt.Errorf("saving card %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, id string) (model.Card, error) {
	var e cardEntity
	if err := s.conn(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return model.Card{}, notFound(err, "card "+id)
	}
	return toCardModel(e), nil
}

func (s *Store) ListCards(ctx context.Context) ([]model.Card, error) {
	var entities []cardEntity
	if err := s.conn(ctx).Order("id").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	var out []model.Card
	for _, e := range entities {
		out = append(out, toCardModel(e))
	}
	return out, nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &cardEntity{}, id, "card "+id)
}

// Categories

func (s *Store) SaveCategory(ctx context.Context, c model.Category) error {
	e := categoryEntity{ID: c.ID, Name: c.Name, Type: string(c.Type)}
	if err := s.upsert(ctx, &e); err != nil {
		return fmt.Errorf("saving category %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (model.Category, error) {
	var e categoryEntity
	if err := s.conn(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return model.Category{}, notFound(err, "category "+id)
	}
	return model.Category{ID: e.ID, Name: e.Name, Type: model.TransactionType(e.Type)}, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	var entities []categoryEntity
	if err := s.conn(ctx).Order("id").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	var out []model.Category
	for _, e := range entities {
		out = append(out, model.Category{ID: e.ID, Name: e.Name, Type: model.TransactionType(e.Type)})
	}
	return out, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &categoryEntity{}, id, "category "+id)
}

// Statements

func (s *Store) SaveStatementStatus(ctx context.Context, st model.StatementStatus) error {
	e := toStatementEntity(st)
	if err := s.upsert(ctx, &e); err != nil {
		return fmt.Errorf("saving statement %s %d-%02d: %w", st.CardID, st.Year, st.Month, err)
	}
	return nil
}

func (s *Store) GetStatementStatus(ctx context.Context, cardID string, year int, month time.Month) (model.StatementStatus, error) {
	var e statementEntity
	err := s.conn(ctx).
		Where("card_id = ? AND year = ? AND month = ?", cardID, year, int(month)).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.StatementStatus{CardID: cardID, Year: year, Month: month, Status: model.PaymentPending}, nil
	}
	if err != nil {
		return model.StatementStatus{}, fmt.Errorf("loading statement %s %d-%02d: %w", cardID, year, month, err)
	}
	return toStatementModel(e), nil
}
