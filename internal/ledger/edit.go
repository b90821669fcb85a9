package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
	"github.com/fincontrol-dev/fincontrol/internal/store"
)

// ErrCategoryInUse is returned when changing the type of a category that
// transactions already reference.
var ErrCategoryInUse = errors.New("category in use")

// UpdateAccount loads an account, applies edit and saves the result. The ID
// cannot change.
func (s *Service) UpdateAccount(ctx context.Context, id string, edit func(*model.Account) error) (model.Account, error) {
	var out model.Account
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		acc, err := s.store.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if err := edit(&acc); err != nil {
			return err
		}
		acc.ID = id
		if !acc.Origin.Valid() {
			return fmt.Errorf("unknown origin %q", acc.Origin)
		}
		acc.Balance = money.Round(acc.Balance)
		out = acc
		return s.store.SaveAccount(ctx, acc)
	})
	return out, err
}

// UpdateCard loads a card, applies edit and saves the result.
func (s *Service) UpdateCard(ctx context.Context, id string, edit func(*model.Card) error) (model.Card, error) {
	var out model.Card
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		card, err := s.store.GetCard(ctx, id)
		if err != nil {
			return err
		}
		if err := edit(&card); err != nil {
			return err
		}
		card.ID = id
		if err := ValidateCard(card); err != nil {
			return err
		}
		card.CreditLimit = money.Round(card.CreditLimit)
		out = card
		return s.store.SaveCard(ctx, card)
	})
	return out, err
}

// UpdateCategory loads a category, applies edit and saves the result. The
// type may only change while no transaction references the category.
func (s *Service) UpdateCategory(ctx context.Context, id string, edit func(*model.Category) error) (model.Category, error) {
	var out model.Category
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		cat, err := s.store.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		was := cat.Type
		if err := edit(&cat); err != nil {
			return err
		}
		cat.ID = id
		if !cat.Type.Valid() {
			return fmt.Errorf("unknown type %q", cat.Type)
		}
		if cat.Type != was {
			used, err := s.store.ListTransactions(ctx, store.Filter{CategoryID: id})
			if err != nil {
				return err
			}
			if len(used) > 0 {
				return fmt.Errorf("%w: %s is used by %d transactions", ErrCategoryInUse, id, len(used))
			}
		}
		out = cat
		return s.store.SaveCategory(ctx, cat)
	})
	return out, err
}

// ValidateCard checks the fields a statement depends on.
func ValidateCard(c model.Card) error {
	var errs []error
	if !c.Origin.Valid() {
		errs = append(errs, fmt.Errorf("unknown origin %q", c.Origin))
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		errs = append(errs, fmt.Errorf("closing day %d not in 1..31", c.ClosingDay))
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		errs = append(errs, fmt.Errorf("due day %d not in 1..31", c.DueDay))
	}
	if c.CreditLimit.IsNegative() {
		errs = append(errs, fmt.Errorf("negative credit limit %s", c.CreditLimit))
	}
	return errors.Join(errs...)
}
