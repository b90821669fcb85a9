package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fincontrol-dev/fincontrol/internal/categories"
	"github.com/fincontrol-dev/fincontrol/internal/ledger"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/store"
)

// Result counts what Apply wrote.
type Result struct {
	Accounts   int
	Cards      int
	Categories int
	Statements int
	Entries    int
	Records    int
	// Skipped counts entries whose source ID is already stored.
	Skipped int
}

// Apply stores a batch in one transaction: entities first, then every entry
// through the ledger so installments are split and validated. A failing
// entry rolls back the whole batch.
func Apply(ctx context.Context, st store.Store, led *ledger.Service, b *Batch) (Result, error) {
	var res Result
	err := st.WithinTransaction(ctx, func(ctx context.Context) error {
		res = Result{}
		for _, c := range b.Categories {
			if err := st.SaveCategory(ctx, c); err != nil {
				return err
			}
			res.Categories++
		}
		for _, a := range b.Accounts {
			if err := st.SaveAccount(ctx, a); err != nil {
				return err
			}
			res.Accounts++
		}
		for _, c := range b.Cards {
			if err := st.SaveCard(ctx, c); err != nil {
				return err
			}
			res.Cards++
		}
		for _, s := range b.Statements {
			if err := st.SaveStatementStatus(ctx, s); err != nil {
				return err
			}
			res.Statements++
		}

		cats, err := st.ListCategories(ctx)
		if err != nil {
			return err
		}
		resolver := categories.NewService(cats)
		cards, err := st.ListCards(ctx)
		if err != nil {
			return err
		}

		var opts []ledger.RecordOption
		if b.BalancesIncluded {
			opts = append(opts, ledger.WithoutBalanceUpdate())
		}
		for i, e := range b.Entries {
			seen, err := alreadyImported(ctx, st, e.Intent.SourceID)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i+1, err)
			}
			if seen {
				res.Skipped++
				continue
			}
			cat, err := resolver.Resolve(e.CategoryRef, e.Intent.Type)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i+1, err)
			}
			intent := e.Intent
			intent.CategoryID = cat.ID
			if e.CardRef != "" {
				card, err := resolveCard(cards, e.CardRef)
				if err != nil {
					return fmt.Errorf("entry %d: %w", i+1, err)
				}
				intent.CardID = card.ID
			}

			txns, err := led.Record(ctx, intent, opts...)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i+1, err)
			}
			res.Entries++
			res.Records += len(txns)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// resolveCard finds the one card whose ID equals ref or whose name or bank
// contains it, ignoring case and accents.
func resolveCard(cards []model.Card, ref string) (model.Card, error) {
	for _, c := range cards {
		if c.ID == ref {
			return c, nil
		}
	}
	want := fold(ref)
	var found []model.Card
	for _, c := range cards {
		if strings.Contains(fold(c.Name), want) || strings.Contains(fold(c.Bank), want) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return model.Card{}, fmt.Errorf("no card matches %q", ref)
	case 1:
		return found[0], nil
	}
	return model.Card{}, fmt.Errorf("card %q is ambiguous: %d cards match", ref, len(found))
}

// alreadyImported reports whether records derived from sourceID exist, either
// as a single record with that ID or as a group with that group ID.
func alreadyImported(ctx context.Context, st store.Store, sourceID string) (bool, error) {
	if sourceID == "" {
		return false, nil
	}
	_, err := st.GetTransaction(ctx, sourceID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	members, err := st.ListTransactions(ctx, store.Filter{GroupID: sourceID})
	if err != nil {
		return false, err
	}
	return len(members) > 0, nil
}
