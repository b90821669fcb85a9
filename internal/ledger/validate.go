package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	ID          string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.ID, e.Description)
}

// RefChecker tests whether referenced entities exist.
type RefChecker interface {
	AccountExists(id string) bool
	CardExists(id string) bool
	CategoryExists(id string) bool
}

// ValidateGroup checks the members of one freshly split intent.
func ValidateGroup(txns []model.Transaction) []ValidationError {
	return ValidateGroups(txns, nil)
}

// ValidateGroups enforces 6 invariants over a set of records. Reference
// checks (invariant 6) run only when refs is non-nil.
func ValidateGroups(txns []model.Transaction, refs RefChecker) []ValidationError {
	var errs []ValidationError

	groups := make(map[string][]model.Transaction)
	var groupOrder []string
	for _, t := range txns {
		if t.GroupID == "" {
			continue
		}
		if _, seen := groups[t.GroupID]; !seen {
			groupOrder = append(groupOrder, t.GroupID)
		}
		groups[t.GroupID] = append(groups[t.GroupID], t)
	}

	for _, g := range groupOrder {
		errs = append(errs, validateMembers(g, groups[g])...)
	}

	for _, t := range txns {
		// Invariant 4: positive amounts in whole cents.
		if !t.Amount.IsPositive() {
			errs = append(errs, ValidationError{
				Invariant:   4,
				ID:          t.ID,
				Description: fmt.Sprintf("amount %s must be positive", t.Amount.StringFixed(2)),
			})
		} else if !money.HasAtMostCents(t.Amount) {
			errs = append(errs, ValidationError{
				Invariant:   4,
				ID:          t.ID,
				Description: fmt.Sprintf("amount %s has more than 2 decimal places", t.Amount),
			})
		}

		// Invariant 5: group membership matches installment count.
		switch {
		case t.InstallmentCount < 1:
			errs = append(errs, ValidationError{
				Invariant:   5,
				ID:          t.ID,
				Description: fmt.Sprintf("installment count %d must be at least 1", t.InstallmentCount),
			})
		case t.InstallmentCount == 1 && t.GroupID != "":
			errs = append(errs, ValidationError{
				Invariant:   5,
				ID:          t.ID,
				Description: fmt.Sprintf("single record carries group %s", t.GroupID),
			})
		case t.InstallmentCount == 1 && t.InstallmentIndex != 1:
			errs = append(errs, ValidationError{
				Invariant:   2,
				ID:          t.ID,
				Description: fmt.Sprintf("single record has installment index %d", t.InstallmentIndex),
			})
		case t.InstallmentCount > 1 && t.GroupID == "":
			errs = append(errs, ValidationError{
				Invariant:   5,
				ID:          t.ID,
				Description: fmt.Sprintf("installment %d/%d has no group", t.InstallmentIndex, t.InstallmentCount),
			})
		}

		// Invariant 6: references resolve.
		if refs == nil {
			continue
		}
		if !refs.CategoryExists(t.CategoryID) {
			errs = append(errs, ValidationError{Invariant: 6, ID: t.ID, Description: fmt.Sprintf("unknown category %q", t.CategoryID)})
		}
		if t.AccountID != "" && !refs.AccountExists(t.AccountID) {
			errs = append(errs, ValidationError{Invariant: 6, ID: t.ID, Description: fmt.Sprintf("unknown account %q", t.AccountID)})
		}
		if t.CardID != "" && !refs.CardExists(t.CardID) {
			errs = append(errs, ValidationError{Invariant: 6, ID: t.ID, Description: fmt.Sprintf("unknown card %q", t.CardID)})
		}
	}

	return errs
}

// validateMembers checks invariants 1 to 3 for the members of one group.
func validateMembers(groupID string, members []model.Transaction) []ValidationError {
	var errs []ValidationError
	first := members[0]

	// Invariant 3: members agree on shared fields.
	for _, t := range members[1:] {
		var diffs []string
		if t.InstallmentCount != first.InstallmentCount {
			diffs = append(diffs, "installment count")
		}
		if t.CardID != first.CardID {
			diffs = append(diffs, "card")
		}
		if t.AccountID != first.AccountID {
			diffs = append(diffs, "account")
		}
		if t.Type != first.Type {
			diffs = append(diffs, "type")
		}
		if t.Origin != first.Origin {
			diffs = append(diffs, "origin")
		}
		if len(diffs) > 0 {
			errs = append(errs, ValidationError{
				Invariant:   3,
				ID:          t.ID,
				Description: fmt.Sprintf("disagrees with %s on %s", first.ID, strings.Join(diffs, ", ")),
			})
		}
	}

	// Invariant 1: member count equals installment count.
	if len(members) != first.InstallmentCount {
		errs = append(errs, ValidationError{
			Invariant:   1,
			ID:          groupID,
			Description: fmt.Sprintf("group has %d members, expected %d", len(members), first.InstallmentCount),
		})
	}

	// Invariant 2: indices are exactly 1..N.
	seen := make(map[int]int)
	for _, t := range members {
		seen[t.InstallmentIndex]++
	}
	var bad []string
	for idx, n := range seen {
		switch {
		case idx < 1 || idx > first.InstallmentCount:
			bad = append(bad, fmt.Sprintf("%d out of range", idx))
		case n > 1:
			bad = append(bad, fmt.Sprintf("%d repeated", idx))
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		errs = append(errs, ValidationError{
			Invariant:   2,
			ID:          groupID,
			Description: fmt.Sprintf("installment indices: %s", strings.Join(bad, ", ")),
		})
	}

	return errs
}

// joinValidation folds violations into one error.
func joinValidation(verrs []ValidationError) error {
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalidGroup, strings.Join(msgs, "; "))
}

// refSet is a RefChecker over loaded entities.
type refSet struct {
	accounts   map[string]bool
	cards      map[string]bool
	categories map[string]bool
}

func newRefSet(accounts []model.Account, cards []model.Card, cats []model.Category) refSet {
	r := refSet{
		accounts:   make(map[string]bool, len(accounts)),
		cards:      make(map[string]bool, len(cards)),
		categories: make(map[string]bool, len(cats)),
	}
	for _, a := range accounts {
		r.accounts[a.ID] = true
	}
	for _, c := range cards {
		r.cards[c.ID] = true
	}
	for _, c := range cats {
		r.categories[c.ID] = true
	}
	return r
}

func (r refSet) AccountExists(id string) bool  { return r.accounts[id] }
func (r refSet) CardExists(id string) bool     { return r.cards[id] }
func (r refSet) CategoryExists(id string) bool { return r.categories[id] }
