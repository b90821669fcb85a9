package categories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fincontrol-dev/fincontrol/internal/model"
)

var (
	// ErrUnknownCategory means no category matched a reference.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrAmbiguousCategory means a name matched more than one category.
	ErrAmbiguousCategory = errors.New("ambiguous category name")
)

// Service provides in-memory lookup over the category list.
type Service struct {
	categories []model.Category
	byID       map[string]model.Category
}

// NewService creates a Service from a slice of categories.
func NewService(categories []model.Category) *Service {
	byID := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return &Service{categories: categories, byID: byID}
}

// All returns all categories.
func (s *Service) All() []model.Category {
	return s.categories
}

// Get returns a category by ID.
func (s *Service) Get(id string) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Exists reports whether a category ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// ByType returns all categories of the given type.
func (s *Service) ByType(t model.TransactionType) []model.Category {
	var result []model.Category
	for _, c := range s.categories {
		if c.Type == t {
			result = append(result, c)
		}
	}
	return result
}

// Resolve finds the category a reference points to. IDs always win; a
// display name is accepted only when exactly one category of type t carries
// it (case-insensitive). Name lookup exists for migrating legacy records
// that stored category names instead of IDs.
func (s *Service) Resolve(ref string, t model.TransactionType) (model.Category, error) {
	ref = strings.TrimSpace(ref)
	if c, ok := s.byID[ref]; ok {
		return c, nil
	}

	var matches []model.Category
	for _, c := range s.ByType(t) {
		if strings.EqualFold(c.Name, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return model.Category{}, fmt.Errorf("%w: %q (%s)", ErrUnknownCategory, ref, t)
	case 1:
		return matches[0], nil
	}
	return model.Category{}, fmt.Errorf("%w: %q matches %d %s categories", ErrAmbiguousCategory, ref, len(matches), t)
}
