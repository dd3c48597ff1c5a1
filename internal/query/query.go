// Package query filters and orders account collections for the admin console.
package query

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spec-kit/account-console/internal/domain"
)

// SortField selects the single sort key. The zero value keeps input order.
type SortField string

const (
	SortNone           SortField = ""
	SortByName         SortField = "name"
	SortByEmail        SortField = "email"
	SortByRegisteredAt SortField = "registeredAt"
	SortByUpdatedAt    SortField = "updatedAt"
)

// SortOrder selects the sort direction. The zero value is ascending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// UserListFilter describes one admin list query. Nil or empty fields do not filter.
type UserListFilter struct {
	Status        *domain.AccountStatus
	EmailVerified *bool
	SearchTerm    string
	SortBy        SortField
	SortOrder     SortOrder
}

// ParseSortField accepts the API spelling of a sort key.
func ParseSortField(raw string) (SortField, error) {
	switch SortField(raw) {
	case SortNone, SortByName, SortByEmail, SortByRegisteredAt, SortByUpdatedAt:
		return SortField(raw), nil
	}
	switch strings.ToLower(raw) {
	case "registered_at", "registeredat":
		return SortByRegisteredAt, nil
	case "updated_at", "updatedat":
		return SortByUpdatedAt, nil
	}
	return SortNone, fmt.Errorf("unknown sort field %q", raw)
}

// ParseSortOrder accepts asc or desc, case-insensitively.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(raw)) {
	case "", SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return SortAsc, fmt.Errorf("unknown sort order %q", raw)
}

// Engine evaluates list filters. Names are compared with the collation of tag.
type Engine struct {
	tag language.Tag
}

// NewEngine returns an engine collating names for tag.
func NewEngine(tag language.Tag) *Engine {
	return &Engine{tag: tag}
}

// FilterAndSort returns the accounts matching every set filter field, ordered
// by filter.SortBy when set. The input slice is never modified.
func (e *Engine) FilterAndSort(accounts []domain.Account, filter UserListFilter) []domain.Account {
	result := make([]domain.Account, 0, len(accounts))
	search := strings.ToLower(filter.SearchTerm)

	for _, account := range accounts {
		if filter.Status != nil && account.Status != *filter.Status {
			continue
		}
		if filter.EmailVerified != nil && account.EmailVerified != *filter.EmailVerified {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(account.Name), search) &&
			!strings.Contains(strings.ToLower(account.Email), search) {
			continue
		}
		result = append(result, account)
	}

	if filter.SortBy == SortNone {
		return result
	}

	compare := e.comparator(filter.SortBy)
	if compare == nil {
		return result
	}
	sign := 1
	if filter.SortOrder == SortDesc {
		sign = -1
	}
	slices.SortStableFunc(result, func(a, b domain.Account) int {
		return sign * compare(a, b)
	})
	return result
}

func (e *Engine) comparator(field SortField) func(a, b domain.Account) int {
	switch field {
	case SortByName:
		// Collators keep internal buffers, so each query gets its own.
		collator := collate.New(e.tag)
		return func(a, b domain.Account) int {
			return collator.CompareString(a.Name, b.Name)
		}
	case SortByEmail:
		return func(a, b domain.Account) int {
			return strings.Compare(a.Email, b.Email)
		}
	case SortByRegisteredAt:
		return func(a, b domain.Account) int {
			return a.RegisteredAt.Compare(b.RegisteredAt)
		}
	case SortByUpdatedAt:
		return func(a, b domain.Account) int {
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	}
	return nil
}
