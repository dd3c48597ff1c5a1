package query

import "github.com/spec-kit/account-console/internal/domain"

// DefaultPageSize applies when a caller passes a non-positive page size.
const DefaultPageSize = 20

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Paginate slices accounts into the requested 1-based page.
func Paginate(accounts []domain.Account, page, pageSize int) ([]domain.Account, Pagination) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(accounts)
	meta := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return []domain.Account{}, meta
	}
	end := min(start+pageSize, total)
	return append([]domain.Account(nil), accounts[start:end]...), meta
}
