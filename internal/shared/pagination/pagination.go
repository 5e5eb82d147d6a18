package pagination

import (
	"strconv"
	"strings"

	"docharvest-backend/internal/shared/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	CodeInvalidPagination = "invalid_pagination"
)

// Page selects a slice of a listing. Number is 1-based.
type Page struct {
	Number int
	Limit  int
}

// Default returns the first page with the default limit.
func Default() Page {
	return Page{Number: 1, Limit: DefaultLimit}
}

// Offset returns the zero-based row offset of the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// TotalPages returns how many pages hold total rows.
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Parse reads raw query values. Blank values take defaults.
func Parse(rawPage, rawLimit string) (Page, error) {
	p := Default()
	if v := strings.TrimSpace(rawPage); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Page{}, apperr.Validation(CodeInvalidPagination, "page must be a positive integer")
		}
		p.Number = n
	}
	if v := strings.TrimSpace(rawLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return Page{}, apperr.Validationf(CodeInvalidPagination, "limit must be between 1 and %d", MaxLimit)
		}
		p.Limit = n
	}
	return p, nil
}

// Info is the pagination block of a listing response.
type Info struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Describe builds the response block for p and total.
func (p Page) Describe(total int) Info {
	return Info{Page: p.Number, Limit: p.Limit, Total: total, TotalPages: p.TotalPages(total)}
}
