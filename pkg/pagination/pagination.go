package pagination

import (
	"math"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
	// DefaultPage is the first page number.
	DefaultPage = 1
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page      int
	Limit     int
	Search    string
	SortKey   string
	SortValue string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern lowercases search and wraps it for a substring LIKE match.
// Wildcards typed by the caller are escaped, so the clause using the pattern
// must declare ESCAPE '\'.
func ContainsPattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps the page number to at least DefaultPage.
func NormalizePage(page int) int {
	if page < DefaultPage {
		return DefaultPage
	}
	return page
}

// Normalize returns a copy with page, limit, search and sort direction cleaned up.
func (p Params) Normalize() Params {
	p.Page = NormalizePage(p.Page)
	p.Limit = NormalizeLimit(p.Limit)
	p.Search = strings.TrimSpace(p.Search)
	p.SortKey = strings.TrimSpace(p.SortKey)
	p.SortValue = SortDirection(p.SortValue)
	return p
}

// Offset is the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// SortDirection maps raw input to asc or desc, defaulting to desc.
func SortDirection(value string) string {
	if strings.EqualFold(strings.TrimSpace(value), SortAsc) {
		return SortAsc
	}
	return SortDesc
}

// OrderClause resolves a whitelisted sort key into an ORDER BY expression.
// Unknown keys fall back to the provided column.
func OrderClause(p Params, allowed map[string]string, fallback string) string {
	column, ok := allowed[strings.TrimSpace(p.SortKey)]
	if !ok {
		column = fallback
	}
	return column + " " + strings.ToUpper(SortDirection(p.SortValue))
}

// Meta describes a page of results.
type Meta struct {
	TotalCount  int64 `json:"total_count"`
	ItemsCount  int   `json:"items_count"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	PageSize    int   `json:"page_size"`
}

// NewMeta computes page metadata from the params, the total row count and the page length.
func NewMeta(p Params, total int64, items int) Meta {
	limit := NormalizeLimit(p.Limit)
	return Meta{
		TotalCount:  total,
		ItemsCount:  items,
		CurrentPage: NormalizePage(p.Page),
		TotalPage:   int(math.Ceil(float64(total) / float64(limit))),
		PageSize:    limit,
	}
}

// Page is a list response: the items plus flattened metadata.
type Page[T any] struct {
	Items []T `json:"items"`
	Meta
}

// NewPage builds a Page, replacing nil items with an empty slice.
func NewPage[T any](p Params, total int64, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: NewMeta(p, total, len(items))}
}
