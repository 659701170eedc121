package helpers

import (
	"net/http"
	"net/url"
	"strconv"

	"eventadmission/internal/domain"
)

// Paging of the admin registration listing.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePagination reads page and page_size from the query string. Missing, malformed or
// non-positive values fall back to the defaults and page_size is capped at MaxPageSize.
func ParsePagination(r *http.Request) domain.PaginationParams {
	q := r.URL.Query()
	return domain.PaginationParams{
		Page:     positiveQueryInt(q, "page", DefaultPage),
		PageSize: min(positiveQueryInt(q, "page_size", DefaultPageSize), MaxPageSize),
	}
}

func positiveQueryInt(q url.Values, key string, fallback int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// PaginationMeta describes the page returned by a paginated listing.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta builds the metadata of page for a listing of total rows.
func NewPaginationMeta(page domain.PaginationParams, total int) PaginationMeta {
	meta := PaginationMeta{Page: page.Page, PageSize: page.PageSize, Total: total}
	if page.PageSize > 0 {
		meta.TotalPages = (total + page.PageSize - 1) / page.PageSize
	}
	return meta
}
