package pagination

import "github.com/JaimeStill/prompthub/pkg/query"

// PageRequest asks for one page of a list, optionally filtered by a search
// term and ordered by logical field names.
type PageRequest struct {
	Page     int
	PageSize int
	Search   string
	Sort     []query.SortField
}

// NewPageRequest builds a normalized request from raw inputs. sort uses the
// query.ParseSort syntax.
func NewPageRequest(page, size int, search, sort string, cfg Config) PageRequest {
	r := PageRequest{
		Page:     page,
		PageSize: size,
		Search:   search,
		Sort:     query.ParseSort(sort),
	}
	r.Normalize(cfg)
	return r
}

// Normalize clamps Page and PageSize into the ranges cfg allows.
func (r *PageRequest) Normalize(cfg Config) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
}

// PageResult is one page of T with totals.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult wraps data with its totals. A nil slice becomes empty.
func NewPageResult[T any](data []T, total, page, size int) PageResult[T] {
	pages := 1
	if size > 0 && total > 0 {
		pages = (total + size - 1) / size
	}
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
	}
}
