package query

import "github.com/example/antrepo/internal/infrastructure/store"

// Pagination is the envelope metadata returned with every list.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Page is the uniform list response: data plus pagination.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPage wraps an already fetched slice in the uniform envelope, for
// callers that run their own store queries.
func NewPage[T any](data []T, page store.PageRequest, total int) *Page[T] {
	p := page.Normalize()
	return newPage(data, p.Page, p.Limit, total)
}

func newPage[T any](data []T, page, limit, total int) *Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Page[T]{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}
