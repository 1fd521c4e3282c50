package repository

import "math"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (Page-1)*PageSize within a 32-bit offset.
	MaxPage = math.MaxInt32 / MaxPageSize
)

type PageRequest struct {
	Page     int
	PageSize int
}

func (r PageRequest) offset() int {
	return (r.Page - 1) * r.PageSize
}

type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NormalizePageRequest(in PageRequest) PageRequest {
	page := in.Page
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return PageRequest{Page: page, PageSize: pageSize}
}

func newPageResult[T any](req PageRequest, total int64, items []T) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items:      items,
		Page:       req.Page,
		PageSize:   req.PageSize,
		Total:      total,
		TotalPages: calcTotalPages(total, req.PageSize),
	}
}

func calcTotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
