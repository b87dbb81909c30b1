package view

import (
	"fmt"

	"trialscope/internal/model"
)

const DefaultPageSize = 30

// PageInfo describes one window. StartIndex is inclusive and EndIndex
// exclusive, both 0-based; CurrentPage is 1-based.
type PageInfo struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	StartIndex  int `json:"startIndex"`
	EndIndex    int `json:"endIndex"`
	TotalRows   int `json:"totalRows"`
}

// TotalPages is ceil(n/size).
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	return (n + size - 1) / size
}

// ClampPage keeps page within [1, max(1, totalPages)].
func ClampPage(page, n, size int) int {
	last := max(1, TotalPages(n, size))
	return max(1, min(page, last))
}

// Paginate returns the rows of page (clamped) and its window.
func Paginate(rows []model.Row, page, size int) ([]model.Row, PageInfo) {
	if size <= 0 {
		size = DefaultPageSize
	}
	n := len(rows)
	page = ClampPage(page, n, size)
	start := min((page-1)*size, n)
	end := min(start+size, n)
	return rows[start:end], PageInfo{
		CurrentPage: page,
		TotalPages:  TotalPages(n, size),
		StartIndex:  start,
		EndIndex:    end,
		TotalRows:   n,
	}
}

func (p PageInfo) HasPrev() bool { return p.CurrentPage > 1 }
func (p PageInfo) HasNext() bool { return p.CurrentPage < p.TotalPages }

// Showing is the "Showing a-b of n rows" line.
func (p PageInfo) Showing() string {
	if p.TotalRows == 0 {
		return "Showing 0 of 0 rows"
	}
	return fmt.Sprintf("Showing %d-%d of %d rows", p.StartIndex+1, p.EndIndex, p.TotalRows)
}
