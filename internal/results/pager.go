// Package results pages, renders and exports query results.
package results

// DefaultPageSize is the number of rows fetched per page.
const DefaultPageSize = 50

// Pager tracks the current page of a result set. Pages are 1-based.
type Pager struct {
	Page  int
	Size  int
	Total int64
}

// NewPager starts at page 1. A non-positive size uses DefaultPageSize.
func NewPager(size int) Pager {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Pager{Page: 1, Size: size}
}

// TotalPages returns ceil(Total/Size).
func (p Pager) TotalPages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// CanPrev reports whether a previous page exists.
func (p Pager) CanPrev() bool {
	return p.Page > 1
}

// CanNext reports whether a next page exists.
func (p Pager) CanNext() bool {
	return p.Page < p.TotalPages()
}

// Next moves forward one page, stopping at the last one.
func (p *Pager) Next() bool {
	if !p.CanNext() {
		return false
	}
	p.Page++
	return true
}

// Prev moves back one page, stopping at the first one.
func (p *Pager) Prev() bool {
	if !p.CanPrev() {
		return false
	}
	p.Page--
	return true
}

// Reset returns to page 1 and forgets the total.
func (p *Pager) Reset() {
	p.Page = 1
	p.Total = 0
}
