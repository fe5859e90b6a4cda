// Package paginate wraps one page of ordered results with its pagination
// metadata and derives page-number and offset views from it.
package paginate

import "fmt"

// Collection is one page of items out of total.
type Collection[T any] struct {
	items   []T
	page    int
	perPage int
	total   int
}

// New wraps items as page (from 1) of perPage out of total.
func New[T any](items []T, page, perPage, total int) (*Collection[T], error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be at least 1, got %d", page)
	}
	if perPage < 1 {
		return nil, fmt.Errorf("per page must be positive, got %d", perPage)
	}
	if total < 0 {
		total = 0
	}
	return &Collection[T]{items: items, page: page, perPage: perPage, total: total}, nil
}

// Map converts the items, keeping the metadata.
func Map[T, U any](c *Collection[T], fn func(T) U) *Collection[U] {
	out := make([]U, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, fn(it))
	}
	return &Collection[U]{items: out, page: c.page, perPage: c.perPage, total: c.total}
}

// Items returns the page items in order.
func (c *Collection[T]) Items() []T { return c.items }

// Len returns the number of items on the page.
func (c *Collection[T]) Len() int { return len(c.items) }

// CurrentPage returns the page number.
func (c *Collection[T]) CurrentPage() int { return c.page }

// PerPage returns the page size.
func (c *Collection[T]) PerPage() int { return c.perPage }

// Total returns the number of matches across all pages.
func (c *Collection[T]) Total() int { return c.total }

// Offset returns the index of the first item.
func (c *Collection[T]) Offset() int { return (c.page - 1) * c.perPage }

// TotalPages returns the number of pages; at least 1.
func (c *Collection[T]) TotalPages() int {
	if c.total == 0 {
		return 1
	}
	return (c.total + c.perPage - 1) / c.perPage
}

// FirstPage reports whether this is the first page.
func (c *Collection[T]) FirstPage() bool { return c.page == 1 }

// LastPage reports whether no page follows.
func (c *Collection[T]) LastPage() bool { return c.page >= c.TotalPages() }

// OutOfRange reports whether the page lies past the last page.
func (c *Collection[T]) OutOfRange() bool { return c.page > c.TotalPages() }

// PrevPage returns the previous page number, or 0 on the first page.
func (c *Collection[T]) PrevPage() int {
	if c.FirstPage() {
		return 0
	}
	return c.page - 1
}

// NextPage returns the next page number, or 0 on the last page.
func (c *Collection[T]) NextPage() int {
	if c.LastPage() {
		return 0
	}
	return c.page + 1
}

// PageMeta is the page-number view of a collection.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
	PrevPage    int `json:"prev_page,omitempty"`
	NextPage    int `json:"next_page,omitempty"`
}

// PageMeta returns the page-number view.
func (c *Collection[T]) PageMeta() PageMeta {
	return PageMeta{
		CurrentPage: c.page,
		PerPage:     c.perPage,
		TotalPages:  c.TotalPages(),
		TotalCount:  c.total,
		PrevPage:    c.PrevPage(),
		NextPage:    c.NextPage(),
	}
}

// OffsetMeta is the offset/limit view of a collection.
type OffsetMeta struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// OffsetMeta returns the offset/limit view.
func (c *Collection[T]) OffsetMeta() OffsetMeta {
	return OffsetMeta{
		Offset:  c.Offset(),
		Limit:   c.perPage,
		Total:   c.total,
		HasMore: c.Offset()+len(c.items) < c.total,
	}
}
