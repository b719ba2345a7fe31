package blog

// Page selects a window of a listing. Number is one based.
type Page struct {
	Number int
	Size   int
}

// DefaultPageSize is used when a Page carries no size
const DefaultPageSize = 20

// NewPage returns a normalized page
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset is the number of rows skipped before this page
func (p Page) Offset() int {
	p = NewPage(p.Number, p.Size)
	return (p.Number - 1) * p.Size
}

// Limit is the page size after normalization
func (p Page) Limit() int {
	return NewPage(p.Number, p.Size).Size
}

// PageResult is one page of a listing plus the total row count
type PageResult[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"per_page"`
	Total int `json:"total"`
}

func newPageResult[T any](items []T, page Page, total int) PageResult[T] {
	page = NewPage(page.Number, page.Size)
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items: items,
		Page:  page.Number,
		Size:  page.Size,
		Total: total,
	}
}

// Pages is the number of pages needed to hold Total rows
func (r PageResult[T]) Pages() int {
	if r.Size < 1 || r.Total == 0 {
		return 0
	}
	return (r.Total + r.Size - 1) / r.Size
}

// HasPrev reports whether a previous page exists
func (r PageResult[T]) HasPrev() bool {
	return r.Page > 1
}

// HasNext reports whether a following page exists
func (r PageResult[T]) HasNext() bool {
	return r.Page < r.Pages()
}
