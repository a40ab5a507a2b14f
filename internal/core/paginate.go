package core

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 10

// Page is one slice of a filtered view.
type Page[T any] struct {
	Items     []T
	Number    int // 1-based, after clamping
	Size      int
	Total     int // filtered rows across all pages
	PageCount int // at least 1
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Number < p.PageCount }

// First returns the 1-based position of the first item on the page, 0 when empty.
func (p Page[T]) First() int {
	if len(p.Items) == 0 {
		return 0
	}
	return (p.Number-1)*p.Size + 1
}

// Last returns the 1-based position of the last item on the page.
func (p Page[T]) Last() int {
	if len(p.Items) == 0 {
		return 0
	}
	return p.First() + len(p.Items) - 1
}

// PageCount returns ceil(total/size), never less than 1.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	n := (total + size - 1) / size
	if n < 1 {
		return 1
	}
	return n
}

// ClampPage moves a requested page number into [1, PageCount].
func ClampPage(number, total, size int) int {
	count := PageCount(total, size)
	switch {
	case number < 1:
		return 1
	case number > count:
		return count
	default:
		return number
	}
}

// Paginate returns rows[(n-1)*size : n*size] for the clamped page n.
func Paginate[T any](rows []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(rows)
	number = ClampPage(number, total, size)

	start := (number - 1) * size
	end := start + size
	if end > total {
		end = total
	}

	items := make([]T, end-start)
	copy(items, rows[start:end])

	return Page[T]{
		Items:     items,
		Number:    number,
		Size:      size,
		Total:     total,
		PageCount: PageCount(total, size),
	}
}
