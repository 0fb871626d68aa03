package pager

// Paginate returns the items of the zero-based page and the total number of
// pages, ceil(len(items)/size). A page outside [0, totalPages) yields an
// empty slice. size <= 0 puts everything on a single page.
func Paginate[T any](items []T, page, size int) ([]T, int) {
	total := len(items)
	if size <= 0 {
		size = total
		if size == 0 {
			return []T{}, 0
		}
	}
	totalPages := (total + size - 1) / size
	if page < 0 || page >= totalPages {
		return []T{}, totalPages
	}
	start := page * size
	end := min(start+size, total)
	return items[start:end], totalPages
}

// Clamp maps a possibly stale page number onto [0, totalPages-1], or 0 when
// there are no pages.
func Clamp(page, totalPages int) int {
	if totalPages <= 0 || page < 0 {
		return 0
	}
	if page >= totalPages {
		return totalPages - 1
	}
	return page
}

func HasPrev(page int) bool { return page > 0 }

func HasNext(page, totalPages int) bool { return page < totalPages-1 }

type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
	TotalItems int
}

// At clamps page to the valid range and returns that page.
func At[T any](items []T, page, size int) Page[T] {
	_, totalPages := Paginate(items, 0, size)
	page = Clamp(page, totalPages)
	pageItems, _ := Paginate(items, page, size)
	return Page[T]{Items: pageItems, Number: page, TotalPages: totalPages, TotalItems: len(items)}
}

func (p Page[T]) HasPrev() bool { return HasPrev(p.Number) }

func (p Page[T]) HasNext() bool { return HasNext(p.Number, p.TotalPages) }
