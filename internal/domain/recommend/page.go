package recommend

// Paginate slices items for a zero-based page. size == 0 yields an empty
// page and a single total page.
func Paginate[T any](items []T, page, size int) (content []T, totalPages int, last bool) {
	total := len(items)
	if size == 0 {
		return []T{}, 1, page >= 0
	}

	totalPages = (total + size - 1) / size
	last = page >= totalPages-1

	// compare before multiplying so huge page numbers cannot overflow
	if page > total/size || page*size >= total {
		return []T{}, totalPages, last
	}
	from := page * size
	to := min(from+size, total)
	return items[from:to], totalPages, last
}
