package pkg

// PageOffset clamps page into [1, lastPage] for the given total and returns the
// resulting page and row offset. An empty result set yields page 1, offset 0.
func PageOffset(page, size, total int) (int, int) {
	if size < 1 {
		size = 1
	}
	if page < 1 {
		page = 1
	}

	lastPage := (total + size - 1) / size
	if lastPage < 1 {
		lastPage = 1
	}
	if page > lastPage {
		page = lastPage
	}

	return page, (page - 1) * size
}
