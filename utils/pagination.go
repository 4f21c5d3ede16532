package utils

const (
	pageSizeDefault = 20
	pageSizeMax     = 100
)

// GetPaginationParams resolves optional offset/limit query values into the
// concrete window used by list queries. Nil or out-of-range values fall
// back to the defaults and the limit is capped so a client cannot ask for
// the whole table at once.
func GetPaginationParams(offset *int, limit *int) (int, int) {
	finalOffset := 0
	if offset != nil && *offset >= 0 {
		finalOffset = *offset
	}

	finalLimit := pageSizeDefault
	if limit != nil && *limit > 0 {
		finalLimit = min(*limit, pageSizeMax)
	}

	return finalOffset, finalLimit
}
