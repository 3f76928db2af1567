package main

import (
	"strconv"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// parseLimit reads a positive page size, falling back to def when empty and
// clamping to ceiling.
func parseLimit(raw string, def, ceiling int) (int, error) {
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, ierr.NewErrorf("invalid limit %q", raw).
			WithHint("limit must be a positive integer").
			Mark(ierr.ErrValidation)
	}
	return min(limit, ceiling), nil
}
