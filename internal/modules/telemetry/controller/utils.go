package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const (
	maxLimit        = 1000
	maxReadingBytes = 64 << 10
)

// parseLimit reads ?limit=, falling back to def. Accepted range is lo..maxLimit.
func parseLimit(r *http.Request, def, lo int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n < lo {
		return 0, fmt.Errorf("'limit' must be >= %d", lo)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("'limit' must be <= %d", maxLimit)
	}
	return n, nil
}
