package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxPageLimit = 500

// PageParams is the limit/offset pair of a paginated listing.
type PageParams struct {
	Limit  int
	Offset int
}

// ParsePageParams reads limit and offset, falling back to defaultLimit when
// limit is missing, unparseable or not positive. Negative offsets become zero.
func ParsePageParams(query url.Values, defaultLimit int) PageParams {
	p := PageParams{Limit: defaultLimit}
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = min(n, maxPageLimit)
		}
	}
	if v := strings.TrimSpace(query.Get("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Offset = n
		}
	}
	return p
}

var errInvalidDate = errors.New("invalid date")

// ParseDateBound reads an RFC 3339 timestamp or a YYYY-MM-DD day. A bare day
// used as an upper bound covers the whole day. Empty input yields the zero time.
func ParseDateBound(v string, upper bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, v)
	}
	if upper {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
