package orders

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// NormalizeDate accepts YYYY-MM-DD or any RFC 3339 timestamp and returns the
// calendar date part.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", validationf("order_date must be YYYY-MM-DD, got %q", s)
	}
	return t.Format(dateLayout), nil
}

// FilterByDate keeps rows whose order_date falls in [from, to]. Empty bounds
// are open. Dates compare as strings because they are normalized.
func FilterByDate(rows []Order, from, to string) []Order {
	if from == "" && to == "" {
		return rows
	}
	out := make([]Order, 0, len(rows))
	for _, o := range rows {
		if from != "" && o.OrderDate < from {
			continue
		}
		if to != "" && o.OrderDate > to {
			continue
		}
		out = append(out, o)
	}
	return out
}
