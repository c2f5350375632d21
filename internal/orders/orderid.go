package orders

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var prefixedID = regexp.MustCompile(`^([A-Za-z]+)([0-9]+)$`)

// now is swapped in tests; it only feeds the fallback branch of NextOrderID.
var now = time.Now

// NextOrderID derives the order id that follows last.
//
//	""        -> "1"
//	"41"      -> "42"     (numeric, no padding kept)
//	"ORD007"  -> "ORD008" (prefix kept, digits re-padded to their width)
//	"ORD099"  -> "ORD100"
//
// Anything else yields "ORD" plus the last six digits of the current time in
// milliseconds, which is the only non-deterministic result.
func NextOrderID(last string) string {
	last = strings.TrimSpace(last)
	if last == "" {
		return "1"
	}
	if isDigits(last) {
		return strings.TrimLeft(incrementDigits(last), "0")
	}
	if m := prefixedID.FindStringSubmatch(last); m != nil {
		return m[1] + incrementDigits(m[2])
	}
	ms := fmt.Sprintf("%06d", now().UnixMilli())
	return "ORD" + ms[len(ms)-6:]
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// incrementDigits adds one to a decimal digit string, keeping its width and
// growing by one digit on carry out of the top position.
func incrementDigits(s string) string {
	b := []byte(s)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			return string(b)
		}
		b[i] = '0'
	}
	return "1" + string(b)
}
