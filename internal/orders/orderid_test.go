package orders

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNextOrderID(t *testing.T) {
	tests := []struct {
		last, want string
	}{
		{"", "1"},
		{"   ", "1"},
		{"1", "2"},
		{"41", "42"},
		{"99", "100"},
		{"007", "8"},
		{"18446744073709551615", "18446744073709551616"},
		{"ORD007", "ORD008"},
		{"ORD099", "ORD100"},
		{"ORD999", "ORD1000"},
		{"po0001", "po0002"},
		{" ORD010 ", "ORD011"},
	}
	for _, tt := range tests {
		if got := NextOrderID(tt.last); got != tt.want {
			t.Errorf("NextOrderID(%q) = %q, want %q", tt.last, got, tt.want)
		}
	}
}

func TestNextOrderIDNumericProperty(t *testing.T) {
	for n := 0; n < 2000; n += 7 {
		got := NextOrderID(strconv.Itoa(n))
		if got != strconv.Itoa(n+1) {
			t.Fatalf("NextOrderID(%d) = %q", n, got)
		}
	}
}

func TestNextOrderIDFallback(t *testing.T) {
	orig := now
	defer func() { now = orig }()
	now = func() time.Time { return time.UnixMilli(1_700_000_123_456) }

	for _, last := range []string{"ORD-7", "2024/01", "abc", "7ORD"} {
		got := NextOrderID(last)
		if got != "ORD123456" {
			t.Fatalf("NextOrderID(%q) = %q, want ORD123456", last, got)
		}
	}
	if !strings.HasPrefix(NextOrderID("??"), "ORD") {
		t.Fatalf("fallback must keep ORD prefix")
	}
}
