package util

import (
	"fmt"
	"strings"
	"time"
)

const settlementLayout = "2006-01-02T15:04:05Z07:00"

// ParseSettlementTime parses an upstream settlement timestamp into epoch
// milliseconds. The source frequently omits the UTC offset; when it does the
// supplied fixed offset (e.g. "+10:00") is appended before parsing. This is
// deliberately not daylight-saving aware.
func ParseSettlementTime(s, fixedOffset string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	if !hasOffset(s) {
		s += fixedOffset
	}
	t, err := time.Parse(settlementLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse settlement time %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

// hasOffset reports whether the timestamp carries an explicit zone, either a
// trailing "Z" or a +hh:mm / -hh:mm suffix after the time part.
func hasOffset(s string) bool {
	if strings.HasSuffix(s, "Z") {
		return true
	}
	// Look for a sign after the "T"; a date's own dashes come before it.
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return false
	}
	rest := s[i+1:]
	return strings.ContainsAny(rest, "+") || strings.Contains(rest, "-")
}
