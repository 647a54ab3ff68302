package relay

import (
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"leadrelay/internal/constants"
)

// ErrUnparseableTime marks a moved-time value the normalizer could not
// interpret. Callers fold it into movedPass=false rather than failing
// the request.
var ErrUnparseableTime = stderrors.New("unparseable moved time")

var (
	offsetSuffixRe = regexp.MustCompile(`[+-]\d{2}:\d{2}$`)
	spaceFormatRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	tFormatRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`)
)

// instantLayouts are tried in order when parsing the normalized string.
// Strings the rewrite rules touched always hit the RFC3339 layouts;
// anything else is best-effort.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NormalizeMovedTime interprets a CRM-supplied timestamp as an absolute
// instant. Strings that already carry timezone information (trailing Z
// or ±HH:MM offset) are trusted as-is; the two known offset-less shapes
// get the fixed UTC−03:00 assumption appended; any other shape goes to
// the parser unmodified.
func NormalizeMovedTime(raw interface{}) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, ErrUnparseableTime
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseableTime
	}

	if !hasExplicitOffset(s) {
		switch {
		case spaceFormatRe.MatchString(s):
			s = strings.Replace(s, " ", "T", 1) + constants.AssumedUTCOffset
		case tFormatRe.MatchString(s):
			s = s + constants.AssumedUTCOffset
		}
	}

	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrUnparseableTime
}

func hasExplicitOffset(s string) bool {
	return strings.HasSuffix(s, "Z") || offsetSuffixRe.MatchString(s)
}
