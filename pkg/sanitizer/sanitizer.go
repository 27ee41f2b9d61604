package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reGroupCode = regexp.MustCompile(`^[A-Z0-9_-]{1,32}$`)
	reDate      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reClock     = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// TrimAndNormalize trims s and collapses every whitespace run to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}
	return result.String()
}

// NormalizeGroupCode trims and upper-cases a sync group code. Other
// characters are left alone; distinct codes must never collapse into one.
func NormalizeGroupCode(code string) string {
	p := Pipeline{
		strings.TrimSpace,
		strings.ToUpper,
	}
	return p.Apply(code)
}

// ValidGroupCode reports whether a normalized code is 1-32 characters of
// A-Z, 0-9, '-' or '_'.
func ValidGroupCode(code string) bool {
	return reGroupCode.MatchString(code)
}

// NormalizeDate zero-pads a Y-M-D date ("2026-3-7" becomes "2026-03-07").
// Anything else is returned trimmed and otherwise untouched.
func NormalizeDate(date string) string {
	date = strings.TrimSpace(date)
	m := reDate.FindStringSubmatch(date)
	if m == nil {
		return date
	}
	return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
}

// NormalizeClock zero-pads an hour ("9:30" becomes "09:30"). Lexicographic
// time comparison depends on it.
func NormalizeClock(clock string) string {
	clock = strings.TrimSpace(clock)
	m := reClock.FindStringSubmatch(clock)
	if m == nil {
		return clock
	}
	return pad2(m[1]) + ":" + m[2]
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
