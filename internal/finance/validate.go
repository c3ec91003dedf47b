// Package finance implements the stock report mode: input validation,
// daily bar download, CSV export and a per-ticker summary.
package finance

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DateLayout is the accepted date format.
const DateLayout = "2006-01-02"

const maxPathLen = 255

var (
	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")
	// ErrDateOrder is returned when the end date is not after the start date.
	ErrDateOrder = errors.New("end date must be after start date")
	// ErrInvalidTickers is returned for an unusable ticker list.
	ErrInvalidTickers = errors.New("invalid ticker input")
	// ErrInvalidPath is returned for an unusable output directory.
	ErrInvalidPath = errors.New("invalid path")
)

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseDateRange parses both dates and checks their order.
func ParseDateRange(start, end string) (time.Time, time.Time, error) {
	from, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, ErrDateOrder
	}
	return from, to, nil
}

// ParseTickers splits a comma separated list, upper-cases every symbol and
// rejects anything that is not 1 to 5 letters.
func ParseTickers(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty ticker list", ErrInvalidTickers)
	}

	var tickers, invalid []string
	for _, part := range strings.Split(s, ",") {
		t := strings.ToUpper(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if !isTicker(t) {
			invalid = append(invalid, t)
			continue
		}
		tickers = append(tickers, t)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: invalid ticker format: %v", ErrInvalidTickers, invalid)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no valid tickers found", ErrInvalidTickers)
	}
	return tickers, nil
}

func isTicker(s string) bool {
	n := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
		n++
	}
	return n >= 1 && n <= 5
}

// RemoveDuplicates normalizes and de-duplicates tickers, keeping first
// occurrences in order.
func RemoveDuplicates(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ValidatePath rejects empty paths, reserved characters and overlong paths.
// Colons are allowed.
func ValidatePath(p string) error {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if i := strings.IndexAny(p, `<>"|?*`); i >= 0 {
		return fmt.Errorf("%w: invalid character '%c' in path", ErrInvalidPath, p[i])
	}
	if len(trimmed) > maxPathLen {
		return fmt.Errorf("%w: path too long", ErrInvalidPath)
	}
	return nil
}
