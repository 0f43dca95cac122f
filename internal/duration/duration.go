// Package duration parses human time-tracking strings such as "2d 3h".
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidDuration is returned for strings outside the duration grammar.
var ErrInvalidDuration = errors.New("invalid duration")

// Calendar fixes how long a working day and week are.
type Calendar struct {
	HoursPerDay float64
	DaysPerWeek float64
}

// Default uses plain clock days and weeks.
var Default = Calendar{HoursPerDay: 24, DaysPerWeek: 7}

var partExp = regexp.MustCompile(`^(\d+(?:\.\d+)?)([wdhmsWDHMS])`)

// ParseDuration converts a string like "1w 2d 3h 30m" into seconds.
// Groups may be separated by whitespace; each unit is one of w, d, h, m, s.
func (c Calendar) ParseDuration(s string) (int64, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}

	var total float64
	for rest != "" {
		m := partExp.FindStringSubmatch(rest)
		if m == nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		total += n * c.unitSeconds(strings.ToLower(m[2]))
		rest = strings.TrimLeft(rest[len(m[0]):], " \t")
	}

	total = math.Round(total)
	if math.IsNaN(total) || math.IsInf(total, 0) || total >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidDuration, s)
	}
	return int64(total), nil
}

func (c Calendar) unitSeconds(unit string) float64 {
	hoursPerDay := c.HoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = Default.HoursPerDay
	}
	daysPerWeek := c.DaysPerWeek
	if daysPerWeek <= 0 {
		daysPerWeek = Default.DaysPerWeek
	}

	switch unit {
	case "w":
		return daysPerWeek * hoursPerDay * 3600
	case "d":
		return hoursPerDay * 3600
	case "h":
		return 3600
	case "m":
		return 60
	default:
		return 1
	}
}
