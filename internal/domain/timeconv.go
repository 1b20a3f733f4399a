package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CFTime resolves numeric time coordinate values against a CF-convention
// units attribute such as "days since 1850-01-01".
type CFTime struct {
	Unit  string // Calendar unit: days, hours, minutes, seconds, months, years.
	Epoch time.Time
}

var cfUnitsRe = regexp.MustCompile(`(?i)^\s*([a-z]+)\s+since\s+(.+?)\s*$`)

// Epoch layouts seen in CESM/CMIP output.
var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:4:5",
	"2006-1-2",
}

// ParseCFTime parses a CF units attribute. It returns an error for units
// that do not follow the "<unit> since <epoch>" form.
func ParseCFTime(units string) (CFTime, error) {
	m := cfUnitsRe.FindStringSubmatch(units)
	if m == nil {
		return CFTime{}, errors.Errorf("time units %q are not CF-like", units)
	}

	unit := strings.TrimSuffix(strings.ToLower(m[1]), "s") + "s"
	switch unit {
	case "days", "hours", "minutes", "seconds", "months", "years":
	default:
		return CFTime{}, errors.Errorf("unsupported calendar unit %q", m[1])
	}

	epochStr := strings.TrimSuffix(strings.TrimSpace(m[2]), " UTC")
	for _, layout := range epochLayouts {
		if epoch, err := time.Parse(layout, epochStr); err == nil {
			return CFTime{Unit: unit, Epoch: epoch.UTC()}, nil
		}
	}
	return CFTime{}, errors.Errorf("cannot parse epoch %q", m[2])
}

// Date converts one coordinate value to an absolute timestamp.
//
// Whole days are applied with calendar arithmetic; a time.Duration only
// carries the sub-day remainder. Climate axes routinely span many
// centuries and a single Duration overflows int64 beyond ~292 years.
func (c CFTime) Date(v float64) time.Time {
	switch c.Unit {
	case "days":
		return c.addSeconds(v * 86400)
	case "hours":
		return c.addSeconds(v * 3600)
	case "minutes":
		return c.addSeconds(v * 60)
	case "seconds":
		return c.addSeconds(v)
	case "months":
		whole := int(math.Floor(v))
		frac := v - float64(whole)
		t := c.Epoch.AddDate(0, whole, 0)
		// Fractional months resolved at the mean month length.
		return t.Add(time.Duration(frac * 30.44 * 24 * float64(time.Hour)))
	case "years":
		whole := int(math.Floor(v))
		frac := v - float64(whole)
		t := c.Epoch.AddDate(whole, 0, 0)
		return t.Add(time.Duration(frac * 365.25 * 24 * float64(time.Hour)))
	}
	return c.Epoch
}

// addSeconds advances the epoch by a second offset of arbitrary size.
func (c CFTime) addSeconds(sec float64) time.Time {
	days := math.Floor(sec / 86400)
	rem := sec - days*86400
	return c.Epoch.AddDate(0, 0, int(days)).Add(time.Duration(rem * float64(time.Second)))
}

// Year converts one coordinate value to a fractional calendar year, the
// numeric encoding used for regression.
func (c CFTime) Year(v float64) float64 {
	t := c.Date(v)
	yearStart := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)
	frac := float64(t.Sub(yearStart)) / float64(yearEnd.Sub(yearStart))
	return float64(t.Year()) + frac
}

// NumericYears converts a time axis to fractional years. Values whose
// units cannot be resolved are returned unchanged, which keeps slopes
// well-defined in the coordinate's native unit.
func NumericYears(values []float64, units string) []float64 {
	cf, err := ParseCFTime(units)
	if err != nil {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = cf.Year(v)
	}
	return out
}

// TimeLabel formats one coordinate value as a day-precision label, falling
// back to the bare number when the units cannot be resolved.
func TimeLabel(v float64, units string) string {
	cf, err := ParseCFTime(units)
	if err != nil {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return cf.Date(v).Format("2006-01-02")
}
