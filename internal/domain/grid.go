// Package domain holds the in-memory model for gridded climate data:
// labeled coordinate axes, regional bounds, time metadata and derived
// trend fields. It is pure and performs no I/O.
package domain

import (
	"math"

	"github.com/pkg/errors"
)

// Grid holds one data variable of a gridded climate dataset.
//
// Values are stored flattened in [member][time][lat][lon] order with the
// member stride omitted when no ensemble axis is present. NaN is the
// missing-value marker throughout.
type Grid struct {
	Var       string    // Data variable name.
	Units     string    // Variable units attribute ("" when absent).
	Time      []float64 // Raw temporal coordinate values (nil when absent).
	TimeUnits string    // CF units attribute, e.g. "days since 1850-01-01".
	Lat       []float64 // Latitudes, ascending or descending as stored.
	Lon       []float64 // Longitudes.
	Members   int       // Ensemble size; 0 when no member dimension.
	Values    []float64
}

// HasTime reports whether the dataset carries a temporal coordinate.
func (g *Grid) HasTime() bool {
	return len(g.Time) > 0
}

// HasMember reports whether the dataset carries an ensemble axis.
func (g *Grid) HasMember() bool {
	return g.Members > 0
}

// NTime returns the length of the time axis, at least 1 so that static
// fields still occupy one temporal slice.
func (g *Grid) NTime() int {
	if len(g.Time) == 0 {
		return 1
	}
	return len(g.Time)
}

func (g *Grid) nMember() int {
	if g.Members == 0 {
		return 1
	}
	return g.Members
}

// At returns the value at (member, time, lat, lon). For grids without an
// ensemble axis the member index must be 0.
func (g *Grid) At(m, t, i, j int) float64 {
	nLat, nLon := len(g.Lat), len(g.Lon)
	return g.Values[((m*g.NTime()+t)*nLat+i)*nLon+j]
}

// Set stores a value at (member, time, lat, lon).
func (g *Grid) Set(m, t, i, j int, v float64) {
	nLat, nLon := len(g.Lat), len(g.Lon)
	g.Values[((m*g.NTime()+t)*nLat+i)*nLon+j] = v
}

// Validate checks axis/value consistency.
func (g *Grid) Validate() error {
	if g.Var == "" {
		return errors.New("grid has no variable name")
	}
	if len(g.Lat) == 0 || len(g.Lon) == 0 {
		return errors.New("grid must have lat and lon axes")
	}
	want := g.nMember() * g.NTime() * len(g.Lat) * len(g.Lon)
	if len(g.Values) != want {
		return errors.Errorf("grid %s: have %d values, want %d", g.Var, len(g.Values), want)
	}
	return nil
}

// Region is a rectangular latitude/longitude subset, bounds inclusive.
type Region struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// Contains reports whether the point lies inside the region, bounds
// inclusive.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.LatMin && lat <= r.LatMax && lon >= r.LonMin && lon <= r.LonMax
}

// Validate checks that the bounds describe a non-empty rectangle.
func (r Region) Validate() error {
	if r.LatMin > r.LatMax {
		return errors.Errorf("region lat_min %.2f exceeds lat_max %.2f", r.LatMin, r.LatMax)
	}
	if r.LonMin > r.LonMax {
		return errors.Errorf("region lon_min %.2f exceeds lon_max %.2f", r.LonMin, r.LonMax)
	}
	return nil
}

// TimeInfo is the human-readable summary of a dataset's time axis,
// consumed by figure captions.
type TimeInfo struct {
	Start string // Day-precision label of the earliest timestamp.
	End   string // Day-precision label of the latest timestamp.
	Units string // Declared units attribute, "Unknown" when absent.
}

// Series is a scalar time series, e.g. a regional mean.
type Series struct {
	Time   []float64 // Numeric time (fractional years when resolvable).
	Values []float64
}

// Empty reports whether the series has no samples.
func (s Series) Empty() bool {
	return len(s.Values) == 0
}

// TrendField holds per-grid-cell linear regression results over the full
// spatial grid, flattened in [lat][lon] order.
type TrendField struct {
	Lat []float64
	Lon []float64

	Slope  []float64 // OLS slope per cell; NaN where degenerate.
	StdErr []float64 // Standard error of the slope.
	PValue []float64 // Two-sided p-value of slope != 0.
	CI95   []float64 // Half-width of the 95% confidence interval.
}

// At returns the slope at (lat index, lon index).
func (f *TrendField) At(i, j int) float64 {
	return f.Slope[i*len(f.Lon)+j]
}

// MissingCount returns the number of cells with an undefined slope.
func (f *TrendField) MissingCount() int {
	n := 0
	for _, v := range f.Slope {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
