// Package usecase implements the analysis pipeline: time inspection,
// ensemble reduction, regional aggregation and per-cell trend fitting.
package usecase

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"go.ngs.io/climate-trends/internal/domain"
)

// ErrNoTimeAxis is returned by the trend estimator for datasets without a
// temporal coordinate.
var ErrNoTimeAxis = errors.New("dataset has no time axis")

// ErrShortTimeAxis is returned when there are fewer than two timesteps to
// regress over.
var ErrShortTimeAxis = errors.New("not enough time points to compute trend")

// InspectTime summarizes the dataset's time axis for captions. The second
// return value is false when the dataset has no temporal coordinate.
func InspectTime(g *domain.Grid) (domain.TimeInfo, bool) {
	if !g.HasTime() {
		return domain.TimeInfo{}, false
	}

	minV, maxV := g.Time[0], g.Time[0]
	for _, v := range g.Time[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	units := g.TimeUnits
	if units == "" {
		units = "Unknown"
	}
	return domain.TimeInfo{
		Start: domain.TimeLabel(minV, g.TimeUnits),
		End:   domain.TimeLabel(maxV, g.TimeUnits),
		Units: units,
	}, true
}

// ReduceEnsemble averages over the member axis with a NaN-skipping mean.
// Grids without a member axis are returned unchanged (identity).
func ReduceEnsemble(g *domain.Grid) *domain.Grid {
	if !g.HasMember() {
		return g
	}

	nT, nLat, nLon := g.NTime(), len(g.Lat), len(g.Lon)
	out := &domain.Grid{
		Var:       g.Var,
		Units:     g.Units,
		Time:      g.Time,
		TimeUnits: g.TimeUnits,
		Lat:       g.Lat,
		Lon:       g.Lon,
		Values:    make([]float64, nT*nLat*nLon),
	}
	for t := 0; t < nT; t++ {
		for i := 0; i < nLat; i++ {
			for j := 0; j < nLon; j++ {
				sum, n := 0.0, 0
				for m := 0; m < g.Members; m++ {
					v := g.At(m, t, i, j)
					if math.IsNaN(v) {
						continue
					}
					sum += v
					n++
				}
				if n == 0 {
					out.Set(0, t, i, j, math.NaN())
				} else {
					out.Set(0, t, i, j, sum/float64(n))
				}
			}
		}
	}
	return out
}

// RegionalMean subsets the grid to the region (bounds inclusive) and
// reduces to one spatial mean per timestep. A region that does not
// intersect the grid yields an empty series, not an error.
//
// The grid must already be ensemble-reduced; a leftover member axis falls
// back to the first member.
func RegionalMean(g *domain.Grid, region domain.Region) domain.Series {
	var latIdx, lonIdx []int
	for i, lat := range g.Lat {
		if lat >= region.LatMin && lat <= region.LatMax {
			latIdx = append(latIdx, i)
		}
	}
	for j, lon := range g.Lon {
		if lon >= region.LonMin && lon <= region.LonMax {
			lonIdx = append(lonIdx, j)
		}
	}
	if len(latIdx) == 0 || len(lonIdx) == 0 {
		return domain.Series{}
	}

	nT := g.NTime()
	series := domain.Series{
		Time:   domain.NumericYears(g.Time, g.TimeUnits),
		Values: make([]float64, nT),
	}
	for t := 0; t < nT; t++ {
		sum, n := 0.0, 0
		for _, i := range latIdx {
			for _, j := range lonIdx {
				v := g.At(0, t, i, j)
				if math.IsNaN(v) {
					continue
				}
				sum += v
				n++
			}
		}
		if n == 0 {
			series.Values[t] = math.NaN()
		} else {
			series.Values[t] = sum / float64(n)
		}
	}
	return series
}

// LinearTrend fits an ordinary least-squares line of the variable against
// numeric-year time, independently at every grid cell over the full
// spatial extent. Cells with fewer than two valid samples get NaN
// results; with exactly two the slope is exact and the statistics stay
// NaN (zero degrees of freedom). Besides the slope it reports the
// standard error, two-sided
// p-value and 95% confidence half-width from the Student's t distribution
// at n-2 degrees of freedom.
func LinearTrend(g *domain.Grid) (*domain.TrendField, error) {
	if !g.HasTime() {
		return nil, ErrNoTimeAxis
	}
	if len(g.Time) < 2 {
		return nil, ErrShortTimeAxis
	}

	years := domain.NumericYears(g.Time, g.TimeUnits)
	nT, nLat, nLon := len(years), len(g.Lat), len(g.Lon)

	f := &domain.TrendField{
		Lat:    g.Lat,
		Lon:    g.Lon,
		Slope:  make([]float64, nLat*nLon),
		StdErr: make([]float64, nLat*nLon),
		PValue: make([]float64, nLat*nLon),
		CI95:   make([]float64, nLat*nLon),
	}

	xs := make([]float64, 0, nT)
	ys := make([]float64, 0, nT)
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			xs, ys = xs[:0], ys[:0]
			for t := 0; t < nT; t++ {
				v := g.At(0, t, i, j)
				if math.IsNaN(v) || math.IsNaN(years[t]) {
					continue
				}
				xs = append(xs, years[t])
				ys = append(ys, v)
			}
			k := i*nLon + j
			slope, se, p, ci := cellRegression(xs, ys)
			f.Slope[k] = slope
			f.StdErr[k] = se
			f.PValue[k] = p
			f.CI95[k] = ci
		}
	}
	return f, nil
}

// cellRegression runs one OLS fit and derives the slope statistics.
func cellRegression(xs, ys []float64) (slope, se, p, ci float64) {
	n := len(xs)
	if n < 2 {
		nan := math.NaN()
		return nan, nan, nan, nan
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	// Residual variance and Sxx for the slope standard error.
	xMean := stat.Mean(xs, nil)
	var sse, sxx float64
	for i := range xs {
		r := ys[i] - (alpha + beta*xs[i])
		sse += r * r
		dx := xs[i] - xMean
		sxx += dx * dx
	}
	if sxx == 0 {
		// Degenerate time axis for this cell.
		nan := math.NaN()
		return nan, nan, nan, nan
	}

	if n == 2 {
		// Two points fit exactly; zero degrees of freedom leaves the
		// slope statistics undefined.
		nan := math.NaN()
		return beta, nan, nan, nan
	}

	se = math.Sqrt(sse / float64(n-2) / sxx)
	if se == 0 {
		// Perfect fit: the interval collapses.
		if beta == 0 {
			return beta, 0, 1, 0
		}
		return beta, 0, 0, 0
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	t := beta / se
	p = 2 * dist.CDF(-math.Abs(t))
	ci = dist.Quantile(0.975) * se
	return beta, se, p, ci
}

// StepMonths estimates the sampling interval of a numeric-year axis in
// whole months; 0 when undeterminable.
func StepMonths(years []float64) int {
	if len(years) < 2 {
		return 0
	}
	return int(math.Round((years[1] - years[0]) * 12))
}
