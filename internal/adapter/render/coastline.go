package render

import (
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"gonum.org/v1/plot/plotter"
)

// Coastline holds coastline and border polylines loaded from a GeoJSON
// file, in the conventional -180..180 longitude domain.
type Coastline struct {
	lines []orb.LineString
}

// LoadCoastline reads a GeoJSON feature collection and flattens every
// line and polygon ring into plottable polylines.
func LoadCoastline(path string) (*Coastline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read coastline file %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse coastline file %s", path)
	}

	c := &Coastline{}
	for _, f := range fc.Features {
		c.addGeometry(f.Geometry)
	}
	if len(c.lines) == 0 {
		return nil, errors.Errorf("coastline file %s contains no line geometry", path)
	}
	return c, nil
}

func (c *Coastline) addGeometry(g orb.Geometry) {
	switch geom := g.(type) {
	case orb.LineString:
		c.lines = append(c.lines, geom)
	case orb.MultiLineString:
		c.lines = append(c.lines, geom...)
	case orb.Polygon:
		for _, ring := range geom {
			c.lines = append(c.lines, orb.LineString(ring))
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			for _, ring := range poly {
				c.lines = append(c.lines, orb.LineString(ring))
			}
		}
	case orb.Collection:
		for _, sub := range geom {
			c.addGeometry(sub)
		}
	}
}

// Segments returns the polylines mapped into the grid's longitude domain.
// Grids on a 0..360 axis get negative longitudes wrapped, with polylines
// split at the seam so no segment spans the whole map.
func (c *Coastline) Segments(lonMin, lonMax float64) []plotter.XYs {
	wrap := lonMax > 180

	var out []plotter.XYs
	for _, line := range c.lines {
		var cur plotter.XYs
		prev := math.NaN()
		for _, pt := range line {
			lon := pt[0]
			if wrap && lon < 0 {
				lon += 360
			}
			if !math.IsNaN(prev) && math.Abs(lon-prev) > 180 {
				if len(cur) > 1 {
					out = append(out, cur)
				}
				cur = nil
			}
			cur = append(cur, plotter.XY{X: lon, Y: pt[1]})
			prev = lon
		}
		if len(cur) > 1 {
			out = append(out, cur)
		}
	}
	return out
}
