// Package render draws trend fields as map figures and writes them to
// image files.
package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"go.ngs.io/climate-trends/internal/domain"
	"go.ngs.io/climate-trends/internal/usecase"
)

const (
	figWidth  = 10 * vg.Inch
	figHeight = 6 * vg.Inch
	figDPI    = 300
)

var (
	oceanBlue = color.RGBA{R: 0xad, G: 0xd8, B: 0xe6, A: 0xff}
	boxRed    = color.RGBA{R: 0xd0, G: 0x20, B: 0x20, A: 0xff}
)

// Figure is a rendered, not yet encoded map plot.
type Figure struct {
	canvas *vgimg.Canvas
}

// trendGrid adapts a trend field to the heat map's grid interface.
// Undefined slopes are drawn as zero, matching the source analysis.
type trendGrid struct {
	field *domain.TrendField
}

func (g trendGrid) Dims() (c, r int) { return len(g.field.Lon), len(g.field.Lat) }
func (g trendGrid) X(c int) float64  { return g.field.Lon[c] }
func (g trendGrid) Y(r int) float64  { return g.field.Lat[r] }

func (g trendGrid) Z(c, r int) float64 {
	v := g.field.At(r, c)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// Colormap resolves a colormap name to a diverging/sequential color map.
// Unknown names fall back to the blue-red diverging map.
func Colormap(name string) palette.ColorMap {
	switch name {
	case "", "coolwarm":
		return moreland.SmoothBlueRed()
	case "kindlmann":
		return moreland.Kindlmann()
	case "extended-kindlmann":
		return moreland.ExtendedKindlmann()
	case "blackbody":
		return moreland.BlackBody()
	default:
		return moreland.SmoothBlueRed()
	}
}

// TrendMap renders the slope field on an equirectangular map: pseudo-color
// trend layer, graticule, optional coastlines, a dashed rectangle around
// the analysis region, a colorbar legend and a caption. Pure apart from
// building the in-memory canvas.
func TrendMap(field *domain.TrendField, meta usecase.PlotMeta, coast *Coastline) (*Figure, error) {
	if len(field.Lat) == 0 || len(field.Lon) == 0 {
		return nil, errors.New("trend field has no spatial extent")
	}

	grid := trendGrid{field: field}

	// Symmetric range around zero so the diverging palette pivots there.
	lim := 0.0
	for _, v := range field.Slope {
		if math.IsNaN(v) {
			continue
		}
		if a := math.Abs(v); a > lim {
			lim = a
		}
	}
	if lim == 0 {
		lim = 1
	}

	cm := Colormap(meta.Colormap)
	cm.SetMin(-lim)
	cm.SetMax(lim)
	pal := cm.Palette(255)

	h := plotter.NewHeatMap(grid, pal)
	h.Min = -lim
	h.Max = lim

	p := plot.New()
	p.Title.Text = Title(meta)
	p.BackgroundColor = oceanBlue
	p.X.Label.Text = Caption(meta)

	p.Add(plotter.NewGrid())
	p.Add(h)

	lonMin, lonMax := bounds(field.Lon)
	latMin, latMax := bounds(field.Lat)

	if coast != nil {
		for _, seg := range coast.Segments(lonMin, lonMax) {
			line, err := plotter.NewLine(seg)
			if err != nil {
				return nil, errors.Wrap(err, "coastline polyline")
			}
			line.LineStyle.Color = color.Black
			line.LineStyle.Width = vg.Points(0.5)
			p.Add(line)
		}
	}

	box, err := regionBox(meta.Region)
	if err != nil {
		return nil, err
	}
	p.Add(box)

	p.X.Min, p.X.Max = lonMin, lonMax
	p.Y.Min, p.Y.Max = latMin, latMax
	p.X.Padding = 0
	p.Y.Padding = 0

	legend := colorbarLegend(pal, -lim, lim)

	img := vgimg.NewWith(vgimg.UseWH(figWidth, figHeight), vgimg.UseDPI(figDPI))
	dc := draw.New(img)

	legend.Top = true
	r := legend.Rectangle(dc)
	legendWidth := r.Max.X - r.Min.X
	legend.YOffs = -p.Title.TextStyle.FontExtents().Height

	legend.Draw(dc)
	dc = draw.Crop(dc, 0, -legendWidth-vg.Millimeter, 0, 0)
	p.Draw(dc)

	return &Figure{canvas: img}, nil
}

// Title composes the plot title, degrading gracefully when the dataset
// had no time axis.
func Title(meta usecase.PlotMeta) string {
	if meta.HasTime {
		return fmt.Sprintf("%s Trend (%s to %s)", meta.Variable, meta.Time.Start, meta.Time.End)
	}
	return fmt.Sprintf("%s Trend", meta.Variable)
}

// Caption composes the figure caption shown under the map.
func Caption(meta usecase.PlotMeta) string {
	if meta.HasTime {
		return fmt.Sprintf("%s linear trend, %s to %s (%s). Dashed box marks the analysis region.",
			meta.Variable, meta.Time.Start, meta.Time.End, meta.Units)
	}
	return fmt.Sprintf("%s linear trend (%s). Dashed box marks the analysis region.",
		meta.Variable, meta.Units)
}

// regionBox traces the analysis region as a dashed rectangle.
func regionBox(region domain.Region) (*plotter.Line, error) {
	pts := plotter.XYs{
		{X: region.LonMin, Y: region.LatMin},
		{X: region.LonMax, Y: region.LatMin},
		{X: region.LonMax, Y: region.LatMax},
		{X: region.LonMin, Y: region.LatMax},
		{X: region.LonMin, Y: region.LatMin},
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "region box")
	}
	line.LineStyle.Color = boxRed
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	return line, nil
}

// colorbarLegend builds a palette legend labeled at the extremes and
// midpoint.
func colorbarLegend(pal palette.Palette, minV, maxV float64) plot.Legend {
	legend := plot.NewLegend()
	thumbs := plotter.PaletteThumbnailers(pal)
	mid := len(thumbs) / 2
	for i := len(thumbs) - 1; i >= 0; i-- {
		switch i {
		case 0:
			legend.Add(fmt.Sprintf("%.3g", minV), thumbs[i])
		case mid:
			legend.Add(fmt.Sprintf("%.3g", minV+(maxV-minV)*float64(mid)/float64(len(thumbs)-1)), thumbs[i])
		case len(thumbs) - 1:
			legend.Add(fmt.Sprintf("%.3g", maxV), thumbs[i])
		default:
			legend.Add("", thumbs[i])
		}
	}
	return legend
}

func bounds(v []float64) (minV, maxV float64) {
	minV, maxV = v[0], v[0]
	for _, x := range v[1:] {
		if x < minV {
			minV = x
		}
		if x > maxV {
			maxV = x
		}
	}
	return minV, maxV
}
