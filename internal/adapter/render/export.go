package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot/vg/vgimg"

	"go.ngs.io/climate-trends/internal/config"
	"go.ngs.io/climate-trends/internal/domain"
	"go.ngs.io/climate-trends/internal/usecase"
)

// Writer renders trend figures and writes them into the save directory.
type Writer struct {
	saveDir string
	format  string
	coast   *Coastline
	logger  *slog.Logger
}

// NewWriter builds a figure writer; a configured coastline file is loaded
// once up front.
func NewWriter(cfg config.Config, logger *slog.Logger) (*Writer, error) {
	w := &Writer{
		saveDir: cfg.SaveDir,
		format:  cfg.Format,
		logger:  logger,
	}
	if cfg.CoastlinePath != "" {
		coast, err := LoadCoastline(cfg.CoastlinePath)
		if err != nil {
			return nil, err
		}
		w.coast = coast
	}
	return w, nil
}

// ExportTrend renders the field and writes the figure, returning the path
// of the written file.
func (w *Writer) ExportTrend(field *domain.TrendField, meta usecase.PlotMeta) (string, error) {
	fig, err := TrendMap(field, meta, w.coast)
	if err != nil {
		return "", err
	}
	w.logger.Debug("figure caption", "caption", Caption(meta))
	return SaveFigure(fig, meta.Variable, meta.Scenario, "trend", w.saveDir, w.format)
}

// SaveFigure writes a rendered figure as
// {variable}_{scenario}_{kind}.{format} under saveDir, creating the
// directory when needed. An existing file of the same name is replaced.
func SaveFigure(fig *Figure, variable, scenario, kind, saveDir, format string) (string, error) {
	switch format {
	case "png", "jpg", "jpeg", "tiff":
	default:
		return "", errors.Errorf("unsupported figure format %q", format)
	}

	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create save directory %s", saveDir)
	}

	name := fmt.Sprintf("%s_%s_%s.%s", variable, scenario, kind, format)
	path := filepath.Join(saveDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	defer func() { _ = f.Close() }()

	switch format {
	case "png":
		c := vgimg.PngCanvas{Canvas: fig.canvas}
		_, err = c.WriteTo(f)
	case "jpg", "jpeg":
		c := vgimg.JpegCanvas{Canvas: fig.canvas}
		_, err = c.WriteTo(f)
	case "tiff":
		c := vgimg.TiffCanvas{Canvas: fig.canvas}
		_, err = c.WriteTo(f)
	}
	if err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
