package usecase

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"go.ngs.io/climate-trends/internal/config"
	"go.ngs.io/climate-trends/internal/domain"
)

// Loader opens one scenario dataset. An empty variable selects the first
// data variable in the file.
type Loader interface {
	Load(scenario, variable string) (*domain.Grid, error)
	Path(scenario string) string
}

// PlotMeta carries everything the renderer needs besides the trend field.
type PlotMeta struct {
	Variable string
	Scenario string
	Units    string // Variable units attribute, "Unknown" when absent.
	Time     domain.TimeInfo
	HasTime  bool
	Region   domain.Region
	Colormap string
}

// Exporter renders a trend field to a map figure and writes it, returning
// the path of the written file.
type Exporter interface {
	ExportTrend(field *domain.TrendField, meta PlotMeta) (string, error)
}

// Runner executes the analysis pipeline for every (scenario, variable)
// pair, strictly sequentially.
type Runner struct {
	cfg      config.Config
	loader   Loader
	exporter Exporter
	logger   *slog.Logger
	clock    clockwork.Clock
}

// NewRunner wires a pipeline runner.
func NewRunner(cfg config.Config, loader Loader, exporter Exporter, logger *slog.Logger, clock clockwork.Clock) *Runner {
	return &Runner{
		cfg:      cfg,
		loader:   loader,
		exporter: exporter,
		logger:   logger,
		clock:    clock,
	}
}

// Run processes all configured pairs. A dataset that fails to load is
// logged and skipped; any later-stage failure aborts the run and is
// returned to the caller.
func (r *Runner) Run(ctx context.Context) error {
	start := r.clock.Now()
	r.logger.Info("analysis run started", "time", start.Format("2006-01-02 15:04:05"))

	variables := r.cfg.Variables
	if len(variables) == 0 {
		// Empty selection: analyze the first data variable of each file.
		variables = []string{""}
	}

	for _, scenario := range r.cfg.Scenarios {
		for _, variable := range variables {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "run cancelled")
			}
			if err := r.runPair(scenario, variable); err != nil {
				return err
			}
		}
	}

	end := r.clock.Now()
	r.logger.Info("analysis run finished",
		"time", end.Format("2006-01-02 15:04:05"),
		"elapsed", end.Sub(start).String(),
	)
	return nil
}

// runPair executes one load-reduce-aggregate-fit-render-export iteration.
// The dataset handle lives only for the duration of this call.
func (r *Runner) runPair(scenario, variable string) error {
	path := r.loader.Path(scenario)
	grid, err := r.loader.Load(scenario, variable)
	if err != nil {
		// The only recovered error class: report and skip the pair.
		r.logger.Error("failed to load dataset", "path", path, "error", err)
		return nil
	}
	logger := r.logger.With("scenario", scenario, "variable", grid.Var)
	logger.Info("dataset loaded", "path", path, "units", orUnknown(grid.Units))

	info, hasTime := InspectTime(grid)
	if hasTime {
		logger.Info("time axis detected", "start", info.Start, "end", info.End, "units", info.Units)
		years := domain.NumericYears(grid.Time, grid.TimeUnits)
		logger.Info("time range",
			"start_year", years[0],
			"end_year", years[len(years)-1],
			"step_months", StepMonths(years),
		)
	} else {
		logger.Warn("no time axis found in dataset")
	}

	if grid.HasMember() {
		logger.Info("averaging ensemble members", "members", grid.Members)
	} else {
		logger.Info("no ensemble axis, using data as-is")
	}
	reduced := ReduceEnsemble(grid)

	series := RegionalMean(reduced, r.cfg.Region)
	if series.Empty() {
		logger.Warn("region does not intersect dataset extent",
			"lat_min", r.cfg.Region.LatMin, "lat_max", r.cfg.Region.LatMax,
			"lon_min", r.cfg.Region.LonMin, "lon_max", r.cfg.Region.LonMax,
		)
	} else {
		logger.Info("regional mean series computed", "samples", len(series.Values))
	}

	field, err := LinearTrend(reduced)
	if err != nil {
		return errors.Wrapf(err, "compute trend for %s in %s", grid.Var, scenario)
	}
	logger.Info("trend computed", "missing_cells", field.MissingCount())

	meta := PlotMeta{
		Variable: grid.Var,
		Scenario: scenario,
		Units:    orUnknown(grid.Units),
		Time:     info,
		HasTime:  hasTime,
		Region:   r.cfg.Region,
		Colormap: r.cfg.Colormap,
	}
	out, err := r.exporter.ExportTrend(field, meta)
	if err != nil {
		return errors.Wrapf(err, "export trend figure for %s in %s", grid.Var, scenario)
	}
	logger.Info("figure saved", "path", out)
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
