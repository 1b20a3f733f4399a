// Package netcdf loads gridded climate datasets from NetCDF files into
// the domain grid model.
package netcdf

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/pkg/errors"

	"go.ngs.io/climate-trends/internal/domain"
)

// ErrVarNotFound is returned when the requested data variable is absent
// from a dataset.
var ErrVarNotFound = errors.New("data variable not found")

// Axis roles in the canonical value layout.
const (
	roleMember = iota
	roleTime
	roleLat
	roleLon
)

// Coordinate name candidates, tried in order.
var (
	latNames    = []string{"lat", "latitude", "y"}
	lonNames    = []string{"lon", "longitude", "x"}
	timeNames   = []string{"time"}
	memberNames = []string{"member", "ensemble", "realization"}
)

// Store reads scenario datasets from a data directory. One file per
// scenario, named {scenario}.nc.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Path returns the file path for a scenario.
func (s *Store) Path(scenario string) string {
	return filepath.Join(s.dataDir, scenario+".nc")
}

// Load opens the scenario's file and reads one data variable into a
// domain grid. An empty varName selects the first data variable in the
// file. Any open or read error is returned wrapped; callers treat it as
// a skippable load failure.
func (s *Store) Load(scenario, varName string) (*domain.Grid, error) {
	path := s.Path(scenario)
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = ds.Close() }()

	lat, latDim, err := readCoord(ds, latNames)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: latitude axis", path)
	}
	lon, lonDim, err := readCoord(ds, lonNames)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: longitude axis", path)
	}

	// Time is optional; static fields load with an empty axis.
	var timeVals []float64
	var timeUnits, timeDim string
	if tv, td, err := readCoord(ds, timeNames); err == nil {
		timeVals, timeDim = tv, td
		if v, err := ds.Var(td); err == nil {
			timeUnits, _ = attrString(v, "units")
		}
	}

	v, err := findDataVar(ds, varName, latDim, lonDim)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	name, err := v.Name()
	if err != nil {
		return nil, errors.Wrap(err, "variable name")
	}

	grid := &domain.Grid{
		Var:       name,
		Time:      timeVals,
		TimeUnits: timeUnits,
		Lat:       lat,
		Lon:       lon,
	}
	grid.Units, _ = attrString(v, "units")

	if err := readValues(v, grid, timeDim, latDim, lonDim); err != nil {
		return nil, errors.Wrapf(err, "%s: read %s", path, name)
	}
	if err := grid.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return grid, nil
}

// readCoord reads the first present 1-D coordinate variable from the
// candidate list, returning its values and dimension name.
func readCoord(ds netcdf.Dataset, candidates []string) ([]float64, string, error) {
	for _, name := range candidates {
		v, err := ds.Var(name)
		if err != nil {
			continue
		}
		vals, err := readFloat64Var(v)
		if err != nil {
			continue
		}
		return vals, name, nil
	}
	return nil, "", errors.Errorf("coordinate variable not found (tried: %v)", candidates)
}

// findDataVar locates the requested data variable, or the first variable
// that spans the spatial grid when no name is given.
func findDataVar(ds netcdf.Dataset, varName, latDim, lonDim string) (netcdf.Var, error) {
	if varName != "" {
		v, err := ds.Var(varName)
		if err != nil {
			return netcdf.Var{}, errors.Wrapf(ErrVarNotFound, "%s", varName)
		}
		return v, nil
	}

	n, err := ds.NVars()
	if err != nil {
		return netcdf.Var{}, errors.Wrap(err, "count variables")
	}
	for i := 0; i < n; i++ {
		v := ds.VarN(i)
		name, err := v.Name()
		if err != nil {
			continue
		}
		if isCoordName(name) {
			continue
		}
		if hasDims(v, latDim, lonDim) {
			return v, nil
		}
	}
	return netcdf.Var{}, errors.Wrap(ErrVarNotFound, "no data variable spans the spatial grid")
}

func isCoordName(name string) bool {
	for _, set := range [][]string{latNames, lonNames, timeNames, memberNames} {
		for _, c := range set {
			if strings.EqualFold(name, c) {
				return true
			}
		}
	}
	return false
}

func hasDims(v netcdf.Var, want ...string) bool {
	dims, err := v.Dims()
	if err != nil {
		return false
	}
	have := make(map[string]bool, len(dims))
	for _, d := range dims {
		if n, err := d.Name(); err == nil {
			have[n] = true
		}
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// readValues reads the data variable in its stored dimension order and
// remaps it into the canonical [member][time][lat][lon] layout.
func readValues(v netcdf.Var, grid *domain.Grid, timeDim, latDim, lonDim string) error {
	dims, err := v.Dims()
	if err != nil {
		return errors.Wrap(err, "get dimensions")
	}

	shape := make([]int, len(dims))
	roles := make([]int, len(dims))
	seen := make(map[int]bool)
	for i, d := range dims {
		n, err := d.Len()
		if err != nil {
			return errors.Wrap(err, "dimension length")
		}
		shape[i] = int(n)

		name, err := d.Name()
		if err != nil {
			return errors.Wrap(err, "dimension name")
		}
		switch {
		case name == latDim:
			roles[i] = roleLat
		case name == lonDim:
			roles[i] = roleLon
		case timeDim != "" && name == timeDim:
			roles[i] = roleTime
		case isMemberName(name):
			roles[i] = roleMember
			grid.Members = shape[i]
		default:
			return errors.Errorf("unexpected dimension %q on %s", name, grid.Var)
		}
		if seen[roles[i]] {
			return errors.Errorf("duplicate dimension role on %s", grid.Var)
		}
		seen[roles[i]] = true
	}
	if !seen[roleLat] || !seen[roleLon] {
		return errors.Errorf("%s does not span lat and lon", grid.Var)
	}
	if grid.HasTime() && !seen[roleTime] {
		return errors.Errorf("%s does not span the time axis", grid.Var)
	}

	flat, err := readFlat(v, total(shape))
	if err != nil {
		return err
	}
	if fv, ok := fillValue(v); ok {
		for i, x := range flat {
			if x == fv {
				flat[i] = math.NaN()
			}
		}
	}

	// Canonical sizes; absent axes have extent 1.
	canon := [4]int{1, grid.NTime(), len(grid.Lat), len(grid.Lon)}
	if grid.HasMember() {
		canon[roleMember] = grid.Members
	}

	// Strides of the canonical layout.
	var canonStride [4]int
	canonStride[roleLon] = 1
	canonStride[roleLat] = canon[roleLon]
	canonStride[roleTime] = canon[roleLat] * canonStride[roleLat]
	canonStride[roleMember] = canon[roleTime] * canonStride[roleTime]

	out := make([]float64, len(flat))
	idx := make([]int, len(shape))
	for k, x := range flat {
		// Decompose the source flat index.
		rem := k
		for i := len(shape) - 1; i >= 0; i-- {
			idx[i] = rem % shape[i]
			rem /= shape[i]
		}
		dst := 0
		for i, role := range roles {
			dst += idx[i] * canonStride[role]
		}
		out[dst] = x
	}
	grid.Values = out
	return nil
}

func isMemberName(name string) bool {
	for _, c := range memberNames {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}

func total(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// readFlat reads a variable of any supported numeric type widened to
// float64.
func readFlat(v netcdf.Var, n int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, errors.Wrap(err, "get var type")
	}
	switch t {
	case netcdf.DOUBLE:
		out := make([]float64, n)
		if err := v.ReadFloat64s(out); err != nil {
			return nil, errors.Wrap(err, "read float64s")
		}
		return out, nil
	case netcdf.FLOAT:
		tmp := make([]float32, n)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, errors.Wrap(err, "read float32s")
		}
		out := make([]float64, n)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, n)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, errors.Wrap(err, "read int32s")
		}
		out := make([]float64, n)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, n)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, errors.Wrap(err, "read int16s")
		}
		out := make([]float64, n)
		for i, x := range tmp {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, errors.Errorf("unsupported var type: %v", t)
	}
}

// readFloat64Var reads a 1-D coordinate variable widened to float64.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, errors.Wrap(err, "get dimensions")
	}
	if len(dims) != 1 {
		return nil, errors.Errorf("expected 1D variable, got %dD", len(dims))
	}
	n, err := dims[0].Len()
	if err != nil {
		return nil, errors.Wrap(err, "dimension length")
	}
	return readFlat(v, int(n))
}

// fillValue returns the _FillValue or missing_value attribute if present.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		n, err := a.Len()
		if err != nil || n == 0 {
			continue
		}
		buf64 := make([]float64, 1)
		if err := a.ReadFloat64s(buf64); err == nil {
			return buf64[0], true
		}
		buf32 := make([]float32, 1)
		if err := a.ReadFloat32s(buf32); err == nil {
			return float64(buf32[0]), true
		}
		bufi := make([]int32, 1)
		if err := a.ReadInt32s(bufi); err == nil {
			return float64(bufi[0]), true
		}
	}
	return 0, false
}

// attrString reads a text attribute.
func attrString(v netcdf.Var, name string) (string, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", false
	}
	return strings.TrimRight(string(buf), "\x00"), true
}
