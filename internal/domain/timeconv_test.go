package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCFTime(t *testing.T) {
	tests := []struct {
		name      string
		units     string
		wantUnit  string
		wantEpoch string
		wantErr   bool
	}{
		{name: "days", units: "days since 1850-01-01", wantUnit: "days", wantEpoch: "1850-01-01"},
		{name: "singular unit", units: "day since 1850-01-01", wantUnit: "days", wantEpoch: "1850-01-01"},
		{name: "hours with time", units: "hours since 2000-01-01 12:00:00", wantUnit: "hours", wantEpoch: "2000-01-01"},
		{name: "months", units: "months since 0850-01-15", wantUnit: "months", wantEpoch: "0850-01-15"},
		{name: "mixed case", units: "Days Since 1850-01-01", wantUnit: "days", wantEpoch: "1850-01-01"},
		{name: "not cf-like", units: "kelvin", wantErr: true},
		{name: "bad unit", units: "fortnights since 1850-01-01", wantErr: true},
		{name: "bad epoch", units: "days since yesterday", wantErr: true},
		{name: "empty", units: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cf, err := ParseCFTime(tc.units)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantUnit, cf.Unit)
			assert.Equal(t, tc.wantEpoch, cf.Epoch.Format("2006-01-02"))
		})
	}
}

func TestCFTimeDate(t *testing.T) {
	cf, err := ParseCFTime("days since 2000-01-01")
	require.NoError(t, err)

	assert.Equal(t, "2000-01-01", cf.Date(0).Format("2006-01-02"))
	assert.Equal(t, "2000-01-31", cf.Date(30).Format("2006-01-02"))
	assert.Equal(t, "2000-12-31", cf.Date(365).Format("2006-01-02"))
}

func TestCFTimeDateMillennium(t *testing.T) {
	// CESM Last Millennium axes count days from 0850; offsets near the
	// end of the record are far beyond what a single time.Duration holds.
	cf, err := ParseCFTime("days since 0850-01-01")
	require.NoError(t, err)

	assert.Equal(t, "0850-01-01", cf.Date(0).Format("2006-01-02"))
	assert.Equal(t, 1849, cf.Date(365000).Year())
	assert.True(t, cf.Date(200000).Before(cf.Date(365000)), "axis stays monotonic across the record")
	assert.InDelta(t, 1849.34, cf.Year(365000), 0.1)

	hourly, err := ParseCFTime("hours since 0850-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1849, hourly.Date(365000*24).Year())

	years := NumericYears([]float64{0, 200000, 365000}, "days since 0850-01-01")
	assert.Less(t, years[0], years[1])
	assert.Less(t, years[1], years[2])
}

func TestCFTimeYear(t *testing.T) {
	cf, err := ParseCFTime("days since 2001-01-01")
	require.NoError(t, err)

	assert.InDelta(t, 2001.0, cf.Year(0), 1e-9)
	// 2001 is not a leap year: mid-year lands at day 182.5.
	assert.InDelta(t, 2001.5, cf.Year(182.5), 1e-9)
	assert.InDelta(t, 2002.0, cf.Year(365), 1e-9)
}

func TestNumericYears(t *testing.T) {
	t.Run("months since epoch", func(t *testing.T) {
		got := NumericYears([]float64{0, 6, 12}, "months since 2000-01-01")
		require.Len(t, got, 3)
		assert.InDelta(t, 2000.0, got[0], 0.01)
		assert.InDelta(t, 2000.5, got[1], 0.01)
		assert.InDelta(t, 2001.0, got[2], 0.01)
	})

	t.Run("unresolvable units pass through", func(t *testing.T) {
		in := []float64{1.5, 2.5, 3.5}
		got := NumericYears(in, "model steps")
		assert.Equal(t, in, got)
	})

	t.Run("copy does not alias input", func(t *testing.T) {
		in := []float64{1, 2}
		got := NumericYears(in, "bogus")
		got[0] = 99
		assert.Equal(t, 1.0, in[0])
	})
}

func TestTimeLabel(t *testing.T) {
	assert.Equal(t, "1850-01-11", TimeLabel(10, "days since 1850-01-01"))
	assert.Equal(t, "42.5", TimeLabel(42.5, "unknown units"))
}
