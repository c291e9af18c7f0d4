package predict

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/interp"
	"github.com/slr/slrgo/internal/lighttime"
	"github.com/slr/slrgo/internal/timescale"
	"github.com/slr/slrgo/internal/transform"
)

// circularOrbit places the target on an equatorial circle of the given
// radius, swept at a LEO-like angular rate.
func circularOrbit(radius float64) func(t float64) [3]float64 {
	w := 2 * math.Pi / 5700 // ~95 minute period
	return func(t float64) [3]float64 {
		return [3]float64{radius * math.Cos(w*t), radius * math.Sin(w*t), 0}
	}
}

func buildTable(t *testing.T, n int, interval float64, fn func(t float64) [3]float64) *cpf.Ephemeris {
	t.Helper()

	var b strings.Builder
	b.WriteString("H1 CPF 1 SGF 2016 12 30 10 8661 starlette\n")
	b.WriteString("H2 7501001 1134 7646 2016 12 30 0 0 0 2017 1 2 0 0 0 300 1 1 0 0 0\n")
	for i := 0; i < n; i++ {
		s := float64(i) * interval
		mjd := 57752
		sod := s
		for sod >= 86400 {
			sod -= 86400
			mjd++
		}
		p := fn(s)
		fmt.Fprintf(&b, "10 0 %d %.6f 0 %.6f %.6f %.6f\n", mjd, sod, p[0], p[1], p[2])
	}
	b.WriteString("99\n")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tables, err := cpf.Parse(strings.NewReader(b.String()), logger)
	require.NoError(t, err)
	return tables[0]
}

// buildLeapTable tabulates across the 2016-12-31 leap-second insertion.
// Samples start at 23:55:00 on MJD 57753 (an 86401-second day) and run at
// 60-second spacing into MJD 57754.
func buildLeapTable(t *testing.T, n int, fn func(t float64) [3]float64) *cpf.Ephemeris {
	t.Helper()

	var b strings.Builder
	b.WriteString("H1 CPF 1 SGF 2016 12 31 10 8662 starlette\n")
	b.WriteString("H2 7501001 1134 7646 2016 12 31 0 0 0 2017 1 3 0 0 0 60 1 1 0 0 0\n")
	for i := 0; i < n; i++ {
		s := float64(i) * 60
		mjd, leap := 57753, 0
		sod := 86100 + s
		if sod > 86400 {
			mjd, leap = 57754, 1
			sod -= 86401
		}
		p := fn(s)
		fmt.Fprintf(&b, "10 0 %d %.6f %d %.6f %.6f %.6f\n", mjd, sod, leap, p[0], p[1], p[2])
	}
	b.WriteString("99\n")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tables, err := cpf.Parse(strings.NewReader(b.String()), logger)
	require.NoError(t, err)
	return tables[0]
}

func zimmerwald() transform.StationPosition {
	return transform.StationPosition{
		Type: transform.Geodetic, C1: 7.465222, C2: 46.877230, C3: 951.33,
	}
}

func newGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	ts := timescale.New(timescale.DefaultLeapSeconds())
	in := interp.New(interp.Options{})
	solver := lighttime.NewSolver(in, lighttime.Options{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGenerator(ts, in, solver, cfg, logger)
}

func TestGenerateSeries(t *testing.T) {
	e := buildTable(t, 40, 300, circularOrbit(7.0e6))
	g := newGenerator(t, Config{})

	series, err := g.Generate(context.Background(), e, Request{
		Station:     zimmerwald(),
		Start:       "2016-12-30 01:00:00",
		End:         "2016-12-30 02:00:00",
		StepSeconds: 60,
		Mode:        lighttime.Geometric,
	})
	require.NoError(t, err)

	// 3600 s span at 60 s spacing, both endpoints included.
	assert.Len(t, series.Records, 61)
	assert.Zero(t, series.Skipped)
	assert.Equal(t, "starlette", series.Target)
	assert.Equal(t, string(lighttime.Geometric), series.Mode)

	for _, rec := range series.Records {
		assert.GreaterOrEqual(t, rec.AzimuthDeg, 0.0)
		assert.Less(t, rec.AzimuthDeg, 360.0)
		assert.GreaterOrEqual(t, rec.ElevationDeg, -90.0)
		assert.LessOrEqual(t, rec.ElevationDeg, 90.0)
		assert.Greater(t, rec.RangeM, 0.0)
		assert.Greater(t, rec.TOFSeconds, 0.0)
	}
}

func TestGenerateOrderedWithWorkers(t *testing.T) {
	e := buildTable(t, 40, 300, circularOrbit(7.0e6))
	g := newGenerator(t, Config{Workers: 8})
	ts := timescale.New(timescale.DefaultLeapSeconds())

	series, err := g.Generate(context.Background(), e, Request{
		Station:     zimmerwald(),
		Start:       "2016-12-30 01:00:00",
		End:         "2016-12-30 02:30:00",
		StepSeconds: 15,
		Mode:        lighttime.Apparent,
	})
	require.NoError(t, err)
	require.NotEmpty(t, series.Records)

	for i := 1; i < len(series.Records); i++ {
		dt := ts.DiffSeconds(series.Records[i].Receive, series.Records[i-1].Receive)
		assert.InDelta(t, 15.0, dt, 1e-6, "records must come back in step order")
	}
}

func TestGenerateSkipsEdgeSteps(t *testing.T) {
	// Table spans SoD 0..11700; requesting through 14400 runs past the end
	// plus the one-interval margin. Those steps are skipped, not fatal.
	e := buildTable(t, 40, 300, circularOrbit(7.0e6))
	g := newGenerator(t, Config{})

	series, err := g.Generate(context.Background(), e, Request{
		Station:     zimmerwald(),
		Start:       "2016-12-30 03:00:00",
		End:         "2016-12-30 04:00:00",
		StepSeconds: 60,
		Mode:        lighttime.Geometric,
	})
	require.NoError(t, err)

	assert.Greater(t, series.Skipped, 0)
	assert.NotEmpty(t, series.Records)
	assert.Equal(t, 61, len(series.Records)+series.Skipped)
	assert.LessOrEqual(t, len(series.SkippedEpochs), maxReportedSkips)
}

func TestGenerateAcrossLeapSecond(t *testing.T) {
	e := buildLeapTable(t, 12, circularOrbit(7.0e6))
	g := newGenerator(t, Config{})
	ts := timescale.New(timescale.DefaultLeapSeconds())

	series, err := g.Generate(context.Background(), e, Request{
		Station:     zimmerwald(),
		Start:       "2016-12-31 23:59:00",
		End:         "2017-01-01 00:01:00",
		StepSeconds: 10,
		Mode:        lighttime.Geometric,
	})
	require.NoError(t, err)

	// The span is 121 elapsed seconds: 60 before midnight, the inserted
	// second, and 60 after.
	require.Len(t, series.Records, 13)
	assert.Zero(t, series.Skipped)

	var sawLeap bool
	for i, rec := range series.Records {
		if strings.Contains(rec.ReceiveUTC, "23:59:60") {
			sawLeap = true
		}
		if i > 0 {
			dt := ts.DiffSeconds(rec.Receive, series.Records[i-1].Receive)
			assert.InDelta(t, 10.0, dt, 1e-6)
		}
	}
	assert.True(t, sawLeap, "series must step through 23:59:60")
}

func TestGenerateInvalidRequest(t *testing.T) {
	e := buildTable(t, 40, 300, circularOrbit(7.0e6))
	g := newGenerator(t, Config{})

	_, err := g.Generate(context.Background(), e, Request{
		Station: zimmerwald(),
		Start:   "2016-12-30 01:00:00",
		End:     "2016-12-30 02:00:00",
		Mode:    lighttime.Geometric,
	})
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = g.Generate(context.Background(), e, Request{
		Station:     zimmerwald(),
		Start:       "2016-12-30 02:00:00",
		End:         "2016-12-30 01:00:00",
		StepSeconds: 60,
		Mode:        lighttime.Geometric,
	})
	assert.ErrorIs(t, err, ErrInvalidStep)

	_, err = g.Generate(context.Background(), e, Request{
		Station:     zimmerwald(),
		Start:       "2016-12-30 01:00:00",
		End:         "2016-12-30 02:00:00",
		StepSeconds: 60,
		Mode:        lighttime.Mode("instant"),
	})
	assert.Error(t, err)

	_, err = g.Generate(context.Background(), e, Request{
		Station:     transform.StationPosition{Type: transform.Geodetic, C1: math.NaN(), C2: 46.9, C3: 100},
		Start:       "2016-12-30 01:00:00",
		End:         "2016-12-30 02:00:00",
		StepSeconds: 60,
		Mode:        lighttime.Geometric,
	})
	assert.ErrorIs(t, err, transform.ErrInvalidCoordinate)
}

func TestGenerateCancelled(t *testing.T) {
	e := buildTable(t, 40, 300, circularOrbit(7.0e6))
	g := newGenerator(t, Config{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	series, err := g.Generate(ctx, e, Request{
		Station:     zimmerwald(),
		Start:       "2016-12-30 01:00:00",
		End:         "2016-12-30 02:00:00",
		StepSeconds: 1,
		Mode:        lighttime.Geometric,
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, series)
	assert.Less(t, len(series.Records), 3601)
}

func TestGenerateXYZ(t *testing.T) {
	orbit := circularOrbit(7.0e6)
	e := buildTable(t, 40, 300, orbit)
	g := newGenerator(t, Config{})

	records, skipped, err := g.GenerateXYZ(context.Background(), e, "2016-12-30 01:00:00", "2016-12-30 01:10:00", 30)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, records, 21)

	// Positions must reproduce the tabulated orbit to interpolation accuracy.
	for i, rec := range records {
		want := orbit(3600 + float64(i)*30)
		for k := 0; k < 3; k++ {
			assert.InDelta(t, want[k], rec.Position[k], 0.05)
		}
	}

	_, _, err = g.GenerateXYZ(context.Background(), e, "2016-12-30 01:00:00", "2016-12-30 01:10:00", 0)
	assert.ErrorIs(t, err, ErrInvalidStep)
}
