package interp

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slr/slrgo/internal/cpf"
)

// buildTable parses a synthetic CPF document whose positions follow fn(t),
// with t in seconds from the first sample.
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
	require.Len(t, tables, 1)
	return tables[0]
}

func cubic(t float64) [3]float64 {
	// Small coefficients keep values inside the fixed-point print format.
	return [3]float64{
		1.0e6 + 800*t - 0.02*t*t + 1.0e-6*t*t*t,
		-2.0e6 + 500*t + 0.01*t*t,
		3.0e6 - 300*t + 0.005*t*t - 2.0e-6*t*t*t,
	}
}

func TestExactAtSampleEpochs(t *testing.T) {
	e := buildTable(t, 20, 300, cubic)
	in := New(Options{})

	times := e.Times()
	for i, tq := range times {
		got, err := in.Position(e, tq)
		require.NoError(t, err)
		assert.Equal(t, e.Samples[i].Position, got, "sample %d", i)
	}
}

func TestReproducesPolynomial(t *testing.T) {
	// A degree-9 interpolant reproduces a cubic everywhere in the span.
	e := buildTable(t, 20, 300, cubic)
	in := New(Options{})

	t0 := e.Times()[0]
	for _, dt := range []float64{17, 450.5, 1234.25, 2999.9, 5100} {
		got, err := in.Position(e, t0+dt)
		require.NoError(t, err)
		want := cubic(dt)
		for i := 0; i < 3; i++ {
			assert.InDelta(t, want[i], got[i], 1e-4, "axis %d at dt=%v", i, dt)
		}
	}
}

func TestVelocityEstimate(t *testing.T) {
	e := buildTable(t, 20, 300, cubic)
	in := New(Options{})

	t0 := e.Times()[0]
	dt := 1500.0
	_, vel, err := in.PositionVelocity(e, t0+dt)
	require.NoError(t, err)

	// Analytic derivative of the cubic above.
	want := [3]float64{
		800 - 0.04*dt + 3e-6*dt*dt,
		500 + 0.02*dt,
		-300 + 0.01*dt - 6e-6*dt*dt,
	}
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], vel[i], 1e-3, "axis %d", i)
	}
}

func TestEdgeWindowsShiftNotFail(t *testing.T) {
	e := buildTable(t, 12, 300, cubic)
	in := New(Options{})
	times := e.Times()

	// Queries within the first and last half-window use a one-sided window.
	for _, tq := range []float64{times[0] + 10, times[1] + 50, times[len(times)-1] - 10} {
		if _, err := in.Position(e, tq); err != nil {
			t.Errorf("Position at %v failed: %v", tq, err)
		}
	}

	// Bounded extrapolation inside the default one-interval margin.
	if _, err := in.Position(e, times[0]-250); err != nil {
		t.Errorf("extrapolation inside margin failed: %v", err)
	}
	if _, err := in.Position(e, times[len(times)-1]+250); err != nil {
		t.Errorf("extrapolation inside margin failed: %v", err)
	}
}

func TestOutOfRangeBeyondMargin(t *testing.T) {
	e := buildTable(t, 12, 300, cubic)
	in := New(Options{})
	times := e.Times()

	_, err := in.Position(e, times[0]-301)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = in.Position(e, times[len(times)-1]+301)
	assert.ErrorIs(t, err, ErrOutOfRange)

	// A tighter configured margin narrows the valid span.
	tight := New(Options{MarginSeconds: 1})
	_, err = tight.Position(e, times[0]-2)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestTooFewSamples(t *testing.T) {
	e := buildTable(t, 9, 300, cubic)
	in := New(Options{})

	_, err := in.Position(e, e.Times()[4])
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSmoothAcrossWindowBoundaries(t *testing.T) {
	// Positions from a smooth orbit-like curve: interpolation error stays
	// tiny when the window shifts between adjacent queries.
	orbit := func(t float64) [3]float64 {
		w := 2 * math.Pi / 6000
		return [3]float64{
			7.0e6 * math.Cos(w*t),
			7.0e6 * math.Sin(w*t),
			1.0e6 * math.Sin(w*t/2),
		}
	}
	e := buildTable(t, 40, 300, orbit)
	in := New(Options{})

	t0 := e.Times()[0]
	for dt := 1500.0; dt < 9000; dt += 37.5 {
		got, err := in.Position(e, t0+dt)
		require.NoError(t, err)
		want := orbit(dt)
		for i := 0; i < 3; i++ {
			assert.InDelta(t, want[i], got[i], 0.01, "axis %d at dt=%v", i, dt)
		}
	}
}
