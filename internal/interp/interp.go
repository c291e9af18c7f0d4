// Package interp evaluates a CPF ephemeris table at arbitrary epochs using
// 10-point (degree 9) Lagrange polynomial interpolation, applied
// independently per coordinate axis on the table's leap-continuous time
// axis.
package interp

import (
	"errors"
	"fmt"
	"sort"

	"github.com/slr/slrgo/internal/cpf"
)

// ErrOutOfRange is returned when a query epoch lies beyond the table span
// plus the extrapolation margin, or when the table is too short to fit an
// interpolation window.
var ErrOutOfRange = errors.New("epoch out of interpolation range")

// Options configures an Interpolator.
type Options struct {
	// Points is the window size. Zero means 10 (degree 9).
	Points int
	// MarginSeconds bounds extrapolation beyond the table's first and last
	// epochs. Zero means one nominal tabulation interval of the table.
	MarginSeconds float64
}

// Interpolator evaluates ephemeris tables. Stateless apart from its
// configuration; safe for concurrent use.
type Interpolator struct {
	points int
	margin float64
}

// New creates an Interpolator from opts.
func New(opts Options) *Interpolator {
	points := opts.Points
	if points <= 0 {
		points = 10
	}
	return &Interpolator{points: points, margin: opts.MarginSeconds}
}

// Position returns the interpolated target position in meters at the query
// time tq on the table's continuous axis (see Ephemeris.ContinuousTime).
func (in *Interpolator) Position(e *cpf.Ephemeris, tq float64) ([3]float64, error) {
	w, err := in.window(e, tq)
	if err != nil {
		return [3]float64{}, err
	}
	return w.eval(tq), nil
}

// PositionVelocity returns the interpolated position in meters and an
// estimate of its time derivative in meters per second, obtained by central
// differencing of the interpolant within the same window.
func (in *Interpolator) PositionVelocity(e *cpf.Ephemeris, tq float64) (pos, vel [3]float64, err error) {
	w, err := in.window(e, tq)
	if err != nil {
		return pos, vel, err
	}
	pos = w.eval(tq)

	const h = 1.0 // seconds
	ahead := w.eval(tq + h)
	behind := w.eval(tq - h)
	for i := 0; i < 3; i++ {
		vel[i] = (ahead[i] - behind[i]) / (2 * h)
	}
	return pos, vel, nil
}

// window selects the interpolation nodes bracketing tq as evenly as
// possible, shifting to the table boundary when the query lies in the first
// or last half-window.
func (in *Interpolator) window(e *cpf.Ephemeris, tq float64) (*stencil, error) {
	times := e.Times()
	n := len(times)
	if n < in.points {
		return nil, fmt.Errorf("%w: table has %d samples, interpolation needs %d", ErrOutOfRange, n, in.points)
	}

	margin := in.margin
	if margin <= 0 {
		margin = e.Interval
	}
	if tq < times[0]-margin || tq > times[n-1]+margin {
		return nil, fmt.Errorf("%w: query %.3fs outside table span [%.3f, %.3f] with margin %.0fs",
			ErrOutOfRange, tq, times[0], times[n-1], margin)
	}

	idx := sort.SearchFloat64s(times, tq)
	start := idx - in.points/2
	if start < 0 {
		start = 0
	}
	if start > n-in.points {
		start = n - in.points
	}

	return newStencil(times[start:start+in.points], e.Samples[start:start+in.points]), nil
}

// stencil holds one interpolation window in barycentric form. Nodes are
// recentered on the first node so the basis is formed from small time
// differences.
type stencil struct {
	t0    float64
	nodes []float64
	pos   [][3]float64
	wts   []float64
}

func newStencil(times []float64, samples []cpf.Sample) *stencil {
	k := len(times)
	s := &stencil{
		t0:    times[0],
		nodes: make([]float64, k),
		pos:   make([][3]float64, k),
		wts:   make([]float64, k),
	}
	for i := 0; i < k; i++ {
		s.nodes[i] = times[i] - s.t0
		s.pos[i] = samples[i].Position
	}
	for j := 0; j < k; j++ {
		w := 1.0
		for m := 0; m < k; m++ {
			if m != j {
				w *= s.nodes[j] - s.nodes[m]
			}
		}
		s.wts[j] = 1 / w
	}
	return s
}

// eval computes the interpolant at tq using the second barycentric form,
// which reproduces node values exactly.
func (s *stencil) eval(tq float64) [3]float64 {
	t := tq - s.t0

	var num [3]float64
	var den float64
	for j := range s.nodes {
		d := t - s.nodes[j]
		if d == 0 {
			return s.pos[j]
		}
		q := s.wts[j] / d
		den += q
		for i := 0; i < 3; i++ {
			num[i] += q * s.pos[j][i]
		}
	}

	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = num[i] / den
	}
	return out
}
