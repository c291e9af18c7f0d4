// Package lighttime reconciles laser pulse propagation delay with target
// motion. The transmit time, the target position at reflection, and the
// receive time are mutually dependent; each leg is resolved by a small
// fixed-point iteration over the ephemeris interpolant.
package lighttime

import (
	"errors"
	"fmt"
	"math"

	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/interp"
	"github.com/slr/slrgo/internal/timescale"
	"github.com/slr/slrgo/internal/transform"
)

// SpeedOfLight in vacuum, m/s.
const SpeedOfLight = 299792458.0

// ErrNoConvergence is returned when the fixed-point iteration fails to
// settle within the configured iteration cap.
var ErrNoConvergence = errors.New("light-time iteration did not converge")

// Mode selects how the propagation delay is reported.
type Mode string

const (
	// Geometric assumes the transmit direction coincides with the receive
	// direction; only the instantaneous reflection geometry is solved.
	Geometric Mode = "geometric"
	// Apparent solves the downlink and uplink legs separately and reports
	// the angular offset between receive and transmit directions.
	Apparent Mode = "apparent"
)

// Options configures a Solver. Zero values select the defaults.
type Options struct {
	ToleranceSeconds float64 // convergence tolerance on light time (default 1e-9)
	MaxIterations    int     // iteration cap per leg (default 10)
}

// Solver resolves pointing solutions against an ephemeris table.
// Safe for concurrent use.
type Solver struct {
	interp  *interp.Interpolator
	tol     float64
	maxIter int
}

// NewSolver creates a Solver that interpolates with in.
func NewSolver(in *interp.Interpolator, opts Options) *Solver {
	tol := opts.ToleranceSeconds
	if tol <= 0 {
		tol = 1e-9
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 10
	}
	return &Solver{interp: in, tol: tol, maxIter: maxIter}
}

// Solution is one resolved pointing. In apparent mode the azimuth and
// elevation are the transmit-time direction and DeltaAz/DeltaEl hold the
// receive-minus-transmit angular offset; in geometric mode the deltas are
// zero.
type Solution struct {
	Receive      timescale.Epoch
	AzimuthDeg   float64
	ElevationDeg float64
	RangeM       float64
	TOFSeconds   float64
	DeltaAzDeg   float64
	DeltaElDeg   float64
}

// Solve computes the pointing solution for a pulse received at the station
// at the given epoch. Interpolation failures near the table boundary
// propagate as interp.ErrOutOfRange.
func (s *Solver) Solve(e *cpf.Ephemeris, sta transform.Station, receive timescale.Epoch, mode Mode) (Solution, error) {
	tq := e.ContinuousTime(receive)

	switch mode {
	case Geometric:
		pos, r, _, err := s.leg(e, sta, tq, -1)
		if err != nil {
			return Solution{}, err
		}
		la := transform.ECEFToLookAngles(sta, pos)
		return Solution{
			Receive:      receive,
			AzimuthDeg:   la.AzimuthDeg,
			ElevationDeg: la.ElevationDeg,
			RangeM:       r,
			TOFSeconds:   2 * r / SpeedOfLight,
		}, nil

	case Apparent:
		// Downlink: where the target was when the received pulse bounced.
		posRx, _, _, err := s.leg(e, sta, tq, -1)
		if err != nil {
			return Solution{}, err
		}
		// Uplink: where the target will be when a pulse transmitted now
		// arrives, which fixes the required transmit direction.
		posTx, rTx, _, err := s.leg(e, sta, tq, +1)
		if err != nil {
			return Solution{}, err
		}

		laTx := transform.ECEFToLookAngles(sta, posTx)
		laRx := transform.ECEFToLookAngles(sta, posRx)
		return Solution{
			Receive:      receive,
			AzimuthDeg:   laTx.AzimuthDeg,
			ElevationDeg: laTx.ElevationDeg,
			RangeM:       rTx,
			TOFSeconds:   2 * rTx / SpeedOfLight,
			DeltaAzDeg:   deltaAngle(laRx.AzimuthDeg, laTx.AzimuthDeg),
			DeltaElDeg:   laRx.ElevationDeg - laTx.ElevationDeg,
		}, nil

	default:
		return Solution{}, fmt.Errorf("unknown mode %q", mode)
	}
}

// leg runs the fixed-point iteration for one propagation leg. sign is -1
// for the downlink (bounce before the station epoch) and +1 for the uplink
// (bounce after it). Returns the bounce position, the station-target range
// and the converged one-way light time.
func (s *Solver) leg(e *cpf.Ephemeris, sta transform.Station, tq float64, sign float64) ([3]float64, float64, float64, error) {
	var tau float64
	for i := 0; i < s.maxIter; i++ {
		pos, err := s.interp.Position(e, tq+sign*tau)
		if err != nil {
			return [3]float64{}, 0, 0, err
		}
		r := transform.Range(sta, pos)
		next := r / SpeedOfLight
		if math.Abs(next-tau) < s.tol {
			return pos, r, next, nil
		}
		tau = next
	}
	return [3]float64{}, 0, 0, fmt.Errorf("%w after %d iterations (tolerance %g s)", ErrNoConvergence, s.maxIter, s.tol)
}

// deltaAngle returns a-b in degrees, normalized to (-180, 180] so azimuth
// differences across the 0/360 wrap stay small.
func deltaAngle(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
