package predict

import (
	"context"
	"time"

	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/timescale"
	"github.com/slr/slrgo/internal/transform"
)

const (
	fineStepSec = 1.0
	minPassDur  = 10 * time.Second
)

// FindPasses scans the requested span for windows where the target rises
// above the cutoff elevation. A coarse scan at one sixth of the tabulation
// interval locates candidate windows; a fine scan refines rise, set, and
// culmination. Epochs whose interpolation fails (table edges) are treated
// as below the horizon.
func (g *Generator) FindPasses(ctx context.Context, e *cpf.Ephemeris, station transform.StationPosition, start, end string, cutoffDeg float64) ([]Pass, error) {
	sta, err := transform.Resolve(station)
	if err != nil {
		return nil, err
	}
	startEpoch, err := g.ts.ToEpoch(start)
	if err != nil {
		return nil, err
	}
	endEpoch, err := g.ts.ToEpoch(end)
	if err != nil {
		return nil, err
	}

	coarse := e.Interval / 6
	if coarse < fineStepSec {
		coarse = fineStepSec
	}

	var passes []Pass
	epoch := startEpoch
	for epoch.Before(endEpoch) {
		if ctx.Err() != nil {
			return passes, ctx.Err()
		}

		el, _, ok := g.elevationAt(e, sta, epoch)
		if ok && el >= cutoffDeg {
			pass, windowEnd := g.refinePass(ctx, e, sta, epoch, startEpoch, endEpoch, cutoffDeg)
			if pass != nil && pass.DurationSeconds >= minPassDur.Seconds() {
				passes = append(passes, *pass)
			}
			epoch = g.ts.AddSeconds(windowEnd, coarse)
		} else {
			epoch = g.ts.AddSeconds(epoch, coarse)
		}
	}

	return passes, nil
}

// refinePass backs up from a coarse hit to the rise, then scans forward to
// the set, tracking culmination. Returns the pass and the epoch where the
// window ended.
func (g *Generator) refinePass(ctx context.Context, e *cpf.Ephemeris, sta transform.Station, coarseHit, windowStart, windowEnd timescale.Epoch, cutoffDeg float64) (*Pass, timescale.Epoch) {
	searchStart := g.ts.AddSeconds(coarseHit, -e.Interval/6)
	if searchStart.Before(windowStart) {
		searchStart = windowStart
	}

	var (
		rise, set, maxElAt timescale.Epoch
		maxEl, maxElAz     float64
		wasAbove           bool
		foundRise          bool
	)

	epoch := searchStart
	for epoch.Before(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		el, az, ok := g.elevationAt(e, sta, epoch)
		above := ok && el >= cutoffDeg

		if above && !foundRise {
			rise = epoch
			foundRise = true
			maxEl, maxElAt, maxElAz = el, epoch, az
		}
		if above && el > maxEl {
			maxEl, maxElAt, maxElAz = el, epoch, az
		}
		if !above && wasAbove && foundRise {
			set = epoch
			break
		}

		wasAbove = above
		epoch = g.ts.AddSeconds(epoch, fineStepSec)
	}

	// Still above at the window end: close the pass there.
	if foundRise && set == (timescale.Epoch{}) && wasAbove {
		set = epoch
	}

	if !foundRise || set == (timescale.Epoch{}) {
		return nil, epoch
	}

	return &Pass{
		Start:           rise,
		End:             set,
		StartUTC:        g.ts.ToUTC(rise),
		EndUTC:          g.ts.ToUTC(set),
		MaxElevationUTC: g.ts.ToUTC(maxElAt),
		MaxElevationDeg: maxEl,
		AzimuthAtMaxDeg: maxElAz,
		DurationSeconds: g.ts.DiffSeconds(set, rise),
	}, set
}

// elevationAt returns the geometric elevation and azimuth of the target
// from the station. ok is false when the epoch is outside the table.
func (g *Generator) elevationAt(e *cpf.Ephemeris, sta transform.Station, epoch timescale.Epoch) (el, az float64, ok bool) {
	pos, err := g.interp.Position(e, e.ContinuousTime(epoch))
	if err != nil {
		return 0, 0, false
	}
	la := transform.ECEFToLookAngles(sta, pos)
	return la.ElevationDeg, la.AzimuthDeg, true
}
