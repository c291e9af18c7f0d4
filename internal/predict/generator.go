package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/interp"
	"github.com/slr/slrgo/internal/lighttime"
	"github.com/slr/slrgo/internal/metrics"
	"github.com/slr/slrgo/internal/timescale"
	"github.com/slr/slrgo/internal/transform"
)

// ErrInvalidStep is returned when the requested time increment is not
// positive or the time range is inverted.
var ErrInvalidStep = errors.New("invalid prediction step")

// maxReportedSkips bounds the offending-epoch list in a Series summary.
const maxReportedSkips = 5

// Config holds generation configuration.
type Config struct {
	Workers int // worker pool size (default: runtime.NumCPU())
}

// Request holds the parameters of one prediction run.
type Request struct {
	Station     transform.StationPosition
	Start       string // UTC calendar string
	End         string // UTC calendar string
	StepSeconds float64
	Mode        lighttime.Mode
}

// Generator drives the interpolator and light-time solver across a time
// span, producing an ordered series of pointing records.
type Generator struct {
	ts      *timescale.TimeScale
	interp  *interp.Interpolator
	solver  *lighttime.Solver
	workers int
	logger  *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(ts *timescale.TimeScale, in *interp.Interpolator, solver *lighttime.Solver, cfg Config, logger *slog.Logger) *Generator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Generator{ts: ts, interp: in, solver: solver, workers: workers, logger: logger}
}

// Generate produces one pointing record per step from start to end
// inclusive. Steps whose solve fails with interp.ErrOutOfRange or
// lighttime.ErrNoConvergence are omitted and counted; precondition failures
// abort before any computation starts. On context cancellation the records
// completed so far are returned along with ctx.Err().
func (g *Generator) Generate(ctx context.Context, e *cpf.Ephemeris, req Request) (*Series, error) {
	startEpoch, steps, sta, err := g.validate(req)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("generating prediction series",
		"target", e.TargetName,
		"mode", string(req.Mode),
		"steps", steps,
		"workers", g.workers,
	)

	begin := time.Now()
	slots := make([]*Record, steps)
	errs := make([]error, steps)

	runSteps(ctx, g.workers, steps, func(i int) {
		receive := g.ts.AddSeconds(startEpoch, float64(i)*req.StepSeconds)
		sol, err := g.solver.Solve(e, sta, receive, req.Mode)
		if err != nil {
			errs[i] = err
			return
		}
		transmit := g.ts.AddSeconds(receive, -sol.TOFSeconds)
		slots[i] = &Record{
			Receive:      receive,
			ReceiveUTC:   g.ts.ToUTC(receive),
			TransmitUTC:  g.ts.ToUTC(transmit),
			MJD:          receive.MJD,
			SoD:          receive.SoD,
			AzimuthDeg:   sol.AzimuthDeg,
			ElevationDeg: sol.ElevationDeg,
			RangeM:       sol.RangeM,
			TOFSeconds:   sol.TOFSeconds,
			DeltaAzDeg:   sol.DeltaAzDeg,
			DeltaElDeg:   sol.DeltaElDeg,
		}
	})

	series := &Series{
		Target: e.TargetName,
		Mode:   string(req.Mode),
	}
	for i := 0; i < steps; i++ {
		if slots[i] != nil {
			series.Records = append(series.Records, *slots[i])
			continue
		}
		if errs[i] != nil {
			series.Skipped++
			if len(series.SkippedEpochs) < maxReportedSkips {
				epoch := g.ts.AddSeconds(startEpoch, float64(i)*req.StepSeconds)
				series.SkippedEpochs = append(series.SkippedEpochs, g.ts.ToUTC(epoch))
			}
		}
	}

	duration := time.Since(begin)
	metrics.RecordPrediction(duration, len(series.Records), series.Skipped)
	g.logger.Debug("prediction series complete",
		"target", e.TargetName,
		"produced", len(series.Records),
		"skipped", series.Skipped,
		"duration_ms", duration.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return series, err
	}
	return series, nil
}

// GenerateXYZ produces interpolated geocentric positions per step, without
// station geometry or light-time treatment.
func (g *Generator) GenerateXYZ(ctx context.Context, e *cpf.Ephemeris, start, end string, stepSeconds float64) ([]XYZRecord, int, error) {
	if stepSeconds <= 0 {
		return nil, 0, fmt.Errorf("%w: increment %v", ErrInvalidStep, stepSeconds)
	}
	startEpoch, err := g.ts.ToEpoch(start)
	if err != nil {
		return nil, 0, err
	}
	endEpoch, err := g.ts.ToEpoch(end)
	if err != nil {
		return nil, 0, err
	}
	span := g.ts.DiffSeconds(endEpoch, startEpoch)
	if span < 0 {
		return nil, 0, fmt.Errorf("%w: end %s precedes start %s", ErrInvalidStep, end, start)
	}
	steps := int(math.Floor(span/stepSeconds+1e-9)) + 1

	var (
		records []XYZRecord
		skipped int
	)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return records, skipped, err
		}
		epoch := g.ts.AddSeconds(startEpoch, float64(i)*stepSeconds)
		pos, err := g.interp.Position(e, e.ContinuousTime(epoch))
		if err != nil {
			skipped++
			continue
		}
		records = append(records, XYZRecord{
			Receive:  epoch,
			UTC:      g.ts.ToUTC(epoch),
			MJD:      epoch.MJD,
			SoD:      epoch.SoD,
			Position: pos,
		})
	}
	return records, skipped, nil
}

// validate checks request preconditions and resolves the station frame.
func (g *Generator) validate(req Request) (timescale.Epoch, int, transform.Station, error) {
	if req.StepSeconds <= 0 {
		return timescale.Epoch{}, 0, transform.Station{}, fmt.Errorf("%w: increment %v", ErrInvalidStep, req.StepSeconds)
	}
	if req.Mode != lighttime.Geometric && req.Mode != lighttime.Apparent {
		return timescale.Epoch{}, 0, transform.Station{}, fmt.Errorf("unknown mode %q", req.Mode)
	}

	sta, err := transform.Resolve(req.Station)
	if err != nil {
		return timescale.Epoch{}, 0, transform.Station{}, err
	}

	startEpoch, err := g.ts.ToEpoch(req.Start)
	if err != nil {
		return timescale.Epoch{}, 0, transform.Station{}, err
	}
	endEpoch, err := g.ts.ToEpoch(req.End)
	if err != nil {
		return timescale.Epoch{}, 0, transform.Station{}, err
	}

	span := g.ts.DiffSeconds(endEpoch, startEpoch)
	if span < 0 {
		return timescale.Epoch{}, 0, transform.Station{}, fmt.Errorf("%w: end %s precedes start %s", ErrInvalidStep, req.End, req.Start)
	}

	steps := int(math.Floor(span/req.StepSeconds+1e-9)) + 1
	return startEpoch, steps, sta, nil
}
