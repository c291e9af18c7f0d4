package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/lighttime"
	"github.com/slr/slrgo/internal/metrics"
	"github.com/slr/slrgo/internal/predict"
	"github.com/slr/slrgo/internal/timescale"
	"github.com/slr/slrgo/internal/transform"
)

// maxPredictSteps bounds the number of solver steps a single request may
// demand, so one request cannot consume unbounded CPU.
const maxPredictSteps = 100000

type stationPayload struct {
	Type        string     `json:"type"`
	Coordinates [3]float64 `json:"coordinates"`
}

func (p stationPayload) position() transform.StationPosition {
	return transform.StationPosition{
		Type: transform.CoordType(p.Type),
		C1:   p.Coordinates[0],
		C2:   p.Coordinates[1],
		C3:   p.Coordinates[2],
	}
}

type predictPayload struct {
	Target      string         `json:"target"`
	Station     stationPayload `json:"station"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	StepSeconds float64        `json:"step_seconds"`
	Mode        string         `json:"mode"`
}

type passesPayload struct {
	Target    string         `json:"target"`
	Station   stationPayload `json:"station"`
	Start     string         `json:"start"`
	End       string         `json:"end"`
	CutoffDeg float64        `json:"cutoff_deg"`
}

type fetchPayload struct {
	Name string `json:"name"`
}

type targetSummary struct {
	Name      string  `json:"name"`
	CosparID  string  `json:"cospar_id"`
	SIC       string  `json:"sic"`
	NoradID   string  `json:"norad_id"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	IntervalS float64 `json:"interval_s"`
	Samples   int     `json:"samples"`
}

func summarize(e *cpf.Ephemeris) targetSummary {
	return targetSummary{
		Name:      e.TargetName,
		CosparID:  e.CosparID,
		SIC:       e.SIC,
		NoradID:   e.NoradID,
		Start:     e.Start.UTC().Format(time.RFC3339),
		End:       e.End.UTC().Format(time.RFC3339),
		IntervalS: e.Interval,
		Samples:   len(e.Samples),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// badRequest reports whether err stems from invalid request parameters
// rather than a server-side failure.
func badRequest(err error) bool {
	return errors.Is(err, predict.ErrInvalidStep) ||
		errors.Is(err, transform.ErrInvalidCoordinate) ||
		errors.Is(err, timescale.ErrMalformedTimestamp)
}

// findTarget resolves the named ephemeris from the store, writing the
// appropriate error response when it cannot.
func findTarget(w http.ResponseWriter, store *cpf.Store, name string) *cpf.Ephemeris {
	if store.Get() == nil {
		writeError(w, http.StatusServiceUnavailable, "no ephemeris data loaded")
		return nil
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing target")
		return nil
	}
	e := store.Find(name)
	if e == nil {
		writeError(w, http.StatusNotFound, "unknown target "+name)
		return nil
	}
	return e
}

func targetsHandler(logger *slog.Logger, store *cpf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := store.Get()
		if ds == nil {
			writeError(w, http.StatusServiceUnavailable, "no ephemeris data loaded")
			return
		}
		summaries := make([]targetSummary, 0, len(ds.Targets))
		for _, e := range ds.Targets {
			summaries = append(summaries, summarize(e))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"source":     ds.Source,
			"fetched_at": ds.FetchedAt.UTC().Format(time.RFC3339),
			"targets":    summaries,
		})
	}
}

func targetHandler(logger *slog.Logger, store *cpf.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := findTarget(w, store, r.PathValue("name"))
		if e == nil {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"summary":   summarize(e),
			"source":    e.Source,
			"produced":  e.Produced.UTC().Format(time.RFC3339),
			"sequence":  e.Sequence,
			"frame":     e.ReferenceFrame,
			"direction": e.Direction,
		})
	}
}

func predictHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p predictPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		mode := lighttime.Mode(p.Mode)
		if p.Mode == "" {
			mode = lighttime.Apparent
		}
		if mode != lighttime.Geometric && mode != lighttime.Apparent {
			writeError(w, http.StatusBadRequest, "unknown mode "+p.Mode)
			return
		}

		if status, msg, ok := checkStepBudget(deps.TimeScale, p.Start, p.End, p.StepSeconds); !ok {
			writeError(w, status, msg)
			return
		}

		e := findTarget(w, deps.Store, p.Target)
		if e == nil {
			return
		}

		series, err := deps.Generator.Generate(r.Context(), e, predict.Request{
			Station:     p.Station.position(),
			Start:       p.Start,
			End:         p.End,
			StepSeconds: p.StepSeconds,
			Mode:        mode,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return // client went away
			}
			if badRequest(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("prediction failed", "target", p.Target, "error", err)
			writeError(w, http.StatusInternalServerError, "prediction failed")
			return
		}

		writeJSON(w, http.StatusOK, series)
	}
}

func passesHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p passesPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if p.CutoffDeg < 0 || p.CutoffDeg >= 90 {
			writeError(w, http.StatusBadRequest, "cutoff_deg out of [0, 90)")
			return
		}

		e := findTarget(w, deps.Store, p.Target)
		if e == nil {
			return
		}

		passes, err := deps.Generator.FindPasses(r.Context(), e, p.Station.position(), p.Start, p.End, p.CutoffDeg)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if badRequest(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("pass search failed", "target", p.Target, "error", err)
			writeError(w, http.StatusInternalServerError, "pass search failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"target": e.TargetName,
			"passes": passes,
		})
	}
}

func fetchHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p fetchPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if p.Name == "" {
			writeError(w, http.StatusBadRequest, "missing name")
			return
		}
		if deps.Fetcher == nil {
			writeError(w, http.StatusServiceUnavailable, "fetching disabled")
			return
		}

		data, err := deps.Fetcher.Fetch(r.Context(), p.Name)
		if err != nil {
			logger.Error("cpf fetch failed", "name", p.Name, "error", err)
			writeError(w, http.StatusBadGateway, "fetch failed: "+err.Error())
			return
		}

		targets, err := cpf.ParseBytes(data, logger)
		if err != nil {
			logger.Error("cpf parse failed", "name", p.Name, "error", err)
			writeError(w, http.StatusBadGateway, "parse failed: "+err.Error())
			return
		}

		deps.Store.Set(&cpf.Dataset{
			Source:    deps.Fetcher.ArchiveURL() + p.Name,
			FetchedAt: time.Now(),
			Targets:   targets,
		})
		metrics.SetEphemerisTargets(len(targets))
		metrics.SetEphemerisAge(0)

		if deps.Cache != nil {
			if err := deps.Cache.Write(data, time.Now()); err != nil {
				logger.Warn("cpf cache write failed", "error", err)
			}
		}

		logger.Info("cpf dataset loaded", "name", p.Name, "targets", len(targets))
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    p.Name,
			"targets": len(targets),
		})
	}
}

// checkStepBudget rejects requests whose step count would exceed the
// per-request solver budget.
func checkStepBudget(ts *timescale.TimeScale, start, end string, step float64) (int, string, bool) {
	if step <= 0 {
		return http.StatusBadRequest, "step_seconds must be positive", false
	}
	a, err := ts.ToEpoch(start)
	if err != nil {
		return http.StatusBadRequest, err.Error(), false
	}
	b, err := ts.ToEpoch(end)
	if err != nil {
		return http.StatusBadRequest, err.Error(), false
	}
	span := ts.DiffSeconds(b, a)
	if span < 0 {
		return http.StatusBadRequest, "end precedes start", false
	}
	if steps := int(math.Floor(span/step)) + 1; steps > maxPredictSteps {
		return http.StatusBadRequest, "step budget exceeded", false
	}
	return 0, "", true
}
