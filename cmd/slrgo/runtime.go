package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/slr/slrgo/internal/cpf"
	"github.com/slr/slrgo/internal/interp"
	"github.com/slr/slrgo/internal/lighttime"
	"github.com/slr/slrgo/internal/predict"
	"github.com/slr/slrgo/internal/timescale"
)

// engine bundles the services a prediction command needs.
type engine struct {
	ts  *timescale.TimeScale
	gen *predict.Generator
}

func newEngine(logger *slog.Logger, workers int) *engine {
	ts := timescale.New(timescale.DefaultLeapSeconds())
	in := interp.New(interp.Options{})
	solver := lighttime.NewSolver(in, lighttime.Options{})
	gen := predict.NewGenerator(ts, in, solver, predict.Config{Workers: workers}, logger)
	return &engine{ts: ts, gen: gen}
}

// loadTarget parses a CPF file and picks one target block. An empty name
// selects the only block and errors when the file holds several.
func loadTarget(logger *slog.Logger, path, target string) (*cpf.Ephemeris, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tables, err := cpf.Parse(f, logger)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if target == "" {
		if len(tables) > 1 {
			names := make([]string, len(tables))
			for i, e := range tables {
				names[i] = e.TargetName
			}
			return nil, fmt.Errorf("%s holds %d targets %v, pick one with --target", path, len(tables), names)
		}
		return tables[0], nil
	}

	for _, e := range tables {
		if e.TargetName == target {
			return e, nil
		}
	}
	return nil, fmt.Errorf("target %q not found in %s", target, path)
}

func addStationFlags(cmd *cobra.Command, sf *stationFlags) {
	cmd.Flags().StringVar(&sf.configFile, "config", "", "Stations TOML file")
	cmd.Flags().StringVar(&sf.station, "station", "", "Station name from the stations file")
	cmd.Flags().StringVar(&sf.coords, "coords", "", "Station coordinates: lon,lat,height or x,y,z")
	cmd.Flags().StringVar(&sf.coordType, "coord-type", "geodetic", "Coordinate type: geodetic or geocentric")
}

// fmtTime renders a header timestamp in the calendar form the prediction
// engine accepts.
func fmtTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// openOutput returns stdout for an empty path.
func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
