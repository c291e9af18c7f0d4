package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/slr/slrgo/internal/lighttime"
	"github.com/slr/slrgo/internal/predict"
)

func newPredictCmd() *cobra.Command {
	var (
		sf      stationFlags
		input   string
		target  string
		start   string
		end     string
		step    float64
		mode    string
		output  string
		jsonOut bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Generate pointing predictions from a CPF file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			station, err := sf.resolve()
			if err != nil {
				return err
			}
			e, err := loadTarget(logger, input, target)
			if err != nil {
				return err
			}

			if start == "" {
				start = fmtTime(e.Start)
			}
			if end == "" {
				end = fmtTime(e.End)
			}
			m := lighttime.Mode(mode)
			if m != lighttime.Geometric && m != lighttime.Apparent {
				return fmt.Errorf("unknown mode %q, want geometric or apparent", mode)
			}

			eng := newEngine(logger, workers)
			series, err := eng.gen.Generate(cmd.Context(), e, predict.Request{
				Station:     station,
				Start:       start,
				End:         end,
				StepSeconds: step,
				Mode:        m,
			})
			if err != nil {
				return err
			}

			w, done, err := openOutput(output)
			if err != nil {
				return err
			}
			defer done()
			return writeSeries(w, series, jsonOut)
		},
	}

	addStationFlags(cmd, &sf)
	cmd.Flags().StringVarP(&input, "input", "i", "", "CPF prediction file (required)")
	cmd.Flags().StringVar(&target, "target", "", "Target name (required for multi-target files)")
	cmd.Flags().StringVar(&start, "start", "", "Start epoch, UTC (default: ephemeris start)")
	cmd.Flags().StringVar(&end, "end", "", "End epoch, UTC (default: ephemeris end)")
	cmd.Flags().Float64VarP(&step, "step", "s", 1, "Time increment in seconds")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(lighttime.Apparent), "Pointing mode: geometric or apparent")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output instead of a fixed-width report")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Solver worker count")
	cmd.MarkFlagRequired("input")

	return cmd
}
