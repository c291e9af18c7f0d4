package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPassesCmd() *cobra.Command {
	var (
		sf      stationFlags
		input   string
		target  string
		start   string
		end     string
		cutoff  float64
		output  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "passes",
		Short: "Search a CPF file for station passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			if cutoff < 0 || cutoff >= 90 {
				return fmt.Errorf("cutoff %v out of [0, 90)", cutoff)
			}
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

			eng := newEngine(logger, 1)
			passes, err := eng.gen.FindPasses(cmd.Context(), e, station, start, end, cutoff)
			if err != nil {
				return err
			}

			w, done, err := openOutput(output)
			if err != nil {
				return err
			}
			defer done()
			return writePasses(w, e.TargetName, passes, jsonOut)
		},
	}

	addStationFlags(cmd, &sf)
	cmd.Flags().StringVarP(&input, "input", "i", "", "CPF prediction file (required)")
	cmd.Flags().StringVar(&target, "target", "", "Target name (required for multi-target files)")
	cmd.Flags().StringVar(&start, "start", "", "Start epoch, UTC (default: ephemeris start)")
	cmd.Flags().StringVar(&end, "end", "", "End epoch, UTC (default: ephemeris end)")
	cmd.Flags().Float64VarP(&cutoff, "cutoff", "c", 10, "Elevation cutoff in degrees")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output instead of a fixed-width report")
	cmd.MarkFlagRequired("input")

	return cmd
}
