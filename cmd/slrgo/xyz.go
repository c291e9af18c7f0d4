package main

import (
	"github.com/spf13/cobra"
)

func newXYZCmd() *cobra.Command {
	var (
		input   string
		target  string
		start   string
		end     string
		step    float64
		output  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "xyz",
		Short: "Dump interpolated geocentric positions from a CPF file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

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
			records, skipped, err := eng.gen.GenerateXYZ(cmd.Context(), e, start, end, step)
			if err != nil {
				return err
			}

			w, done, err := openOutput(output)
			if err != nil {
				return err
			}
			defer done()
			return writeXYZ(w, e.TargetName, records, skipped, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CPF prediction file (required)")
	cmd.Flags().StringVar(&target, "target", "", "Target name (required for multi-target files)")
	cmd.Flags().StringVar(&start, "start", "", "Start epoch, UTC (default: ephemeris start)")
	cmd.Flags().StringVar(&end, "end", "", "End epoch, UTC (default: ephemeris end)")
	cmd.Flags().Float64VarP(&step, "step", "s", 60, "Time increment in seconds")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "JSON output instead of a fixed-width report")
	cmd.MarkFlagRequired("input")

	return cmd
}
