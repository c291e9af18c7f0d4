package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "slrgo",
		Short: "Satellite laser ranging prediction engine",
		Long: `slrgo turns CPF prediction files into telescope pointing data.

It parses CPF 1.01 ephemerides, interpolates geocentric positions with a
10-point Lagrange scheme, and solves the laser light time to produce
azimuth/elevation/range predictions for a ground station. It can also
search for station passes, dump interpolated positions, fetch fresh CPF
files from a prediction archive, and run as an HTTP service.

Example usage:
  slrgo predict --input starlette.cpf --coords 7.465222,46.877230,951.33 \
    --start "2016-12-30 01:00:00" --end "2016-12-30 02:00:00" --step 60`,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(newPredictCmd())
	rootCmd.AddCommand(newXYZCmd())
	rootCmd.AddCommand(newPassesCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. CLI commands log to stderr so report
// output on stdout stays clean; the serve command reuses it for the server.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
