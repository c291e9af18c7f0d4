package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/slr/slrgo/internal/predict"
)

// writeSeries renders a pointing series as a fixed-width report, or as JSON
// when jsonOut is set.
func writeSeries(w io.Writer, s *predict.Series, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "# target: %s  mode: %s  records: %d  skipped: %d\n",
		s.Target, s.Mode, len(s.Records), s.Skipped)
	fmt.Fprintf(w, "# %-21s %10s %10s %14s %13s %9s %9s\n",
		"receive (UTC)", "az [deg]", "el [deg]", "range [m]", "tof [s]", "dAz", "dEl")
	for _, r := range s.Records {
		fmt.Fprintf(w, "%-23s %10.5f %10.5f %14.3f %13.9f %9.5f %9.5f\n",
			r.ReceiveUTC, r.AzimuthDeg, r.ElevationDeg, r.RangeM, r.TOFSeconds, r.DeltaAzDeg, r.DeltaElDeg)
	}
	for _, e := range s.SkippedEpochs {
		fmt.Fprintf(w, "# skipped: %s\n", e)
	}
	return nil
}

func writeXYZ(w io.Writer, target string, records []predict.XYZRecord, skipped int, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"target":  target,
			"records": records,
			"skipped": skipped,
		})
	}

	fmt.Fprintf(w, "# target: %s  records: %d  skipped: %d\n", target, len(records), skipped)
	fmt.Fprintf(w, "# %-21s %6s %12s %15s %15s %15s\n",
		"epoch (UTC)", "mjd", "sod", "x [m]", "y [m]", "z [m]")
	for _, r := range records {
		fmt.Fprintf(w, "%-23s %6d %12.3f %15.3f %15.3f %15.3f\n",
			r.UTC, r.MJD, r.SoD, r.Position[0], r.Position[1], r.Position[2])
	}
	return nil
}

func writePasses(w io.Writer, target string, passes []predict.Pass, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"target": target,
			"passes": passes,
		})
	}

	fmt.Fprintf(w, "# target: %s  passes: %d\n", target, len(passes))
	if len(passes) == 0 {
		return nil
	}
	fmt.Fprintf(w, "# %-21s %-23s %10s %10s %10s\n",
		"rise (UTC)", "set (UTC)", "dur [s]", "max el", "az@max")
	for _, p := range passes {
		fmt.Fprintf(w, "%-23s %-23s %10.1f %10.5f %10.5f\n",
			p.StartUTC, p.EndUTC, p.DurationSeconds, p.MaxElevationDeg, p.AzimuthAtMaxDeg)
	}
	return nil
}
