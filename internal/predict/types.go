package predict

import (
	"github.com/slr/slrgo/internal/timescale"
)

// Record is one pointing prediction. In apparent mode the azimuth and
// elevation are the transmit-time direction and the deltas hold the
// receive-minus-transmit offset; in geometric mode the deltas are zero.
// Immutable once produced.
type Record struct {
	Receive      timescale.Epoch `json:"-"`
	ReceiveUTC   string          `json:"receive_utc"`
	TransmitUTC  string          `json:"transmit_utc"`
	MJD          int             `json:"mjd"`
	SoD          float64         `json:"sod"`
	AzimuthDeg   float64         `json:"azimuth_deg"`
	ElevationDeg float64         `json:"elevation_deg"`
	RangeM       float64         `json:"range_m"`
	TOFSeconds   float64         `json:"tof_s"`
	DeltaAzDeg   float64         `json:"delta_az_deg,omitempty"`
	DeltaElDeg   float64         `json:"delta_el_deg,omitempty"`
}

// XYZRecord is one interpolated geocentric position.
type XYZRecord struct {
	Receive  timescale.Epoch `json:"-"`
	UTC      string          `json:"utc"`
	MJD      int             `json:"mjd"`
	SoD      float64         `json:"sod"`
	Position [3]float64      `json:"position_m"`
}

// Series is the ordered output of one generation run. Per-step failures
// near the table boundaries are expected; they are skipped and summarized
// rather than failing the run.
type Series struct {
	Target        string   `json:"target"`
	Mode          string   `json:"mode"`
	Records       []Record `json:"records"`
	Skipped       int      `json:"skipped"`
	SkippedEpochs []string `json:"skipped_epochs,omitempty"` // first few offenders, UTC
}

// Pass is one visibility window of a target above the cutoff elevation.
type Pass struct {
	Start           timescale.Epoch `json:"-"`
	End             timescale.Epoch `json:"-"`
	StartUTC        string          `json:"start_utc"`
	EndUTC          string          `json:"end_utc"`
	MaxElevationUTC string          `json:"max_elevation_utc"`
	MaxElevationDeg float64         `json:"max_elevation_deg"`
	AzimuthAtMaxDeg float64         `json:"azimuth_at_max_deg"`
	DurationSeconds float64         `json:"duration_seconds"`
}
