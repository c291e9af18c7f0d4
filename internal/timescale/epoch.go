package timescale

import "fmt"

// Epoch is an instant expressed as Modified Julian Day, Second of Day and
// the cumulative leap-second count applicable at that instant. SoD normally
// lies in [0, 86400); on a day that ends with an inserted leap second it may
// reach into [86400, 86401) to represent the 23:59:60 second.
type Epoch struct {
	MJD  int
	SoD  float64
	Leap int
}

func (e Epoch) String() string {
	return fmt.Sprintf("MJD %d SoD %.6f (leap %d)", e.MJD, e.SoD, e.Leap)
}

// Before reports whether e precedes other.
func (e Epoch) Before(other Epoch) bool {
	if e.MJD != other.MJD {
		return e.MJD < other.MJD
	}
	return e.SoD < other.SoD
}
