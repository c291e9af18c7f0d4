package cpf

import (
	"time"

	"github.com/slr/slrgo/internal/timescale"
)

// Sample is one tabulated ephemeris entry: an epoch and the target position
// in meters. Leap carries the record's own leap-second column, which changes
// across a leap-second event inside the ephemeris span.
type Sample struct {
	MJD      int
	SoD      float64
	Leap     int
	Position [3]float64
}

// Ephemeris is one parsed target's prediction data. Created wholly by Parse
// and immutable thereafter; safe for concurrent reads.
type Ephemeris struct {
	// Identity.
	Format     string
	Version    string
	Source     string
	Produced   time.Time
	Sequence   int
	TargetName string
	CosparID   string
	SIC        string
	NoradID    string

	// Metadata decoded from the basic-info header.
	TargetType      string
	ReferenceFrame  string
	RotationalAngle string
	CoMCorrection   string
	Direction       string
	Interval        float64 // nominal tabulation interval, seconds
	Start, End      time.Time

	// Samples, ascending in epoch.
	Samples []Sample

	refMJD int       // reference day for the continuous time axis
	times  []float64 // leap-continuous seconds per sample, relative to refMJD

	leapBoundaryMJD int // first MJD carrying leapAfter; 0 when no shift in span
	leapBefore      int
	leapAfter       int
}

// finalize precomputes the continuous time axis once the sample set is
// complete. The axis is (MJD-refMJD)*86400 + SoD + leap, which stays gapless
// across a leap-second insertion because the inserted :60 second still
// carries the pre-insertion leap value.
func (e *Ephemeris) finalize() {
	n := len(e.Samples)
	e.refMJD = e.Samples[n/2].MJD

	e.leapBefore = e.Samples[0].Leap
	e.leapAfter = e.Samples[0].Leap
	for i := 1; i < n; i++ {
		if e.Samples[i].Leap != e.Samples[i-1].Leap {
			e.leapBoundaryMJD = e.Samples[i].MJD
			e.leapAfter = e.Samples[i].Leap
			break
		}
	}

	e.times = make([]float64, n)
	for i, s := range e.Samples {
		e.times[i] = float64(s.MJD-e.refMJD)*86400 + s.SoD + float64(s.Leap)
	}
}

// Times returns the continuous time axis of the samples in seconds relative
// to the table's reference day. Callers must not modify the slice.
func (e *Ephemeris) Times() []float64 {
	return e.times
}

// ContinuousTime maps an epoch onto the table's continuous time axis, using
// the table's own leap-second convention so query and sample axes agree.
func (e *Ephemeris) ContinuousTime(ep timescale.Epoch) float64 {
	return float64(ep.MJD-e.refMJD)*86400 + ep.SoD + float64(e.LeapOffset(ep.MJD))
}

// LeapOffset returns the table's leap-second column value applicable on the
// given day.
func (e *Ephemeris) LeapOffset(mjd int) int {
	if e.leapBoundaryMJD != 0 && mjd >= e.leapBoundaryMJD {
		return e.leapAfter
	}
	return e.leapBefore
}

// FirstEpoch returns the epoch of the first sample.
func (e *Ephemeris) FirstEpoch() timescale.Epoch {
	s := e.Samples[0]
	return timescale.Epoch{MJD: s.MJD, SoD: s.SoD, Leap: s.Leap}
}

// LastEpoch returns the epoch of the last sample.
func (e *Ephemeris) LastEpoch() timescale.Epoch {
	s := e.Samples[len(e.Samples)-1]
	return timescale.Epoch{MJD: s.MJD, SoD: s.SoD, Leap: s.Leap}
}

// Dataset is a set of ephemerides loaded from one source at one time.
type Dataset struct {
	Source    string
	FetchedAt time.Time
	Targets   []*Ephemeris
}
