package cpf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedRecord is returned when a data record holds non-numeric
	// fields where numbers are expected. The whole parse fails: ephemeris
	// data that cannot be trusted numerically is not partially usable.
	ErrMalformedRecord = errors.New("malformed ephemeris record")

	// ErrEmptyEphemeris is returned when a target block carries a complete
	// header but no data records.
	ErrEmptyEphemeris = errors.New("ephemeris contains no data records")

	// ErrInconsistentFrame is returned when the position records switch
	// direction convention mid-block.
	ErrInconsistentFrame = errors.New("inconsistent position frame in ephemeris")
)

// ParseBytes parses an in-memory CPF 1.01 document.
func ParseBytes(data []byte, logger *slog.Logger) ([]*Ephemeris, error) {
	return Parse(bytes.NewReader(data), logger)
}

// Parse reads a CPF 1.01 document from r and returns one Ephemeris per
// target block. Blocks are delimited by the "99" end-of-ephemeris marker.
// Unknown header line types are skipped with a debug log; malformed data
// records abort the whole parse.
func Parse(r io.Reader, logger *slog.Logger) ([]*Ephemeris, error) {
	scanner := bufio.NewScanner(r)

	var (
		tables  []*Ephemeris
		cur     *Ephemeris
		dirFlag = -1
		lineNo  int
	)

	finish := func() error {
		if cur == nil {
			return nil
		}
		if len(cur.Samples) == 0 {
			return fmt.Errorf("%w: target %q", ErrEmptyEphemeris, cur.TargetName)
		}
		cur.Direction = directionDesc(dirFlag)
		cur.finalize()
		tables = append(tables, cur)
		cur = nil
		dirFlag = -1
		return nil
	}

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "H1":
			if cur != nil {
				// A new header without a preceding terminator starts the
				// next block; the previous one must still be complete.
				if err := finish(); err != nil {
					return nil, err
				}
			}
			cur = &Ephemeris{}
			if err := parseH1(cur, fields); err != nil {
				logger.Warn("skipping malformed H1 header", "line", lineNo, "error", err)
			}

		case "H2":
			if cur == nil {
				cur = &Ephemeris{}
			}
			if err := parseH2(cur, fields); err != nil {
				logger.Warn("skipping malformed H2 header", "line", lineNo, "error", err)
			}

		case "10":
			if cur == nil {
				cur = &Ephemeris{}
			}
			flag, sample, err := parseRecord(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if dirFlag == -1 {
				dirFlag = flag
			} else if flag != dirFlag {
				return nil, fmt.Errorf("line %d: %w: direction flag changed %d -> %d",
					lineNo, ErrInconsistentFrame, dirFlag, flag)
			}
			if n := len(cur.Samples); n > 0 {
				prev := cur.Samples[n-1]
				if sample.MJD < prev.MJD || (sample.MJD == prev.MJD && sample.SoD <= prev.SoD) {
					return nil, fmt.Errorf("line %d: %w: epochs not strictly increasing", lineNo, ErrMalformedRecord)
				}
			}
			cur.Samples = append(cur.Samples, sample)

		case "99":
			if err := finish(); err != nil {
				return nil, err
			}

		default:
			// Optional/extension records (H3..H9, velocity, corrections)
			// are tolerated and ignored.
			logger.Debug("skipping unhandled record type", "type", fields[0], "line", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading CPF data: %w", err)
	}

	// A trailing block without the "99" marker is still usable.
	if err := finish(); err != nil {
		return nil, err
	}

	if len(tables) == 0 {
		return nil, ErrEmptyEphemeris
	}
	return tables, nil
}

// parseH1 reads the format header:
// H1 CPF version source year month day hour sequence target.
func parseH1(e *Ephemeris, f []string) error {
	if len(f) < 10 {
		return fmt.Errorf("H1 has %d fields, want 10", len(f))
	}
	e.Format = f[1]
	e.Version = f[2]
	e.Source = f[3]

	y, err1 := strconv.Atoi(f[4])
	mo, err2 := strconv.Atoi(f[5])
	d, err3 := strconv.Atoi(f[6])
	h, err4 := strconv.Atoi(f[7])
	seq, err5 := strconv.Atoi(f[8])
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return fmt.Errorf("bad H1 field: %v", err)
		}
	}
	e.Produced = time.Date(y, time.Month(mo), d, h, 0, 0, 0, time.UTC)
	e.Sequence = seq
	e.TargetName = f[9]
	return nil
}

// parseH2 reads the basic-info header:
// H2 cospar sic norad start(6) end(6) interval tgt compat frame rot com.
func parseH2(e *Ephemeris, f []string) error {
	if len(f) < 22 {
		return fmt.Errorf("H2 has %d fields, want 22", len(f))
	}
	e.CosparID = f[1]
	e.SIC = f[2]
	e.NoradID = f[3]

	start, err := parseDateTime(f[4:10])
	if err != nil {
		return fmt.Errorf("bad H2 start epoch: %v", err)
	}
	end, err := parseDateTime(f[10:16])
	if err != nil {
		return fmt.Errorf("bad H2 end epoch: %v", err)
	}
	e.Start, e.End = start, end

	interval, err := strconv.ParseFloat(f[16], 64)
	if err != nil {
		return fmt.Errorf("bad H2 interval: %v", err)
	}
	e.Interval = interval

	e.TargetType = targetTypeDesc(f[17])
	e.ReferenceFrame = referenceFrameDesc(f[19])
	e.RotationalAngle = rotationalAngleDesc(f[20])
	e.CoMCorrection = comCorrectionDesc(f[21])
	return nil
}

// parseRecord reads a position record:
// 10 direction mjd sod leap x y z.
func parseRecord(f []string) (int, Sample, error) {
	if len(f) < 8 {
		return 0, Sample{}, fmt.Errorf("%w: %d fields, want 8", ErrMalformedRecord, len(f))
	}

	flag, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, Sample{}, fmt.Errorf("%w: direction flag %q", ErrMalformedRecord, f[1])
	}
	mjd, err := strconv.Atoi(f[2])
	if err != nil {
		return 0, Sample{}, fmt.Errorf("%w: MJD %q", ErrMalformedRecord, f[2])
	}
	sod, err := strconv.ParseFloat(f[3], 64)
	if err != nil {
		return 0, Sample{}, fmt.Errorf("%w: second of day %q", ErrMalformedRecord, f[3])
	}
	leap, err := strconv.Atoi(f[4])
	if err != nil {
		return 0, Sample{}, fmt.Errorf("%w: leap second %q", ErrMalformedRecord, f[4])
	}

	var pos [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(f[5+i], 64)
		if err != nil {
			return 0, Sample{}, fmt.Errorf("%w: position component %q", ErrMalformedRecord, f[5+i])
		}
		pos[i] = v
	}

	return flag, Sample{MJD: mjd, SoD: sod, Leap: leap, Position: pos}, nil
}

func parseDateTime(f []string) (time.Time, error) {
	if len(f) != 6 {
		return time.Time{}, fmt.Errorf("%d fields, want 6", len(f))
	}
	var v [6]int
	for i, s := range f {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, err
		}
		v[i] = n
	}
	return time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC), nil
}

func targetTypeDesc(code string) string {
	switch code {
	case "1":
		return "passive (retro-reflector) artificial satellite"
	case "2":
		return "passive (retro-reflector) lunar reflector"
	case "3":
		return "synchronous transponder"
	case "4":
		return "asynchronous transponder"
	}
	return "unknown (" + code + ")"
}

func referenceFrameDesc(code string) string {
	switch code {
	case "0":
		return "ITRF (default)"
	case "1":
		return "GCRF (true of date)"
	case "2":
		return "GCRF (mean of date J2000.0)"
	}
	return "unknown (" + code + ")"
}

func rotationalAngleDesc(code string) string {
	switch code {
	case "0":
		return "not applicable"
	case "1":
		return "lunar Euler angles"
	case "2":
		return "north pole RA/Dec and prime meridian angle"
	}
	return "unknown (" + code + ")"
}

func comCorrectionDesc(code string) string {
	switch code {
	case "0":
		return "none applied, prediction is for center of mass"
	case "1":
		return "applied, prediction is for retro-reflector array"
	}
	return "unknown (" + code + ")"
}

func directionDesc(flag int) string {
	switch flag {
	case 0:
		return "instantaneous vector from geocenter to target"
	case 1:
		return "geocenter to target with light-time iteration at transmit"
	case 2:
		return "target to geocenter with light-time iteration at receive"
	}
	return fmt.Sprintf("unknown (%d)", flag)
}
