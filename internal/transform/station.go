package transform

import (
	"errors"
	"fmt"
	"math"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// ErrInvalidCoordinate is returned when station coordinates are NaN,
// infinite, or degenerate.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// CoordType selects how a StationPosition is expressed.
type CoordType string

const (
	Geodetic   CoordType = "geodetic"   // longitude/latitude in degrees, height in meters
	Geocentric CoordType = "geocentric" // x/y/z in meters
)

// StationPosition is a ground station location, tagged by coordinate type.
// Geodetic: C1=longitude [deg], C2=latitude [deg], C3=height [m].
// Geocentric: C1=x, C2=y, C3=z [m].
type StationPosition struct {
	Type       CoordType
	C1, C2, C3 float64
}

// Station is a station position resolved to the ECEF frame with its
// topocentric basis precomputed, so it can be reused across many pointing
// computations.
type Station struct {
	LatRad, LonRad, HeightM float64    // geodetic
	ECEF                    [3]float64 // meters
}

// Resolve validates a StationPosition and converts it to a Station.
func Resolve(pos StationPosition) (Station, error) {
	for _, v := range []float64{pos.C1, pos.C2, pos.C3} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Station{}, fmt.Errorf("%w: non-finite component in %v", ErrInvalidCoordinate, pos.Type)
		}
	}

	switch pos.Type {
	case Geodetic:
		lon, lat, h := pos.C1, pos.C2, pos.C3
		if lat < -90 || lat > 90 {
			return Station{}, fmt.Errorf("%w: latitude %.6f out of [-90, 90]", ErrInvalidCoordinate, lat)
		}
		lon = normalizeLon(lon)
		if lon < -180 || lon > 180 {
			return Station{}, fmt.Errorf("%w: longitude %.6f", ErrInvalidCoordinate, lon)
		}
		x, y, z := GeodeticToECEF(lon, lat, h)
		return Station{
			LatRad:  lat * math.Pi / 180,
			LonRad:  lon * math.Pi / 180,
			HeightM: h,
			ECEF:    [3]float64{x, y, z},
		}, nil
	case Geocentric:
		x, y, z := pos.C1, pos.C2, pos.C3
		if x == 0 && y == 0 && z == 0 {
			return Station{}, fmt.Errorf("%w: zero geocentric vector", ErrInvalidCoordinate)
		}
		lon, lat, h := ECEFToGeodetic(x, y, z)
		return Station{
			LatRad:  lat * math.Pi / 180,
			LonRad:  lon * math.Pi / 180,
			HeightM: h,
			ECEF:    [3]float64{x, y, z},
		}, nil
	default:
		return Station{}, fmt.Errorf("%w: unknown coordinate type %q", ErrInvalidCoordinate, pos.Type)
	}
}

// GeodeticToECEF converts geodetic coordinates (degrees, degrees, meters
// above the WGS-84 ellipsoid) to ECEF meters.
func GeodeticToECEF(lonDeg, latDeg, heightM float64) (x, y, z float64) {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	x = (N + heightM) * cosLat * math.Cos(lon)
	y = (N + heightM) * cosLat * math.Sin(lon)
	z = (N*(1-wgs84E2) + heightM) * sinLat
	return x, y, z
}

// ECEFToGeodetic converts ECEF meters to geodetic coordinates (degrees,
// degrees, meters) using the iterative Bowring method. Converges in a few
// iterations for any point near the Earth's surface or in orbit.
func ECEFToGeodetic(x, y, z float64) (lonDeg, latDeg, heightM float64) {
	lon := math.Atan2(y, x)
	p := math.Sqrt(x*x + y*y)

	lat := math.Atan2(z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(z+wgs84E2*N*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var h float64
	if math.Abs(cosLat) > 1e-10 {
		h = p/cosLat - N
	} else {
		h = math.Abs(z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return lon * 180 / math.Pi, lat * 180 / math.Pi, h
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return lon
}
