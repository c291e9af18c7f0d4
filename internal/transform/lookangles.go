package transform

import "math"

// LookAngles holds azimuth, elevation, and slant range from a station to a
// target. Azimuth is measured clockwise from geographic north in [0, 360);
// elevation from the local horizontal in [-90, 90].
type LookAngles struct {
	AzimuthDeg   float64
	ElevationDeg float64
	RangeM       float64
}

// TopocentricBasis returns the local east, north and up unit vectors of a
// station in the ECEF frame.
func TopocentricBasis(sta Station) (east, north, up [3]float64) {
	sinLat := math.Sin(sta.LatRad)
	cosLat := math.Cos(sta.LatRad)
	sinLon := math.Sin(sta.LonRad)
	cosLon := math.Cos(sta.LonRad)

	east = [3]float64{-sinLon, cosLon, 0}
	north = [3]float64{-sinLat * cosLon, -sinLat * sinLon, cosLat}
	up = [3]float64{cosLat * cosLon, cosLat * sinLon, sinLat}
	return east, north, up
}

// ECEFToLookAngles computes azimuth, elevation, and range from a station to
// a target position in ECEF meters.
//
// Rotates the ECEF range vector into the SEZ (South-East-Zenith) frame per
// Vallado Section 4.4, then az = atan2(east, -south).
func ECEFToLookAngles(sta Station, target [3]float64) LookAngles {
	rx := target[0] - sta.ECEF[0]
	ry := target[1] - sta.ECEF[1]
	rz := target[2] - sta.ECEF[2]

	sinLat := math.Sin(sta.LatRad)
	cosLat := math.Cos(sta.LatRad)
	sinLon := math.Sin(sta.LonRad)
	cosLon := math.Cos(sta.LonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rangeMag := math.Sqrt(south*south + east*east + zenith*zenith)

	el := math.Asin(zenith / rangeMag)
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * 180 / math.Pi,
		ElevationDeg: el * 180 / math.Pi,
		RangeM:       rangeMag,
	}
}

// Range returns the distance in meters between a station and a target
// position in ECEF meters.
func Range(sta Station, target [3]float64) float64 {
	dx := target[0] - sta.ECEF[0]
	dy := target[1] - sta.ECEF[1]
	dz := target[2] - sta.ECEF[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
