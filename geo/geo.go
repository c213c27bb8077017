// Package geo answers the nearest-registered-client lookup using
// great-circle distance.
package geo

import (
	"math"
	"strconv"

	errs "crate-vision/pkg/errors"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// Client is a registered delivery customer location (WGS 84).
type Client struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Nearest is the result of a nearest-client lookup. Distance is in km.
type Nearest struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Haversine returns the great-circle distance in km between two
// latitude/longitude points. Symmetric, and zero iff the points are
// identical.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(dlat / 2)
	sinLon := math.Sin(dlon / 2)
	a := sinLat*sinLat + math.Cos(rlat1)*math.Cos(rlat2)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// NearestClient scans clients in input order and returns the one with
// the minimal Haversine distance to the query point. Comparison is
// strict less-than, so on an exact distance tie the first client in the
// input wins; the slice must not be re-ordered before scanning. An empty
// client list is a not-found condition, never a zero-distance result.
func NearestClient(lat, lon float64, clients []Client) (Nearest, error) {
	if len(clients) == 0 {
		return Nearest{}, errs.E(errs.KindNotFound, "no clients registered")
	}

	best := Nearest{}
	bestDist := math.Inf(1)
	for _, c := range clients {
		d := Haversine(lat, lon, c.Latitude, c.Longitude)
		if d < bestDist {
			bestDist = d
			best = Nearest{ID: c.ID, Name: c.Name, Distance: d}
		}
	}
	return best, nil
}

// ParseCoords parses and validates query coordinates. Unparseable or
// out-of-range values are invalid input.
func ParseCoords(latStr, lonStr string) (lat, lon float64, err error) {
	if latStr == "" || lonStr == "" {
		return 0, 0, errs.E(errs.KindInvalidInput, "lat and lon query parameters are required")
	}
	lat, perr := strconv.ParseFloat(latStr, 64)
	if perr != nil {
		return 0, 0, errs.Wrap(errs.KindInvalidInput, "lat is not a valid number", perr)
	}
	lon, perr = strconv.ParseFloat(lonStr, 64)
	if perr != nil {
		return 0, 0, errs.Wrap(errs.KindInvalidInput, "lon is not a valid number", perr)
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, errs.E(errs.KindInvalidInput, "lat must be within [-90, 90]")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, errs.E(errs.KindInvalidInput, "lon must be within [-180, 180]")
	}
	return lat, lon, nil
}
