package neobase

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Default coordinate fields of the bundled schema.
const (
	LatField = "lat"
	LngField = "lng"
)

// LatLng is a position in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

func (ll LatLng) toS2() s2.LatLng { return s2.LatLngFromDegrees(ll.Lat, ll.Lng) }

// DistanceBetween returns the great-circle distance between a and b in
// kilometers, using the haversine formula on a sphere of radius EarthRadiusKm.
func DistanceBetween(a, b LatLng) float64 {
	return float64(a.toS2().Distance(b.toS2())) * EarthRadiusKm
}

// Location returns the position of key from the lat and lng fields.
func (b *Base) Location(key string) (LatLng, error) {
	return b.LocationFrom(key, LatField, LngField)
}

// LocationFrom returns the position of key read from the given fields.
// Values may be strings or float64.
func (b *Base) LocationFrom(key, latField, lngField string) (LatLng, error) {
	rec, err := b.Record(key)
	if err != nil {
		return LatLng{}, err
	}
	return locationOf(rec, latField, lngField)
}

func locationOf(rec Record, latField, lngField string) (LatLng, error) {
	lat, err := coordinate(rec, latField)
	if err != nil {
		return LatLng{}, &MissingCoordinateError{Key: rec.Key, Err: err}
	}
	lng, err := coordinate(rec, lngField)
	if err != nil {
		return LatLng{}, &MissingCoordinateError{Key: rec.Key, Err: err}
	}
	return LatLng{Lat: lat, Lng: lng}, nil
}

var errEmptyCoordinate = errors.New("empty value")

func coordinate(rec Record, field string) (float64, error) {
	v, ok := rec.Get(field)
	if !ok {
		return 0, fmt.Errorf("field %q not in schema", field)
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("field %q: %w", field, errEmptyCoordinate)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: %w", field, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("field %q: %w", field, errEmptyCoordinate)
	}
	return 0, fmt.Errorf("field %q: unsupported type %T", field, v)
}

// Distance returns the great-circle distance in kilometers between two keys.
func (b *Base) Distance(keyA, keyB string) (float64, error) {
	a, err := b.Location(keyA)
	if err != nil {
		return 0, err
	}
	c, err := b.Location(keyB)
	if err != nil {
		return 0, err
	}
	return DistanceBetween(a, c), nil
}

// PathDistance returns the length of the path visiting keys in order. Fewer
// than two keys give 0, provided every key resolves.
func (b *Base) PathDistance(keys ...string) (float64, error) {
	locs := make([]LatLng, len(keys))
	for i, k := range keys {
		ll, err := b.Location(k)
		if err != nil {
			return 0, err
		}
		locs[i] = ll
	}

	// Neumaier compensated sum.
	var sum, comp float64
	for i := 1; i < len(locs); i++ {
		d := DistanceBetween(locs[i-1], locs[i])
		t := sum + d
		if math.Abs(sum) >= math.Abs(d) {
			comp += (sum - t) + d
		} else {
			comp += (d - t) + sum
		}
		sum = t
	}
	return sum + comp, nil
}
