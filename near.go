package neobase

import (
	"math"
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// DefaultRadiusKm is the search radius used by the CLI when none is given.
const DefaultRadiusKm = 50.0

// maxCoverCells bounds the number of cells covering a search cap. More cells
// fit the cap tighter but cost one binary search each.
const maxCoverCells = 16

// closestStartKm is the first radius tried by the closest-N search before it
// doubles outward.
const closestStartKm = 25.0

// cellEntry places one record on the s2 leaf-cell curve.
type cellEntry struct {
	id  s2.CellID
	pos int
	ll  LatLng
}

// Neighbor is a search result.
type Neighbor struct {
	Key      string
	Distance float64 // kilometers
}

// buildCellIndex indexes every record that has coordinates, sorted along the
// Hilbert curve so that any s2 cell maps to a contiguous range.
func (b *Base) buildCellIndex() {
	b.cells = make([]cellEntry, 0, len(b.records))
	for pos, rec := range b.records {
		ll, err := locationOf(rec, LatField, LngField)
		if err != nil {
			continue
		}
		b.cells = append(b.cells, cellEntry{
			id:  s2.CellIDFromLatLng(ll.toS2()),
			pos: pos,
			ll:  ll,
		})
	}
	sort.Slice(b.cells, func(i, j int) bool { return b.cells[i].id < b.cells[j].id })
}

// searchCap returns the spherical cap of radiusKm around ll.
func searchCap(ll LatLng, radiusKm float64) s2.Cap {
	angle := math.Min(radiusKm/EarthRadiusKm, math.Pi)
	return s2.CapFromCenterAngle(s2.PointFromLatLng(ll.toS2()), s1.Angle(angle))
}

// within returns the indexed records at most radiusKm away from ll.
func (b *Base) within(ll LatLng, radiusKm float64) []Neighbor {
	coverer := &s2.RegionCoverer{MaxLevel: s2.MaxLevel, MaxCells: maxCoverCells}
	covering := coverer.Covering(searchCap(ll, radiusKm))

	seen := make(map[int]bool)
	var out []Neighbor
	for _, cell := range covering {
		lo, hi := cell.RangeMin(), cell.RangeMax()
		i := sort.Search(len(b.cells), func(i int) bool { return b.cells[i].id >= lo })
		for ; i < len(b.cells) && b.cells[i].id <= hi; i++ {
			c := b.cells[i]
			if seen[c.pos] {
				continue
			}
			seen[c.pos] = true
			if d := DistanceBetween(ll, c.ll); d <= radiusKm {
				out = append(out, Neighbor{Key: b.entries[c.pos], Distance: d})
			}
		}
	}
	return out
}

// scan measures ll against the given record positions.
func (b *Base) scan(ll LatLng, positions []int) []Neighbor {
	out := make([]Neighbor, 0, len(positions))
	for _, pos := range positions {
		other, err := locationOf(b.records[pos], LatField, LngField)
		if err != nil {
			continue
		}
		out = append(out, Neighbor{Key: b.entries[pos], Distance: DistanceBetween(ll, other)})
	}
	return out
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Key < ns[j].Key
	})
}

// FindNearLocation returns the entries within radiusKm of ll, nearest first.
// Entries without coordinates never match.
func (b *Base) FindNearLocation(ll LatLng, radiusKm float64, opts ...SearchOption) []Neighbor {
	if radiusKm < 0 || math.IsNaN(radiusKm) || math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) {
		return nil
	}
	cfg := newSearchConfig(opts)

	var out []Neighbor
	if cfg.from != nil {
		for _, n := range b.scan(ll, b.candidates(cfg.from)) {
			if n.Distance <= radiusKm {
				out = append(out, n)
			}
		}
	} else {
		out = b.within(ll, radiusKm)
	}
	sortNeighbors(out)
	return out
}

// FindNear is FindNearLocation around the position of key.
func (b *Base) FindNear(key string, radiusKm float64, opts ...SearchOption) ([]Neighbor, error) {
	ll, err := b.Location(key)
	if err != nil {
		return nil, err
	}
	return b.FindNearLocation(ll, radiusKm, opts...), nil
}

// FindClosestFromLocation returns the n entries closest to ll, nearest first.
func (b *Base) FindClosestFromLocation(ll LatLng, n int, opts ...SearchOption) []Neighbor {
	if n <= 0 || math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) {
		return nil
	}
	cfg := newSearchConfig(opts)

	var out []Neighbor
	if cfg.from != nil {
		out = b.scan(ll, b.candidates(cfg.from))
	} else {
		// Grow the cap until it holds n entries or the whole sphere.
		maxKm := math.Pi * EarthRadiusKm
		for radius := closestStartKm; ; radius *= 2 {
			radius = math.Min(radius, maxKm)
			out = b.within(ll, radius)
			if len(out) >= n || radius >= maxKm {
				break
			}
		}
	}
	sortNeighbors(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// FindClosest is FindClosestFromLocation from the position of key. The key
// itself is part of the candidates, at distance 0.
func (b *Base) FindClosest(key string, n int, opts ...SearchOption) ([]Neighbor, error) {
	ll, err := b.Location(key)
	if err != nil {
		return nil, err
	}
	return b.FindClosestFromLocation(ll, n, opts...), nil
}

// defaultGeohashPrecision is the geohash length used when none is given.
const defaultGeohashPrecision = 12

// Geohash returns the geohash of key's position. A non-positive precision
// selects the full 12 characters.
func (b *Base) Geohash(key string, precision int) (string, error) {
	ll, err := b.Location(key)
	if err != nil {
		return "", err
	}
	if precision <= 0 {
		precision = defaultGeohashPrecision
	}
	return geohash.EncodeWithPrecision(ll.Lat, ll.Lng, precision), nil
}
