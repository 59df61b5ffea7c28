package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"
)

// ErrUnknownZip is returned when the origin zip code is not in the dataset.
var ErrUnknownZip = errors.New("unknown zip code")

const (
	// Mean Earth radius, miles. Used by the haversine distance below.
	earthRadiusMiles = 3958.7613

	// H3 resolution used to index zip centroids. Resolution 5 hexagons have
	// an average edge length of ~8.5 km, which keeps grid disks small for
	// the 1-100 mile radii this resolver serves.
	indexResolution = 5
	hexEdgeKmRes5   = 8.544

	kmPerMile = 1.609344
)

// Candidate is a zip code within a requested radius, with the coordinates
// the weather fetch needs. Held only for the duration of one lookup.
type Candidate struct {
	Zip      string  `json:"zip"`
	City     string  `json:"city"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distanceMiles"`
}

// Resolver answers radius queries against an in-memory zip code dataset.
//
// Distance metric: true geodesic circle. A zip is within radius r of the
// origin when the haversine great-circle distance between the two centroids
// is <= r miles.
type Resolver struct {
	entries map[string]Entry
	cells   map[h3.Cell][]string
}

// NewResolver indexes the dataset entries. Duplicate zips keep the last row.
func NewResolver(entries []Entry) (*Resolver, error) {
	r := &Resolver{
		entries: make(map[string]Entry, len(entries)),
		cells:   make(map[h3.Cell][]string),
	}
	for _, e := range entries {
		cell, err := h3.LatLngToCell(h3.LatLng{Lat: e.Lat, Lng: e.Lng}, indexResolution)
		if err != nil {
			return nil, fmt.Errorf("index zip %s: %w", e.Zip, err)
		}
		if _, dup := r.entries[e.Zip]; !dup {
			r.cells[cell] = append(r.cells[cell], e.Zip)
		}
		r.entries[e.Zip] = e
	}
	return r, nil
}

// Lookup returns the dataset entry for a zip code.
func (r *Resolver) Lookup(zip string) (Entry, bool) {
	e, ok := r.entries[zip]
	return e, ok
}

// Size returns the number of indexed zip codes.
func (r *Resolver) Size() int {
	return len(r.entries)
}

// WithinRadius returns every zip code whose centroid lies within radiusMiles
// of the origin zip's centroid, the origin itself always included. Results
// carry no duplicates and are sorted by zip code.
func (r *Resolver) WithinRadius(originZip string, radiusMiles float64) ([]Candidate, error) {
	if radiusMiles <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %g", radiusMiles)
	}
	origin, ok := r.entries[originZip]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZip, originZip)
	}

	originCell, err := h3.LatLngToCell(h3.LatLng{Lat: origin.Lat, Lng: origin.Lng}, indexResolution)
	if err != nil {
		return nil, fmt.Errorf("index origin %s: %w", originZip, err)
	}

	// Grid disk must cover the full circle. Ring steps advance at least one
	// hexagon edge length, so k rings cover at least k*edge km; +1 absorbs
	// centroid placement within the origin cell.
	radiusKm := radiusMiles * kmPerMile
	k := int(math.Ceil(radiusKm/hexEdgeKmRes5)) + 1

	disk, err := h3.GridDisk(originCell, k)
	if err != nil {
		return nil, fmt.Errorf("grid disk around %s: %w", originZip, err)
	}

	var out []Candidate
	for _, cell := range disk {
		for _, zip := range r.cells[cell] {
			e := r.entries[zip]
			d := haversineMiles(origin.Lat, origin.Lng, e.Lat, e.Lng)
			if d <= radiusMiles {
				out = append(out, Candidate{
					Zip:      e.Zip,
					City:     e.City,
					Lat:      e.Lat,
					Lng:      e.Lng,
					Distance: d,
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Zip < out[j].Zip })
	return out, nil
}

// haversineMiles computes the great-circle distance between two points.
func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}
