package model

import (
	"fmt"
	"strings"
)

// Cluster capacity bounds. A host's qualification result never exceeds
// MaxClusterSize entries; MinClusterSize is a viability signal for upstream
// consumers, not a filter — fewer qualified neighbors is a valid outcome.
const (
	MinClusterSize = 3
	MaxClusterSize = 5
)

// Pool identifies which registered collection a record belongs to.
type Pool string

const (
	PoolHosts     Pool = "hosts"
	PoolNeighbors Pool = "neighbors"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AddressRecord is a registered home address. Records are append-only and
// never mutated after creation; duplicate (address, city, state) tuples may
// coexist. Coordinates are populated at registration, via geocoding when the
// caller did not supply them.
type AddressRecord struct {
	ID        string  `json:"id,omitempty"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FullAddress returns the canonical "{address}, {city}, {state}" form used
// in query responses.
func (r AddressRecord) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s", r.Address, r.City, r.State)
}

// Coordinate returns the record's position.
func (r AddressRecord) Coordinate() Coordinate {
	return Coordinate{Lat: r.Latitude, Lon: r.Longitude}
}

// HasCoordinates reports whether the record carries a usable position.
// (0, 0) is open ocean off West Africa and never a registered home.
func (r AddressRecord) HasCoordinates() bool {
	return r.Latitude != 0 || r.Longitude != 0
}

// SameAddress reports whether two records share the (address, city, state)
// natural key, ignoring case and surrounding whitespace.
func (r AddressRecord) SameAddress(other AddressRecord) bool {
	return normalize(r.Address) == normalize(other.Address) &&
		normalize(r.City) == normalize(other.City) &&
		normalize(r.State) == normalize(other.State)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FullAddresses maps records to their canonical full-address strings,
// preserving order.
func FullAddresses(records []AddressRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.FullAddress()
	}
	return out
}
