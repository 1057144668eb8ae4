package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// Amenity is a normalized amenity key such as "wheelchair_accessible".
// Keys outside the known set are kept verbatim and classify as AmenityOther.
type Amenity string

// Known amenity keys.
const (
	AmenityWheelchairAccessible Amenity = "wheelchair_accessible"
	AmenityBabyChanging         Amenity = "baby_changing"
	AmenityFree                 Amenity = "free"
	AmenityWellLit              Amenity = "well_lit"
)

// AmenityKind enumerates the amenity categories the app understands.
type AmenityKind int

const (
	AmenityOther AmenityKind = iota
	KindWheelchairAccessible
	KindBabyChanging
	KindFree
	KindWellLit
)

// KnownAmenities lists the recognized amenities in display order.
var KnownAmenities = []Amenity{
	AmenityWheelchairAccessible,
	AmenityBabyChanging,
	AmenityFree,
	AmenityWellLit,
}

// ParseAmenity normalizes a raw key: trimmed, lowercased, spaces and dashes
// folded to underscores.
func ParseAmenity(raw string) Amenity {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Amenity(s)
}

// Kind classifies the amenity.
func (a Amenity) Kind() AmenityKind {
	switch a {
	case AmenityWheelchairAccessible:
		return KindWheelchairAccessible
	case AmenityBabyChanging:
		return KindBabyChanging
	case AmenityFree:
		return KindFree
	case AmenityWellLit:
		return KindWellLit
	default:
		return AmenityOther
	}
}

// Label returns the human-readable name. Unknown keys are returned as-is.
func (a Amenity) Label() string {
	switch a.Kind() {
	case KindWheelchairAccessible:
		return "Wheelchair Accessible"
	case KindBabyChanging:
		return "Baby Changing Station"
	case KindFree:
		return "Free to Use"
	case KindWellLit:
		return "Well Lit"
	default:
		return string(a)
	}
}

// AmenitySet is an unordered set of amenities. The nil set is empty and
// safe to read.
type AmenitySet map[Amenity]struct{}

// NewAmenitySet builds a set from raw keys, normalizing each and skipping blanks.
func NewAmenitySet(keys ...string) AmenitySet {
	s := make(AmenitySet, len(keys))
	for _, k := range keys {
		a := ParseAmenity(k)
		if a == "" {
			continue
		}
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether a is in the set.
func (s AmenitySet) Has(a Amenity) bool {
	_, ok := s[a]
	return ok
}

// Add inserts a into the set.
func (s AmenitySet) Add(a Amenity) {
	s[a] = struct{}{}
}

// ContainsAll reports whether every member of required is in s. An empty
// requirement is always satisfied.
func (s AmenitySet) ContainsAll(required AmenitySet) bool {
	for a := range required {
		if !s.Has(a) {
			return false
		}
	}
	return true
}

// Slice returns the members sorted lexically.
func (s AmenitySet) Slice() []Amenity {
	out := make([]Amenity, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the members as sorted plain strings.
func (s AmenitySet) Strings() []string {
	sl := s.Slice()
	out := make([]string, len(sl))
	for i, a := range sl {
		out[i] = string(a)
	}
	return out
}

// Clone returns an independent copy.
func (s AmenitySet) Clone() AmenitySet {
	out := make(AmenitySet, len(s))
	for a := range s {
		out[a] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array of keys.
func (s AmenitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of keys. null decodes to an empty set.
func (s *AmenitySet) UnmarshalJSON(data []byte) error {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*s = NewAmenitySet(keys...)
	return nil
}
