package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm_SamePoint(t *testing.T) {
	points := []Coordinate{
		{0, 0},
		{30.2672, -97.7431},
		{-33.8688, 151.2093},
		{89.9, 179.9},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, DistanceKm(p, p))
	}
}

func TestDistanceKm_OneDegreeLongitudeAtEquator(t *testing.T) {
	d := DistanceKm(Coordinate{0, 0}, Coordinate{0, 1})
	assert.InDelta(t, 111.19, d, 0.01)
}

func TestDistanceKm_AustinDallas(t *testing.T) {
	austin := Coordinate{Latitude: 30.2672, Longitude: -97.7431}
	dallas := Coordinate{Latitude: 32.7767, Longitude: -96.7970}
	assert.InDelta(t, 290, DistanceKm(austin, dallas), 10)
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][2]Coordinate{
		{{0, 0}, {10, 10}},
		{{51.5074, -0.1278}, {40.7128, -74.0060}},
		{{-45, 170}, {45, -170}},
	}
	for _, p := range pairs {
		assert.InDelta(t, DistanceKm(p[0], p[1]), DistanceKm(p[1], p[0]), 1e-9)
	}
}

func TestDistanceKm_TriangleInequality(t *testing.T) {
	pts := []Coordinate{
		{0, 0},
		{10, 20},
		{-30, 45},
		{60, -120},
		{0, 179.5},
		{0, -179.5},
	}
	for _, a := range pts {
		for _, b := range pts {
			for _, c := range pts {
				ab := DistanceKm(a, b)
				bc := DistanceKm(b, c)
				ac := DistanceKm(a, c)
				assert.LessOrEqual(t, ac, ab+bc+1e-6)
			}
		}
	}
}

func TestDistanceKm_Antipodal(t *testing.T) {
	d := DistanceKm(Coordinate{0, 0}, Coordinate{0, 180})
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 0.001)
}

func TestDistanceKm_OutOfRangeDoesNotPanic(t *testing.T) {
	d := DistanceKm(Coordinate{0, 0}, Coordinate{200, 400})
	assert.False(t, math.IsNaN(d))
	assert.GreaterOrEqual(t, d, 0.0)
}

func TestDistanceKm_NonFinite(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceKm(Coordinate{0, 0}, Coordinate{math.NaN(), 0})))
	d := DistanceKm(Coordinate{0, 0}, Coordinate{math.Inf(1), 0})
	assert.False(t, !math.IsNaN(d) && !math.IsInf(d, 0), "expected non-finite, got %v", d)
}

func TestCoordinate_IsFinite(t *testing.T) {
	assert.True(t, Coordinate{1, 2}.IsFinite())
	assert.False(t, Coordinate{math.NaN(), 2}.IsFinite())
	assert.False(t, Coordinate{1, math.Inf(-1)}.IsFinite())
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	center := Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	box := BoundingBox(center, 1)

	assert.True(t, box.Contains(center))
	// Points 0.9 km north/east are inside.
	assert.True(t, box.Contains(Coordinate{center.Latitude + 0.9/kmPerDegreeLat, center.Longitude}))
	// A point 5 km away is not.
	assert.False(t, box.Contains(Coordinate{center.Latitude + 5/kmPerDegreeLat, center.Longitude}))
}

func TestBoundingBox_ClampsAtPole(t *testing.T) {
	box := BoundingBox(Coordinate{Latitude: 90, Longitude: 0}, 50)
	assert.Equal(t, 90.0, box.MaxLat)
	assert.Equal(t, -180.0, box.MinLng)
	assert.Equal(t, 180.0, box.MaxLng)
}

func TestBBox_OverpassString(t *testing.T) {
	b := BBox{MinLat: 1, MinLng: 2, MaxLat: 3, MaxLng: 4}
	assert.Equal(t, "1.000000,2.000000,3.000000,4.000000", b.OverpassString())
}

func TestEncodeDecodePoint(t *testing.T) {
	in := Coordinate{Latitude: 30.2672, Longitude: -97.7431}
	data, err := EncodePoint(in)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// NDR byte order marker.
	assert.Equal(t, byte(1), data[0])

	out, err := DecodePoint(data)
	require.NoError(t, err)
	assert.InDelta(t, in.Latitude, out.Latitude, 1e-12)
	assert.InDelta(t, in.Longitude, out.Longitude, 1e-12)
}

func TestDecodePoint_Garbage(t *testing.T) {
	_, err := DecodePoint([]byte{0x01, 0x02})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geo: decode point")
}
