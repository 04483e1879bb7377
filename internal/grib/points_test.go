package grib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLongitude(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{90, 90},
		{-90, -90},
		{180, -180},
		{270, -90},
		{359.75, -0.25},
		{360, 0},
		{-180, -180},
		{-270, 90},
		{540, -180},
	}

	for _, tc := range cases {
		got := NormalizeLongitude(tc.in)
		assert.InDelta(t, tc.want, got, 1e-9, "input %v", tc.in)
		assert.GreaterOrEqual(t, got, -180.0)
		assert.Less(t, got, 180.0)

		// Idempotent: normalizing a normalized value is a no-op.
		assert.Equal(t, got, NormalizeLongitude(got))
	}
}

func TestParsePointDump(t *testing.T) {
	raw := []byte(`Latitude Longitude Value
50.000 10.000 3.25
50.000 350.000 -1.5
50.000 180.000 2.5
49.000 11.000 0
`)

	points, skipped := parsePointDump(raw)
	require.Len(t, points, 4)
	assert.Equal(t, 0, skipped)

	assert.Equal(t, ScatteredPoint{Lat: 50, Lon: 10, Value: 3.25}, points[0])
	// Longitudes at or above 180 are rebased immediately.
	assert.Equal(t, -10.0, points[1].Lon)
	assert.Equal(t, -180.0, points[2].Lon)
	assert.Equal(t, ScatteredPoint{Lat: 49, Lon: 11, Value: 0}, points[3])
}

func TestParsePointDump_SkipsMalformedLines(t *testing.T) {
	raw := []byte(`Latitude Longitude Value
50.000 10.000 1.0
garbage line
49.000 nope 2.0
48.000 12.000
47.000 13.000 4.0
`)

	points, skipped := parsePointDump(raw)
	require.Len(t, points, 2)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, 1.0, points[0].Value)
	assert.Equal(t, 4.0, points[1].Value)
}

func TestParsePointDump_Empty(t *testing.T) {
	points, skipped := parsePointDump(nil)
	assert.Empty(t, points)
	assert.Equal(t, 0, skipped)
}
