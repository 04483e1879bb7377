package grib

import (
	"math"
)

// GridStats carries reconstruction diagnostics. Gaps and discards are not
// errors (partial dumps degrade gracefully), but they are worth counting.
type GridStats struct {
	Placed     int // points assigned to a cell
	OutOfRange int // points whose computed indices fell outside the grid
	Unfilled   int // cells never touched by a point (left at zero)
}

// ReconstructGrid converts unordered scattered samples into a dense nx*ny
// row-major array with row 0 at the northernmost latitude.
//
// Cell indices are derived from the bounding box of the samples themselves:
// i from the minimum longitude eastward, j from the maximum latitude
// downward (which yields the north-first ordering). Points that land outside
// the grid are discarded; cells no point lands in stay at the zero default.
// No interpolation: each cell receives at most one raw sample.
func ReconstructGrid(points []ScatteredPoint, nx, ny int) ([]float64, GridStats) {
	data := make([]float64, nx*ny)
	var stats GridStats

	if len(points) == 0 {
		stats.Unfilled = nx * ny
		return data, stats
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	// Degenerate single-row/column grids would divide by zero.
	dLat := 1.0
	if ny > 1 {
		dLat = (maxLat - minLat) / float64(ny-1)
	}
	dLon := 1.0
	if nx > 1 {
		dLon = (maxLon - minLon) / float64(nx-1)
	}
	if dLat == 0 {
		dLat = 1
	}
	if dLon == 0 {
		dLon = 1
	}

	filled := make([]bool, nx*ny)
	for _, p := range points {
		i := int(math.Round((p.Lon - minLon) / dLon))
		j := int(math.Round((maxLat - p.Lat) / dLat))
		if i < 0 || i >= nx || j < 0 || j >= ny {
			stats.OutOfRange++
			continue
		}
		idx := j*nx + i
		if !filled[idx] {
			filled[idx] = true
			stats.Placed++
		}
		data[idx] = p.Value
	}

	stats.Unfilled = nx*ny - countTrue(filled)
	return data, stats
}

func countTrue(bits []bool) int {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}
