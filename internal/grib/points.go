package grib

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// NormalizeLongitude maps any longitude to the [-180, 180) convention. The
// operation is idempotent: re-normalizing a normalized value is a no-op.
func NormalizeLongitude(lon float64) float64 {
	for lon >= 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// parsePointDump parses the whitespace-separated "lat lon value" lines of the
// decoder's point-dump mode. Header lines (starting with "Latitude") and
// lines that do not parse as three numeric fields are skipped, not treated as
// errors: upstream dumps are known to be irregular. The skip count is
// returned for observability.
func parsePointDump(raw []byte) (points []ScatteredPoint, skipped int) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	// Point dumps for large grids exceed the default scanner buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "Latitude") {
			// Column header emitted before the data rows.
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			skipped++
			continue
		}

		lat, errLat := strconv.ParseFloat(fields[0], 64)
		lon, errLon := strconv.ParseFloat(fields[1], 64)
		value, errVal := strconv.ParseFloat(fields[2], 64)
		if errLat != nil || errLon != nil || errVal != nil {
			skipped++
			continue
		}

		// The decoder reports longitudes on the 0..360 range for global
		// grids; rebase immediately so every downstream consumer sees the
		// [-180, 180) convention.
		points = append(points, ScatteredPoint{Lat: lat, Lon: NormalizeLongitude(lon), Value: value})
	}

	return points, skipped
}
