package grib

import (
	"time"
)

// GridMessage describes one decoded variable/level slice within a GRIB file,
// as reported by the metadata listing of the external decoder. Coordinates are
// kept exactly as reported; normalization happens during assembly.
type GridMessage struct {
	// Index is the 1-based position of the message within the file, used to
	// re-fetch its data via the point-dump mode.
	Index int

	ShortName   string
	TypeOfLevel string
	Level       int

	Nx int
	Ny int

	FirstLat float64
	FirstLon float64
	LastLat  float64
	LastLon  float64

	LatIncrement float64
	LonIncrement float64

	// DataDate is YYYYMMDD, DataTime is HHMM (e.g. 600 for 06:00 UTC).
	DataDate int
	DataTime int

	// ForecastHour is the step offset in hours. Range markers like "0-6"
	// collapse to their upper bound.
	ForecastHour int
}

// ReferenceTime derives the absolute reference time from the message's
// dataDate/dataTime fields.
func (m *GridMessage) ReferenceTime() time.Time {
	year := m.DataDate / 10000
	month := (m.DataDate / 100) % 100
	day := m.DataDate % 100
	hour := m.DataTime / 100
	minute := m.DataTime % 100
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
}

// ScatteredPoint is one raw (lat, lon, value) sample from the decoder's
// point-dump output. Longitude is always normalized to [-180, 180).
type ScatteredPoint struct {
	Lat   float64
	Lon   float64
	Value float64
}

// VelocityHeader is the self-describing grid envelope consumed by the
// particle renderer. Field names are part of the renderer contract and must
// not change.
type VelocityHeader struct {
	ParameterCategory   int     `json:"parameterCategory"`
	ParameterNumber     int     `json:"parameterNumber"`
	ParameterUnit       string  `json:"parameterUnit"`
	ParameterNumberName string  `json:"parameterNumberName"`
	Nx                  int     `json:"nx"`
	Ny                  int     `json:"ny"`
	La1                 float64 `json:"la1"`
	Lo1                 float64 `json:"lo1"`
	La2                 float64 `json:"la2"`
	Lo2                 float64 `json:"lo2"`
	Dx                  float64 `json:"dx"`
	Dy                  float64 `json:"dy"`
	RefTime             string  `json:"refTime"`
	ForecastTime        int     `json:"forecastTime"`
	NumberPoints        int     `json:"numberPoints"`
}

// Renderer parameter identifiers for the wind components (GRIB discipline 0,
// category 2: momentum; number 2 = U, 3 = V).
const (
	parameterCategoryWind = 2
	parameterNumberUWind  = 2
	parameterNumberVWind  = 3
)

// VelocityComponent is one dense wind-component grid: a header plus a flat
// row-major array of length Nx*Ny, row 0 being the northernmost row.
type VelocityComponent struct {
	Header VelocityHeader `json:"header"`
	Data   []float64      `json:"data"`
}

// VelocityData holds exactly two components for one instant in time:
// eastward (U) first, northward (V) second.
type VelocityData [2]VelocityComponent

// TimeStep is one forecast instant of the assembled series.
type TimeStep struct {
	ForecastHour int          `json:"forecastHour"`
	ValidTime    time.Time    `json:"validTime"`
	Data         VelocityData `json:"data"`
}

// MultiTimeVelocityData is the full time-ordered series for one source file.
// Forecast hours are strictly increasing and unique, and all steps share the
// same reference time.
type MultiTimeVelocityData struct {
	TimeSteps []TimeStep `json:"timeSteps"`
	RefTime   time.Time  `json:"refTime"`
}
