package grib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListing(t *testing.T) {
	raw := []byte(`{
		"messages": [
			{
				"shortName": "10u",
				"typeOfLevel": "heightAboveGround",
				"level": 10,
				"Ni": 720,
				"Nj": 361,
				"latitudeOfFirstGridPointInDegrees": 90,
				"longitudeOfFirstGridPointInDegrees": 0,
				"latitudeOfLastGridPointInDegrees": -90,
				"longitudeOfLastGridPointInDegrees": 359.5,
				"iDirectionIncrementInDegrees": 0.5,
				"jDirectionIncrementInDegrees": 0.5,
				"dataDate": 20240101,
				"dataTime": 600,
				"stepRange": 0
			},
			{
				"shortName": "10v",
				"typeOfLevel": "heightAboveGround",
				"level": "10",
				"Ni": "720",
				"Nj": "361",
				"latitudeOfFirstGridPointInDegrees": "90",
				"longitudeOfFirstGridPointInDegrees": "0",
				"latitudeOfLastGridPointInDegrees": "-90",
				"longitudeOfLastGridPointInDegrees": "359.5",
				"iDirectionIncrementInDegrees": "0.5",
				"jDirectionIncrementInDegrees": "0.5",
				"dataDate": "20240101",
				"dataTime": "600",
				"stepRange": "0-6"
			}
		]
	}`)

	messages, err := parseListing(raw)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	first := messages[0]
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, "10u", first.ShortName)
	assert.Equal(t, "heightAboveGround", first.TypeOfLevel)
	assert.Equal(t, 10, first.Level)
	assert.Equal(t, 720, first.Nx)
	assert.Equal(t, 361, first.Ny)
	assert.Equal(t, 90.0, first.FirstLat)
	assert.Equal(t, -90.0, first.LastLat)
	assert.Equal(t, 0.5, first.LonIncrement)
	assert.Equal(t, 0, first.ForecastHour)

	// String-typed values coerce to the same result, and range step
	// markers collapse to their upper bound.
	second := messages[1]
	assert.Equal(t, 2, second.Index)
	assert.Equal(t, 720, second.Nx)
	assert.Equal(t, 359.5, second.LastLon)
	assert.Equal(t, 6, second.ForecastHour)
}

func TestParseListing_Invalid(t *testing.T) {
	_, err := parseListing([]byte("GRIB library error: not a grib file"))
	require.Error(t, err)

	_, err = parseListing([]byte(`{"foo": 1}`))
	require.Error(t, err)
}

func TestParseStep(t *testing.T) {
	assert.Equal(t, 0, parseStep("0"))
	assert.Equal(t, 12, parseStep("12"))
	assert.Equal(t, 6, parseStep("0-6"))
	assert.Equal(t, 24, parseStep("18-24"))
	assert.Equal(t, 3, parseStep(float64(3)))
	assert.Equal(t, 0, parseStep(nil))
	assert.Equal(t, 0, parseStep("garbage"))
}

func TestGridMessage_ReferenceTime(t *testing.T) {
	msg := GridMessage{DataDate: 20240101, DataTime: 0}
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), msg.ReferenceTime())

	msg = GridMessage{DataDate: 20231209, DataTime: 1830}
	assert.Equal(t, time.Date(2023, 12, 9, 18, 30, 0, 0, time.UTC), msg.ReferenceTime())
}
