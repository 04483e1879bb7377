package grib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(index int, shortName, typeOfLevel string, level, hour int) GridMessage {
	return GridMessage{
		Index:        index,
		ShortName:    shortName,
		TypeOfLevel:  typeOfLevel,
		Level:        level,
		ForecastHour: hour,
	}
}

func TestMatchComponents_Canonical10m(t *testing.T) {
	east, north, err := matchComponents([]GridMessage{
		msg(1, "t", "surface", 0, 0),
		msg(2, "10u", "heightAboveGround", 10, 0),
		msg(3, "10v", "heightAboveGround", 10, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, east[0].Index)
	assert.Equal(t, 3, north[0].Index)
}

func TestMatchComponents_SurfaceLevel(t *testing.T) {
	east, north, err := matchComponents([]GridMessage{
		msg(1, "10u", "surface", 0, 0),
		msg(2, "10v", "surface", 0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, east[0].Index)
	assert.Equal(t, 2, north[0].Index)
}

func TestMatchComponents_GenericFallback(t *testing.T) {
	east, north, err := matchComponents([]GridMessage{
		msg(1, "u", "isobaricInhPa", 850, 0),
		msg(2, "v", "isobaricInhPa", 850, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, east[0].Index)
	assert.Equal(t, 2, north[0].Index)
}

func TestMatchComponents_CanonicalBeatsGeneric(t *testing.T) {
	east, _, err := matchComponents([]GridMessage{
		msg(1, "u", "isobaricInhPa", 850, 0),
		msg(2, "10u", "heightAboveGround", 10, 0),
		msg(3, "10v", "heightAboveGround", 10, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, east[0].Index)
}

func TestMatchComponents_CanonicalAtOtherLevelIgnored(t *testing.T) {
	// The canonical short name only counts at 10 m height or a surface
	// level; an isobaric slice is not a usable candidate.
	east, north, err := matchComponents([]GridMessage{
		msg(1, "10u", "isobaricInhPa", 850, 0),
		msg(2, "10v", "heightAboveGround", 10, 0),
	})
	require.NoError(t, err)
	assert.Empty(t, east)
	assert.Equal(t, 2, north[0].Index)
}

func TestMatchComponents_SingleComponentYieldsEmptySet(t *testing.T) {
	// One usable component is not a matching failure; the empty opposite
	// set lets assembly report an empty series instead.
	east, north, err := matchComponents([]GridMessage{
		msg(1, "10u", "heightAboveGround", 10, 0),
		msg(2, "10u", "heightAboveGround", 10, 6),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 6}, east.Hours())
	assert.Empty(t, north)
}

func TestMatchComponents_IndependentPerHour(t *testing.T) {
	east, north, err := matchComponents([]GridMessage{
		msg(1, "10u", "heightAboveGround", 10, 0),
		msg(2, "10v", "heightAboveGround", 10, 0),
		msg(3, "10u", "heightAboveGround", 10, 6),
		msg(4, "10v", "heightAboveGround", 10, 6),
		msg(5, "10u", "heightAboveGround", 10, 12),
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 6, 12}, east.Hours())
	assert.Equal(t, []int{0, 6}, north.Hours())
	assert.Equal(t, 3, east[6].Index)
	assert.Equal(t, 4, north[6].Index)
}

func TestMatchComponents_NoneFoundListsVariables(t *testing.T) {
	_, _, err := matchComponents([]GridMessage{
		msg(1, "t", "surface", 0, 0),
		msg(2, "prmsl", "meanSea", 0, 0),
		msg(3, "t", "surface", 0, 6),
	})

	var notFound *ComponentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "eastward", notFound.Component)
	assert.Equal(t, []string{"prmsl", "t"}, notFound.Found)
	assert.Contains(t, notFound.Error(), "prmsl")
}
