package grib

import (
	"sort"
)

// Canonical variable names for the 10-meter wind components, plus the generic
// fallbacks some models emit instead.
const (
	shortNameEastward10m  = "10u"
	shortNameNorthward10m = "10v"
	shortNameEastward     = "u"
	shortNameNorthward    = "v"

	levelTypeHeightAboveGround = "heightAboveGround"
	levelTypeSurface           = "surface"
)

// componentSet holds, per forecast hour, the best matching message for one
// wind component.
type componentSet map[int]GridMessage

// Hours returns the distinct forecast hours present, sorted ascending.
func (s componentSet) Hours() []int {
	hours := make([]int, 0, len(s))
	for h := range s {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

// matchComponents selects the eastward and northward wind messages for every
// forecast hour in the list. Preferred candidates are the canonical 10-meter
// short names at height-above-ground level 10 or at a surface level; failing
// that, any message carrying the generic component name matches regardless of
// level. Matching is independent per hour: a multi-hour file contributes one
// candidate per component per hour.
//
// A file carrying only one of the two components is not an error at this
// stage: the missing component's set comes back empty, per-hour assembly
// finds no pairable hour, and the caller reports the empty series. Only a
// file with no usable wind candidate at all fails outright.
func matchComponents(messages []GridMessage) (east, north componentSet, err error) {
	east = make(componentSet)
	north = make(componentSet)
	eastRank := make(map[int]int)
	northRank := make(map[int]int)

	for _, msg := range messages {
		if rank, ok := componentRank(msg, shortNameEastward10m, shortNameEastward); ok {
			keepBest(east, eastRank, msg, rank)
		}
		if rank, ok := componentRank(msg, shortNameNorthward10m, shortNameNorthward); ok {
			keepBest(north, northRank, msg, rank)
		}
	}

	if len(east) == 0 && len(north) == 0 {
		return nil, nil, &ComponentNotFoundError{Component: "eastward", Found: distinctShortNames(messages)}
	}
	return east, north, nil
}

// componentRank classifies a message as a candidate for one component.
// Rank 0 is the canonical 10-meter match (height-above-ground level 10 or a
// surface level), rank 1 the generic fallback at any level. The canonical
// name at any other level is not a candidate.
func componentRank(msg GridMessage, canonical, generic string) (int, bool) {
	if msg.ShortName == canonical {
		if (msg.TypeOfLevel == levelTypeHeightAboveGround && msg.Level == 10) ||
			msg.TypeOfLevel == levelTypeSurface {
			return 0, true
		}
		return 0, false
	}
	if msg.ShortName == generic {
		return 1, true
	}
	return 0, false
}

// keepBest records msg for its forecast hour unless a better-ranked candidate
// is already present. Ties keep the first occurrence.
func keepBest(set componentSet, ranks map[int]int, msg GridMessage, rank int) {
	hour := msg.ForecastHour
	if existing, ok := ranks[hour]; ok && existing <= rank {
		return
	}
	set[hour] = msg
	ranks[hour] = rank
}

// distinctShortNames lists the variable names present in the file, for
// diagnosing unsupported inputs.
func distinctShortNames(messages []GridMessage) []string {
	seen := make(map[string]bool)
	var names []string
	for _, msg := range messages {
		if msg.ShortName == "" || seen[msg.ShortName] {
			continue
		}
		seen[msg.ShortName] = true
		names = append(names, msg.ShortName)
	}
	sort.Strings(names)
	return names
}
