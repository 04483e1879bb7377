package grib

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseListing parses the JSON document emitted by the metadata listing mode
// into GridMessages, numbering them 1..N in emission order.
//
// ecCodes is loose about value types: numeric keys may arrive as numbers or
// strings depending on version, and stepRange may be a bare integer or a
// range like "0-6". Parsing is therefore tolerant, key-based, and coerces
// per field.
func parseListing(raw []byte) ([]GridMessage, error) {
	var doc struct {
		Messages []map[string]interface{} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unexpected listing output: %w", err)
	}
	if doc.Messages == nil {
		return nil, fmt.Errorf("listing output has no messages array")
	}

	messages := make([]GridMessage, 0, len(doc.Messages))
	for i, fields := range doc.Messages {
		msg := GridMessage{
			Index:        i + 1,
			ShortName:    strField(fields, "shortName"),
			TypeOfLevel:  strField(fields, "typeOfLevel"),
			Level:        intField(fields, "level"),
			Nx:           intField(fields, "Ni"),
			Ny:           intField(fields, "Nj"),
			FirstLat:     numField(fields, "latitudeOfFirstGridPointInDegrees"),
			FirstLon:     numField(fields, "longitudeOfFirstGridPointInDegrees"),
			LastLat:      numField(fields, "latitudeOfLastGridPointInDegrees"),
			LastLon:      numField(fields, "longitudeOfLastGridPointInDegrees"),
			LatIncrement: numField(fields, "jDirectionIncrementInDegrees"),
			LonIncrement: numField(fields, "iDirectionIncrementInDegrees"),
			DataDate:     intField(fields, "dataDate"),
			DataTime:     intField(fields, "dataTime"),
			ForecastHour: parseStep(fields["stepRange"]),
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// parseStep extracts the forecast hour from a step marker. Accumulation
// ranges like "0-6" are valid through their end hour, so the upper bound is
// taken.
func parseStep(v interface{}) int {
	s := coerceString(v)
	if s == "" {
		return 0
	}
	if idx := strings.LastIndex(s, "-"); idx > 0 {
		s = s[idx+1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func coerceString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func strField(fields map[string]interface{}, key string) string {
	return coerceString(fields[key])
}

func numField(fields map[string]interface{}, key string) float64 {
	switch val := fields[key].(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func intField(fields map[string]interface{}, key string) int {
	return int(numField(fields, key))
}
