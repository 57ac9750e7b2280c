package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	degreesPerPoint = 22.5
	hPaPerMMHg      = 1.3332
)

// ParseRawReading decodes the "current" object of an Open-Meteo response.
func ParseRawReading(data []byte) (RawReading, error) {
	var raw RawReading
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawReading{}, fmt.Errorf("%w: parse reading: %v", ErrMalformedReading, err)
	}
	return raw, nil
}

// Normalize converts a raw reading into a WeatherSample without an ID.
// It fails with ErrMalformedReading if the timestamp is empty or any required
// field is missing or not numeric; no partial sample is returned.
func Normalize(raw RawReading) (WeatherSample, error) {
	if strings.TrimSpace(raw.Time) == "" {
		return WeatherSample{}, fmt.Errorf("%w: missing time", ErrMalformedReading)
	}

	values := make(map[string]float64, len(RequiredFields))
	for _, name := range RequiredFields {
		v, err := numericField(raw, name)
		if err != nil {
			return WeatherSample{}, err
		}
		values[name] = v
	}

	return WeatherSample{
		Timestamp:           NormalizeTimestamp(raw.Time),
		Temperature:         values[FieldTemperature],
		WindSpeed:           values[FieldWindSpeed],
		WindDirection:       WindDirection(values[FieldWindDirection]),
		Pressure:            PressureMMHg(values[FieldPressure]),
		PrecipitationType:   PrecipitationLabel(weatherCodeKey(values[FieldWeatherCode])),
		PrecipitationAmount: values[FieldPrecipitation],
	}, nil
}

// numericField extracts a required number. JSON null counts as missing.
func numericField(raw RawReading, name string) (float64, error) {
	msg, ok := raw.Values[name]
	if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedReading, name)
	}
	var v float64
	if err := json.Unmarshal(msg, &v); err != nil {
		return 0, fmt.Errorf("%w: %s is not numeric: %s", ErrMalformedReading, name, msg)
	}
	return v, nil
}

// WindDirection buckets a bearing in degrees into one of 16 compass labels.
// Exact halfway bearings round to the even bucket; 360 wraps to N.
func WindDirection(degrees float64) string {
	idx := int(math.RoundToEven(degrees/degreesPerPoint)) % len(compassPoints)
	if idx < 0 {
		idx += len(compassPoints)
	}
	return compassPoints[idx]
}

// PressureMMHg converts hPa to mmHg, rounded half-to-even at two decimals.
func PressureMMHg(hpa float64) float64 {
	return math.RoundToEven(hpa/hPaPerMMHg*100) / 100
}

// PrecipitationLabel looks up a weather code. Unknown codes, clear sky
// included, map to NoPrecipitation.
func PrecipitationLabel(code string) string {
	if label, ok := precipitationLabels[code]; ok {
		return label
	}
	return NoPrecipitation
}

// NormalizeTimestamp replaces the ISO date/time separator with a space.
func NormalizeTimestamp(s string) string {
	return strings.Replace(strings.TrimSpace(s), "T", " ", 1)
}

// weatherCodeKey renders a code in its shortest decimal form, so 61 and 61.0
// both become "61".
func weatherCodeKey(code float64) string {
	return strconv.FormatFloat(code, 'f', -1, 64)
}
