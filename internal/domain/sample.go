package domain

import (
	"encoding/json"
	"fmt"
)

// Open-Meteo "current" variables consumed by the normalizer.
const (
	FieldTemperature   = "temperature_2m"
	FieldWindSpeed     = "wind_speed_10m"
	FieldWindDirection = "wind_direction_10m"
	FieldPressure      = "pressure_msl"
	FieldPrecipitation = "precipitation"
	FieldWeatherCode   = "weather_code"
)

// RequiredFields lists the numeric fields every reading must carry.
var RequiredFields = []string{
	FieldTemperature,
	FieldWindSpeed,
	FieldWindDirection,
	FieldPressure,
	FieldPrecipitation,
	FieldWeatherCode,
}

// RawReading is the unprocessed "current" object of a provider response.
// Values are kept as raw JSON so a missing field can be told apart from a
// non-numeric one.
type RawReading struct {
	Time   string
	Values map[string]json.RawMessage
}

// UnmarshalJSON splits the "time" member from the measured values.
func (r *RawReading) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if members == nil {
		return fmt.Errorf("reading is null")
	}

	r.Time = ""
	if rawTime, ok := members["time"]; ok {
		if err := json.Unmarshal(rawTime, &r.Time); err != nil {
			return fmt.Errorf("time: %w", err)
		}
		delete(members, "time")
	}
	r.Values = members
	return nil
}

// WeatherSample is one normalized observation. ID is zero until the store
// assigns it.
type WeatherSample struct {
	ID                  int64   `json:"id"`
	Timestamp           string  `json:"timestamp"`
	Temperature         float64 `json:"temperature"`
	WindSpeed           float64 `json:"wind_speed"`
	WindDirection       string  `json:"wind_direction"`
	Pressure            float64 `json:"pressure"`
	PrecipitationType   string  `json:"precipitation_type"`
	PrecipitationAmount float64 `json:"precipitation_amount"`
}
