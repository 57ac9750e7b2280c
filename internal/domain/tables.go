package domain

// NoPrecipitation is the label for weather codes outside the precipitation table.
const NoPrecipitation = "No precipitation"

// compassPoints are the 16 wind direction buckets, clockwise from due north.
var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// precipitationLabels maps WMO weather codes (decimal string form) to labels.
var precipitationLabels = map[string]string{
	"51": "Drizzle: light",
	"53": "Drizzle: moderate",
	"55": "Drizzle: dense",
	"56": "Freezing drizzle: light",
	"57": "Freezing drizzle: dense",
	"61": "Rain: slight",
	"63": "Rain: moderate",
	"65": "Rain: heavy",
	"66": "Freezing rain: light",
	"67": "Freezing rain: heavy",
	"71": "Snow fall: slight",
	"73": "Snow fall: moderate",
	"75": "Snow fall: heavy",
	"77": "Snow grains",
	"80": "Rain showers: slight",
	"81": "Rain showers: moderate",
	"82": "Rain showers: violent",
	"85": "Snow showers: slight",
	"86": "Snow showers: heavy",
	"95": "Thunderstorm: slight or moderate",
	"96": "Thunderstorm with slight hail",
	"99": "Thunderstorm with heavy hail",
}

// CompassPoints returns the 16 direction labels in bucket order.
func CompassPoints() [16]string {
	return compassPoints
}

// IsCompassLabel reports whether s is one of the 16 direction labels.
func IsCompassLabel(s string) bool {
	for _, p := range compassPoints {
		if p == s {
			return true
		}
	}
	return false
}

// IsPrecipitationLabel reports whether s is a label PrecipitationLabel can return.
func IsPrecipitationLabel(s string) bool {
	if s == NoPrecipitation {
		return true
	}
	for _, label := range precipitationLabels {
		if label == s {
			return true
		}
	}
	return false
}
