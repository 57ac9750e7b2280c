// Package domain models weather samples taken from the Open-Meteo forecast API.
//
// # Data Source
//
// Readings come from the "current" block of https://api.open-meteo.com/v1/forecast.
// The service asks for a fixed set of variables, a fixed timezone and wind speed
// in meters per second, so no unit or timezone conversion is needed for those
// fields here.
//
// # Open-Meteo Conventions
//
// Timestamps:
//
//	ISO 8601 local time without offset, minute resolution: "2024-04-26T15:15".
//	The date/time separator is replaced with a space; the value is stored as text.
//
// Wind direction:
//
//	Degrees 0–360, meteorological convention (direction the wind blows from).
//	Bucketed into 16 compass points of 22.5° each, starting at due north:
//	N, NNE, NE, ENE, E, ESE, SE, SSE, S, SSW, SW, WSW, W, WNW, NW, NNW.
//	Halfway values round to the even bucket (11.25° → N, 33.75° → NE).
//
// Pressure:
//
//	"pressure_msl" is hPa at mean sea level. Samples store mmHg:
//	hPa / 1.3332, rounded half-to-even at two decimals (1013.0 → 759.83).
//
// Weather codes:
//
//	WMO 4677 codes as reported by Open-Meteo. Only drizzle, rain, freezing rain,
//	snow, snow grains, shower and thunderstorm codes carry a precipitation label
//	(22 codes). Everything else, including clear sky (0) and fog, is reported as
//	"No precipitation". See [PrecipitationLabel].
//
// # Identity
//
// A [WeatherSample] has no identity until the store assigns one. IDs grow
// strictly with insertion order and are never reused.
package domain
