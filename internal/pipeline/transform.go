package pipeline

import (
	"github.com/couchcryptid/weather-sampler-service/internal/domain"
)

// SampleNormalizer implements Normalizer using the domain conversion rules.
type SampleNormalizer struct{}

// NewNormalizer creates a SampleNormalizer.
func NewNormalizer() SampleNormalizer {
	return SampleNormalizer{}
}

func (SampleNormalizer) Normalize(raw domain.RawReading) (domain.WeatherSample, error) {
	return domain.Normalize(raw)
}
