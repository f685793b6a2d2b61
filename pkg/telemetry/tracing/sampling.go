package tracing

import (
	"errors"
	"fmt"
	"math"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler strategies accepted by Config.Sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// ErrInvalidSampler is returned for an unknown strategy or a ratio outside
// [0, 1].
var ErrInvalidSampler = errors.New("invalid trace sampler")

// newSampler builds the root sampler. An empty strategy means ratio when
// 0 < ratio < 1 and always otherwise. A sampled remote parent always wins,
// so a request traced upstream keeps its evaluate spans.
func newSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	if strategy == "" {
		strategy = SamplerAlways
		if ratio > 0 && ratio < 1 {
			strategy = SamplerRatio
		}
	}

	var root sdktrace.Sampler
	switch strategy {
	case SamplerAlways:
		root = sdktrace.AlwaysSample()
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio:
		if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("%w: sample ratio %v outside [0, 1]", ErrInvalidSampler, ratio)
		}
		root = sdktrace.TraceIDRatioBased(ratio)
	default:
		return nil, fmt.Errorf("%w: %q (want always, never or ratio)", ErrInvalidSampler, strategy)
	}
	return sdktrace.ParentBased(root), nil
}

// ValidateSampling checks a strategy and ratio without building a sampler.
func ValidateSampling(strategy string, ratio float64) error {
	_, err := newSampler(strategy, ratio)
	return err
}
