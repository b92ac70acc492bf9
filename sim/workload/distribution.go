package workload

import (
	"fmt"
	"math/rand"

	"github.com/queue-sim/queue-sim/sim"
)

// ServiceSampler generates service durations.
type ServiceSampler interface {
	// Sample returns a non-negative duration.
	Sample(rng *rand.Rand) float64
}

// UniformSampler draws durations uniformly from [min, max].
type UniformSampler struct {
	min, max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	if s.min == s.max {
		return s.min
	}
	return s.min + rng.Float64()*(s.max-s.min)
}

// ConstantSampler always returns the same duration.
type ConstantSampler struct {
	value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) float64 {
	return s.value
}

// ExponentialSampler draws exponentially-distributed durations with the given mean.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * s.mean
}

// NewServiceSampler creates a ServiceSampler for spec over the [min, max] range.
// Non-uniform distributions use the range midpoint as their mean.
func NewServiceSampler(spec ServiceSpec, min, max float64) (ServiceSampler, error) {
	if min < 0 || max < min {
		return nil, fmt.Errorf("invalid service range [%v, %v]", min, max)
	}
	switch spec.Distribution {
	case "", DistUniform:
		return &UniformSampler{min: min, max: max}, nil
	case DistConstant:
		return &ConstantSampler{value: (min + max) / 2}, nil
	case DistExponential:
		return &ExponentialSampler{mean: (min + max) / 2}, nil
	default:
		return nil, fmt.Errorf("unknown service distribution %q", spec.Distribution)
	}
}

// boundServiceSource ties a ServiceSampler to its RNG stream.
type boundServiceSource struct {
	sampler ServiceSampler
	rng     *rand.Rand
}

func (b *boundServiceSource) Next() float64 {
	return b.sampler.Sample(b.rng)
}

// NewServiceTimeSource builds the sim.ServiceTimeSource for a run, drawing from the
// service subsystem of rng.
func NewServiceTimeSource(cfg sim.Config, spec ServiceSpec, rng *sim.PartitionedRNG) (sim.ServiceTimeSource, error) {
	sampler, err := NewServiceSampler(spec, cfg.ServiceMin, cfg.ServiceMax)
	if err != nil {
		return nil, err
	}
	return &boundServiceSource{sampler: sampler, rng: rng.ForSubsystem(sim.SubsystemService)}, nil
}
