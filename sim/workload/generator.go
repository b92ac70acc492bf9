package workload

import (
	"fmt"
	"math/rand"

	"github.com/queue-sim/queue-sim/sim"
)

// SourceSelector picks which source emits the next request.
type SourceSelector interface {
	// Select returns a source ID in 1..N.
	Select(rng *rand.Rand) int
}

// UniformSelector picks each of N sources with equal probability.
type UniformSelector struct {
	n int
}

// NewUniformSelector creates a selector over sources 1..n.
func NewUniformSelector(n int) *UniformSelector {
	if n < 1 {
		panic(fmt.Sprintf("NewUniformSelector: need at least one source, got %d", n))
	}
	return &UniformSelector{n: n}
}

func (s *UniformSelector) Select(rng *rand.Rand) int {
	return 1 + rng.Intn(s.n)
}

// GenerateRequests creates cfg.NumRequests requests in generation order.
// Deterministic given the same config, spec and RNG key.
//
// Each request is emitted by a source chosen uniformly at random, one interval after the
// previous request of the merged stream, and numbered within its source starting at 1.
func GenerateRequests(cfg sim.Config, spec Spec, rng *sim.PartitionedRNG) ([]*sim.Request, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workload spec: %w", err)
	}
	arrivals, err := NewArrivalSampler(spec.Arrival, cfg.MeanInterval)
	if err != nil {
		return nil, err
	}
	return generate(cfg.NumRequests, NewUniformSelector(cfg.NumSources), arrivals,
		rng.ForSubsystem(sim.SubsystemSources), rng.ForSubsystem(sim.SubsystemArrivals)), nil
}

func generate(n int, selector SourceSelector, arrivals ArrivalSampler, sourceRNG, arrivalRNG *rand.Rand) []*sim.Request {
	requests := make([]*sim.Request, 0, n)
	nextID := make(map[int]int)
	currentTime := 0.0
	for i := 0; i < n; i++ {
		source := selector.Select(sourceRNG)
		currentTime += arrivals.SampleInterval(arrivalRNG)
		nextID[source]++
		requests = append(requests, sim.NewRequest(nextID[source], source, currentTime))
	}
	return requests
}
