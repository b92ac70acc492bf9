package sim

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-sim/queue-sim/sim/internal/testutil"
	"github.com/queue-sim/queue-sim/sim/trace"
)

// smallConfig is a single-source topology; tests override what they need.
func smallConfig(bufferCap, servers int) Config {
	cfg := DefaultConfig()
	cfg.NumSources = 1
	cfg.BufferCapacity = bufferCap
	cfg.NumServers = servers
	return cfg
}

// runScripted injects arrivals at the given times (all from source 1) and runs to drain.
func runScripted(t *testing.T, cfg Config, arrivals []float64, durations ...float64) (*Simulator, []*Request) {
	t.Helper()
	s, err := NewSimulator(cfg, testutil.NewFixedServiceTimes(durations...))
	require.NoError(t, err)
	s.EnableTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	reqs := make([]*Request, len(arrivals))
	for i, at := range arrivals {
		reqs[i] = NewRequest(i+1, 1, at)
		s.InjectArrival(reqs[i])
	}
	require.NoError(t, s.Run(context.Background()))
	return s, reqs
}

func assertConservation(t *testing.T, res Result) {
	t.Helper()
	assert.Equal(t, res.TotalGenerated, res.Completed+res.TotalRejected+res.StillResident,
		"generated must equal completed + rejected + still resident")
	assert.LessOrEqual(t, res.TotalServed, res.TotalGenerated)
	assert.LessOrEqual(t, res.TotalRejected, res.TotalGenerated)
}

func TestSimulator_SecondArrivalWaitsForSingleServer(t *testing.T) {
	// GIVEN one server, one buffer slot and arrivals at 0 and 0.05 with unit service
	s, reqs := runScripted(t, smallConfig(1, 1), []float64{0, 0.05}, 1.0)
	res, ok := s.Result()
	require.True(t, ok)

	// THEN the first is served over (0,1) and the second over (1,2)
	assert.Equal(t, 0.0, reqs[0].ServiceStart)
	assert.Equal(t, 1.0, reqs[0].ServiceEnd)
	assert.Equal(t, 1.0, reqs[1].ServiceStart)
	assert.Equal(t, 2.0, reqs[1].ServiceEnd)
	for _, r := range reqs {
		assert.Equal(t, StatusCompleted, r.Status)
	}

	assert.Equal(t, 2, res.TotalGenerated)
	assert.Equal(t, 2, res.TotalServed)
	assert.Equal(t, 0, res.TotalRejected)
	assert.InDelta(t, 0.475, res.MeanWait, 1e-12)
	assert.InDelta(t, 1.0, res.MeanService, 1e-12)
	assert.InDelta(t, 2.0, res.ElapsedTime, 1e-12)
	assert.InDelta(t, 1.0, res.Servers[0].Utilization, 1e-12)
	assert.Equal(t, StateDrained, s.State)
	assertConservation(t, res)

	summary := trace.Summarize(s.Trace)
	assert.Equal(t, 1, summary.DirectDispatches)
	assert.Equal(t, 1, summary.BufferedDispatches)
}

func TestSimulator_OverflowEvictsNewest(t *testing.T) {
	// GIVEN a single server seized until t=10 and a one-slot buffer
	// WHEN requests arrive at 1, 2 and 3
	s, reqs := runScripted(t, smallConfig(1, 1), []float64{0, 1, 2, 3}, 10, 1)
	res, _ := s.Result()

	// THEN the arrivals at 1 and 2 are evicted in turn and the one at 3 is served at 10
	assert.True(t, reqs[1].Rejected)
	assert.True(t, reqs[2].Rejected)
	assert.Equal(t, StatusCompleted, reqs[3].Status)
	assert.Equal(t, 10.0, reqs[3].ServiceStart)
	assert.InDelta(t, 7.0, reqs[3].WaitTime(), 1e-12)

	assert.Equal(t, 4, res.TotalGenerated)
	assert.Equal(t, 2, res.TotalServed)
	assert.Equal(t, 2, res.TotalRejected)
	assert.InDelta(t, 0.5, res.RejectionProbability, 1e-12)
	assertConservation(t, res)

	require.Len(t, s.Trace.Evictions, 2)
	assert.Equal(t, "1.2", s.Trace.Evictions[0].EvictedKey)
	assert.Equal(t, "1.3", s.Trace.Evictions[0].IncomingKey)
	assert.Equal(t, "1.3", s.Trace.Evictions[1].EvictedKey)
}

func TestSimulator_NoRequestsYieldsZeros(t *testing.T) {
	s, _ := runScripted(t, smallConfig(2, 2), nil, 1.0)
	res, ok := s.Result()

	require.True(t, ok)
	assert.Zero(t, res.TotalGenerated)
	assert.Zero(t, res.TotalServed)
	assert.Zero(t, res.TotalRejected)
	assert.Zero(t, res.RejectionProbability)
	assert.Zero(t, res.MeanWait)
	assert.Zero(t, res.MeanSystemTime)
	assert.Zero(t, res.WaitVariance)
	assert.Zero(t, res.ElapsedTime)
	require.Len(t, res.Servers, 2)
	for _, srv := range res.Servers {
		assert.Zero(t, srv.Utilization)
	}
}

func TestSimulator_ArrivalAtDepartureInstantReclaimsServer(t *testing.T) {
	// GIVEN one server finishing at t=1 and two arrivals at exactly t=1,
	// both injected before the departure is scheduled
	s, reqs := runScripted(t, smallConfig(1, 1), []float64{0, 1, 1}, 1.0, 1.5)
	res, _ := s.Result()

	// THEN the first t=1 arrival starts immediately, the departure does not release
	// the reclaimed server, and the second waits for it
	assert.Equal(t, 1.0, reqs[1].ServiceStart)
	assert.Equal(t, 2.5, reqs[1].ServiceEnd)
	assert.Equal(t, 2.5, reqs[2].ServiceStart)
	assert.Equal(t, 4.0, reqs[2].ServiceEnd)
	assert.Equal(t, 0, res.TotalRejected)
	assert.Equal(t, 3, res.Completed)
	assert.InDelta(t, 4.0, res.Servers[0].BusyTime, 1e-12)
	assertConservation(t, res)
}

func TestSimulator_LowestIDServerPreferred(t *testing.T) {
	// GIVEN three servers and arrivals spaced so every server is free each time
	s, _ := runScripted(t, smallConfig(2, 3), []float64{0, 1, 2, 3}, 0.5)
	res, _ := s.Result()

	// THEN server 1 serves everything
	assert.Equal(t, 4, res.Servers[0].Served)
	assert.Zero(t, res.Servers[1].Served)
	assert.Zero(t, res.Servers[2].Served)

	// AND overlapping arrivals spill to server 2
	s, _ = runScripted(t, smallConfig(2, 3), []float64{0, 0.1}, 1.0)
	res, _ = s.Result()
	assert.Equal(t, 1, res.Servers[0].Served)
	assert.Equal(t, 1, res.Servers[1].Served)
}

// randomService draws uniform durations from a partitioned stream.
type randomService struct {
	rng      *rand.Rand
	min, max float64
}

func (r *randomService) Next() float64 { return r.min + r.rng.Float64()*(r.max-r.min) }

func runRandom(t *testing.T, cfg Config, seed int64) (*Simulator, Result) {
	t.Helper()
	rng := NewPartitionedRNG(NewSimulationKey(seed))
	s, err := NewSimulator(cfg, &randomService{rng: rng.ForSubsystem(SubsystemService), min: cfg.ServiceMin, max: cfg.ServiceMax})
	require.NoError(t, err)

	arrivals, sources := rng.ForSubsystem(SubsystemArrivals), rng.ForSubsystem(SubsystemSources)
	nextID := map[int]int{}
	now := 0.0
	for i := 0; i < cfg.NumRequests; i++ {
		src := 1 + sources.Intn(cfg.NumSources)
		now += arrivals.ExpFloat64() * cfg.MeanInterval
		nextID[src]++
		s.InjectArrival(NewRequest(nextID[src], src, now))
	}
	require.NoError(t, s.Run(context.Background()))
	res, ok := s.Result()
	require.True(t, ok)
	return s, res
}

func TestSimulator_OverloadedRunInvariants(t *testing.T) {
	// GIVEN the reference topology, which is overloaded (λ·E[S] ≈ 1.71 for 2 servers)
	cfg := DefaultConfig()
	cfg.NumRequests = 2000
	s, res := runRandom(t, cfg, 42)

	// THEN every request is accounted for and rejections occur
	assertConservation(t, res)
	assert.Equal(t, 2000, res.TotalGenerated)
	assert.Zero(t, res.StillResident)
	assert.Zero(t, s.Buffer.Len())
	assert.Zero(t, s.InService())
	assert.Positive(t, res.TotalRejected)
	assert.Greater(t, res.RejectionProbability, 0.0)
	assert.Less(t, res.RejectionProbability, 1.0)

	// AND per-source counts add up to the totals
	var gen, served, rejected int
	for _, src := range res.Sources {
		gen += src.Generated
		served += src.Served
		rejected += src.Rejected
	}
	assert.Equal(t, res.TotalGenerated, gen)
	assert.Equal(t, res.TotalServed, served)
	assert.Equal(t, res.TotalRejected, rejected)

	// AND utilization stays within [0, 1] with lower IDs busier
	for _, srv := range res.Servers {
		assert.GreaterOrEqual(t, srv.Utilization, 0.0)
		assert.LessOrEqual(t, srv.Utilization, 1.0)
	}
	assert.GreaterOrEqual(t, res.Servers[0].BusyTime, res.Servers[1].BusyTime)
	assert.GreaterOrEqual(t, res.ElapsedTime, s.Clock)
}

func TestSimulator_SameSeedIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumRequests = 500

	_, a := runRandom(t, cfg, 7)
	_, b := runRandom(t, cfg, 7)
	_, c := runRandom(t, cfg, 8)

	assert.NotEqual(t, a.RunID, b.RunID, "each run gets its own ID")
	a.RunID, b.RunID, c.RunID = "", "", ""
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSimulator_CancelledContextAborts(t *testing.T) {
	s, err := NewSimulator(smallConfig(1, 1), testutil.NewFixedServiceTimes(1))
	require.NoError(t, err)
	s.InjectArrival(NewRequest(1, 1, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Run(ctx)

	assert.True(t, errors.Is(err, context.Canceled))
	_, ok := s.Result()
	assert.False(t, ok)
	assert.Equal(t, StateRunning, s.State)
}

func TestSimulator_LifecycleGuards(t *testing.T) {
	s, err := NewSimulator(smallConfig(1, 1), testutil.NewFixedServiceTimes(1))
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))

	assert.Error(t, s.Run(context.Background()), "second Run")
	assert.Panics(t, func() { s.InjectArrival(NewRequest(1, 1, 0)) })

	_, err = NewSimulator(smallConfig(0, 1), testutil.NewFixedServiceTimes(1))
	assert.Error(t, err)
	_, err = NewSimulator(smallConfig(1, 1), nil)
	assert.Error(t, err)
}

func TestSimulator_DispatchAnomaly(t *testing.T) {
	t.Run("strict panics", func(t *testing.T) {
		s, err := NewSimulator(smallConfig(1, 1), testutil.NewFixedServiceTimes(1))
		require.NoError(t, err)
		req := NewRequest(1, 1, 0)
		req.markBuffered()
		assert.Panics(t, func() { s.dispatchAnomaly(req, 0) })
	})

	t.Run("soft counts a rejection", func(t *testing.T) {
		cfg := smallConfig(1, 1)
		cfg.StrictDispatch = false
		s, err := NewSimulator(cfg, testutil.NewFixedServiceTimes(1))
		require.NoError(t, err)
		req := NewRequest(1, 1, 0)
		req.markBuffered()

		s.dispatchAnomaly(req, 0)

		assert.Equal(t, StatusRejected, req.Status)
		assert.Equal(t, 1, s.Metrics.Rejected)
		assert.Equal(t, 1, s.Metrics.Sources[1].Rejected)
	})
}
