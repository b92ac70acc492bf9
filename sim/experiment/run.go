// Package experiment runs independent simulations: single runs, parallel replications,
// and calibration of the request count needed for a target precision.
package experiment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/queue-sim/queue-sim/sim"
	"github.com/queue-sim/queue-sim/sim/trace"
	"github.com/queue-sim/queue-sim/sim/workload"
)

// Scenario is everything needed to build one run besides the seed.
type Scenario struct {
	Sim      sim.Config
	Workload workload.Spec
	Trace    trace.TraceConfig
}

// RunOutput is the outcome of a single run.
type RunOutput struct {
	Result sim.Result
	Trace  *trace.SimulationTrace // nil unless tracing was enabled
}

// RunOnce generates the workload for seed, simulates it to drain and returns the result.
// Every call builds its own calendar, buffer, server pool, RNG and statistics.
func RunOnce(ctx context.Context, sc Scenario, seed int64) (RunOutput, error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))

	requests, err := workload.GenerateRequests(sc.Sim, sc.Workload, rng)
	if err != nil {
		return RunOutput{}, fmt.Errorf("generate workload: %w", err)
	}
	service, err := workload.NewServiceTimeSource(sc.Sim, sc.Workload.Service, rng)
	if err != nil {
		return RunOutput{}, fmt.Errorf("service time source: %w", err)
	}
	s, err := sim.NewSimulator(sc.Sim, service)
	if err != nil {
		return RunOutput{}, err
	}
	s.EnableTrace(sc.Trace)
	for _, req := range requests {
		s.InjectArrival(req)
	}
	if err := s.Run(ctx); err != nil {
		return RunOutput{}, err
	}
	res, _ := s.Result()
	res.Seed = seed
	return RunOutput{Result: res, Trace: s.Trace}, nil
}

// RunReplications runs one independent simulation per seed, at most parallelism at a time
// (parallelism <= 0 means unbounded). Results are returned in seed order. The first
// failure cancels the remaining runs.
func RunReplications(ctx context.Context, sc Scenario, seeds []int64, parallelism int) ([]sim.Result, error) {
	results := make([]sim.Result, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, seed := range seeds {
		g.Go(func() error {
			out, err := RunOnce(gctx, sc, seed)
			if err != nil {
				return fmt.Errorf("replication %d (seed %d): %w", i, seed, err)
			}
			results[i] = out.Result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.Debugf("Completed %d replications", len(seeds))
	return results, nil
}

// SeedRange returns n consecutive seeds starting at base.
func SeedRange(base int64, n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)
	}
	return seeds
}

// ReplicationSummary aggregates key statistics across replications.
type ReplicationSummary struct {
	Count           int       `json:"count"`
	MeanRejection   float64   `json:"mean_rejection_probability"`
	StdDevRejection float64   `json:"stddev_rejection_probability"`
	MeanWait        float64   `json:"mean_wait"`
	MeanSystemTime  float64   `json:"mean_system_time"`
	MeanElapsedTime float64   `json:"mean_elapsed_time"`
	MeanUtilization []float64 `json:"mean_utilization"` // per server, in server ID order
}

// Summarize computes means (and the rejection-probability standard deviation) over results.
// Returns a zero summary for empty input.
func Summarize(results []sim.Result) ReplicationSummary {
	summary := ReplicationSummary{Count: len(results)}
	if len(results) == 0 {
		return summary
	}
	rej := make([]float64, len(results))
	wait := make([]float64, len(results))
	sys := make([]float64, len(results))
	elapsed := make([]float64, len(results))
	for i, r := range results {
		rej[i] = r.RejectionProbability
		wait[i] = r.MeanWait
		sys[i] = r.MeanSystemTime
		elapsed[i] = r.ElapsedTime
	}
	summary.MeanRejection = stat.Mean(rej, nil)
	if len(rej) > 1 {
		summary.StdDevRejection = stat.StdDev(rej, nil)
	}
	summary.MeanWait = stat.Mean(wait, nil)
	summary.MeanSystemTime = stat.Mean(sys, nil)
	summary.MeanElapsedTime = stat.Mean(elapsed, nil)

	numServers := len(results[0].Servers)
	summary.MeanUtilization = make([]float64, numServers)
	for j := 0; j < numServers; j++ {
		util := make([]float64, 0, len(results))
		for _, r := range results {
			if j < len(r.Servers) {
				util = append(util, r.Servers[j].Utilization)
			}
		}
		if len(util) > 0 {
			summary.MeanUtilization[j] = stat.Mean(util, nil)
		}
	}
	return summary
}
