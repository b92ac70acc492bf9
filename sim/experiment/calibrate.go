package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/queue-sim/queue-sim/sim"
)

// Calibration defaults: 90% confidence (tα = 1.643), 10% relative precision.
const (
	DefaultTAlpha          = 1.643
	DefaultDelta           = 0.1
	DefaultMaxIterations   = 10
	DefaultInitialRequests = 100
)

// CalibrationOptions controls the request-count calibration loop.
type CalibrationOptions struct {
	InitialRequests int     // N₀
	TAlpha          float64 // Student/normal quantile for the confidence level
	Delta           float64 // relative precision of the rejection probability
	MaxIterations   int     // upper bound on simulated request counts tried
	Replications    int     // independent runs averaged per iteration (>= 1)
	Parallelism     int     // concurrent runs per iteration (<= 0 means unbounded)
}

// DefaultCalibrationOptions returns the reference calibration parameters.
func DefaultCalibrationOptions() CalibrationOptions {
	return CalibrationOptions{
		InitialRequests: DefaultInitialRequests,
		TAlpha:          DefaultTAlpha,
		Delta:           DefaultDelta,
		MaxIterations:   DefaultMaxIterations,
		Replications:    1,
	}
}

func (o CalibrationOptions) validate() error {
	if o.InitialRequests < 1 {
		return fmt.Errorf("initial requests must be >= 1, got %d", o.InitialRequests)
	}
	if o.TAlpha <= 0 {
		return fmt.Errorf("t-alpha must be > 0, got %v", o.TAlpha)
	}
	if o.Delta <= 0 || o.Delta >= 1 {
		return fmt.Errorf("delta must be in (0, 1), got %v", o.Delta)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", o.MaxIterations)
	}
	if o.Replications < 1 {
		return fmt.Errorf("replications must be >= 1, got %d", o.Replications)
	}
	return nil
}

// CalibrationStep is one (N, p) estimate of the loop.
type CalibrationStep struct {
	Requests             int     `json:"requests"`
	RejectionProbability float64 `json:"rejection_probability"`
}

// Calibration is the outcome of Calibrate.
type Calibration struct {
	Steps     []CalibrationStep `json:"steps"`
	Converged bool              `json:"converged"`
	Requests  int               `json:"requests"` // request count of the last step
	Final     sim.Result        `json:"final"`    // first replication of the last step
}

// RequiredRequests returns the sample size giving relative precision delta at confidence
// tAlpha for a rejection probability p: ⌈tα²·(1−p) / (p·δ²)⌉. Returns 0 when p is not in (0, 1).
func RequiredRequests(p, tAlpha, delta float64) int {
	if p <= 0 || p >= 1 {
		return 0
	}
	return int(math.Ceil(tAlpha * tAlpha * (1 - p) / (p * delta * delta)))
}

// Calibrate searches for the number of requests at which the rejection probability estimate
// is stable: run N₀ requests, derive N₁ from the observed p₀, run N₁, and stop once
// |p₁ − p₀| < δ·p₀. A run with no rejections stops immediately since p = 0 needs no refinement.
func Calibrate(ctx context.Context, sc Scenario, seed int64, opts CalibrationOptions) (*Calibration, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration options: %w", err)
	}

	cal := &Calibration{}
	nextSeed := seed
	estimate := func(n int) (float64, sim.Result, error) {
		run := sc
		run.Sim.NumRequests = n
		seeds := SeedRange(nextSeed, opts.Replications)
		nextSeed += int64(opts.Replications)
		results, err := RunReplications(ctx, run, seeds, opts.Parallelism)
		if err != nil {
			return 0, sim.Result{}, err
		}
		p := Summarize(results).MeanRejection
		cal.Steps = append(cal.Steps, CalibrationStep{Requests: n, RejectionProbability: p})
		logrus.Infof("Calibration step %d: N=%d p=%.4f", len(cal.Steps), n, p)
		return p, results[0], nil
	}

	n := opts.InitialRequests
	p0, res, err := estimate(n)
	if err != nil {
		return nil, err
	}
	cal.Requests, cal.Final = n, res

	cal.Converged = p0 == 0
	for !cal.Converged && len(cal.Steps) < opts.MaxIterations {
		n = max(RequiredRequests(p0, opts.TAlpha, opts.Delta), opts.InitialRequests)
		p1, res, err := estimate(n)
		if err != nil {
			return nil, err
		}
		cal.Requests, cal.Final = n, res
		cal.Converged = p1 == 0 || math.Abs(p1-p0) < opts.Delta*p0
		p0 = p1
	}
	if !cal.Converged {
		logrus.Warnf("Calibration did not converge after %d iterations; last N=%d", len(cal.Steps), cal.Requests)
	}
	return cal, nil
}
