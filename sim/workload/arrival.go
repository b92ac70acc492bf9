package workload

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ArrivalSampler generates inter-arrival intervals for the merged source stream.
type ArrivalSampler interface {
	// SampleInterval returns the next inter-arrival interval in simulated time units.
	// Always returns a non-negative value.
	SampleInterval(rng *rand.Rand) float64
}

// PoissonSampler generates exponentially-distributed intervals (CV=1).
type PoissonSampler struct {
	rate float64 // λ = 1 / mean interval
}

func (s *PoissonSampler) SampleInterval(rng *rand.Rand) float64 {
	return rng.ExpFloat64() / s.rate
}

// GammaSampler generates Gamma-distributed intervals.
// CV > 1 produces bursty arrivals; CV < 1 produces smoother-than-Poisson arrivals.
// Implemented using Marsaglia-Tsang's method for shape >= 1,
// with transformation for shape < 1.
type GammaSampler struct {
	shape float64 // 1/CV² (alpha parameter)
	scale float64 // mean·CV² (beta parameter)
}

func (s *GammaSampler) SampleInterval(rng *rand.Rand) float64 {
	return gammaRand(rng, s.shape, s.scale)
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape >= 1: direct method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler generates Weibull-distributed intervals.
type WeibullSampler struct {
	shape float64 // Weibull k parameter
	scale float64 // Weibull λ parameter
}

func (s *WeibullSampler) SampleInterval(rng *rand.Rand) float64 {
	// Inverse CDF: scale * (-ln(U))^(1/shape)
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64 // prevent -ln(0) = +Inf
	}
	return s.scale * math.Pow(-math.Log(u), 1.0/s.shape)
}

// ConstantArrivalSampler emits perfectly periodic arrivals.
type ConstantArrivalSampler struct {
	interval float64
}

func (s *ConstantArrivalSampler) SampleInterval(_ *rand.Rand) float64 {
	return s.interval
}

// NewArrivalSampler creates an ArrivalSampler for spec with the given mean interval.
func NewArrivalSampler(spec ArrivalSpec, meanInterval float64) (ArrivalSampler, error) {
	if meanInterval <= 0 || math.IsNaN(meanInterval) || math.IsInf(meanInterval, 0) {
		return nil, fmt.Errorf("mean interval must be a positive finite number, got %v", meanInterval)
	}
	switch spec.Process {
	case "", ProcessPoisson:
		return &PoissonSampler{rate: 1.0 / meanInterval}, nil

	case ProcessGamma:
		cv := spec.cv()
		// shape = 1/CV², scale = mean * CV²
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{rate: 1.0 / meanInterval}, nil
		}
		return &GammaSampler{shape: shape, scale: meanInterval * cv * cv}, nil

	case ProcessWeibull:
		k := weibullShapeFromCV(spec.cv())
		// scale = mean / Γ(1 + 1/k)
		return &WeibullSampler{shape: k, scale: meanInterval / math.Gamma(1.0+1.0/k)}, nil

	case ProcessConstant:
		return &ConstantArrivalSampler{interval: meanInterval}, nil

	default:
		return nil, fmt.Errorf("unknown arrival process %q", spec.Process)
	}
}

// weibullShapeFromCV finds Weibull shape parameter k such that
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, using bisection.
// Range: k ∈ [0.1, 100], tolerance: |CV_computed - CV_target| < 0.001.
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

// weibullCV computes the coefficient of variation for Weibull(k).
func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
