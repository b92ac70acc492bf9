package workload

import (
	"fmt"
	"math"
)

// Arrival process names.
const (
	ProcessPoisson  = "poisson"
	ProcessGamma    = "gamma"
	ProcessWeibull  = "weibull"
	ProcessConstant = "constant"
)

// Service distribution names.
const (
	DistUniform     = "uniform"
	DistConstant    = "constant"
	DistExponential = "exponential"
)

// Spec selects the variate distributions of a run. The numeric parameters
// (mean interval, service range, counts) live in sim.Config.
type Spec struct {
	Arrival ArrivalSpec `yaml:"arrival"`
	Service ServiceSpec `yaml:"service"`
}

// ArrivalSpec configures the inter-arrival process.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	CV      *float64 `yaml:"cv,omitempty"`
}

// ServiceSpec configures the service-time distribution.
type ServiceSpec struct {
	Distribution string `yaml:"distribution"`
}

// DefaultSpec is Poisson arrivals with uniform service times.
func DefaultSpec() Spec {
	return Spec{
		Arrival: ArrivalSpec{Process: ProcessPoisson},
		Service: ServiceSpec{Distribution: DistUniform},
	}
}

// Valid value registries.
var (
	validArrivalProcesses = map[string]bool{
		"": true, ProcessPoisson: true, ProcessGamma: true, ProcessWeibull: true, ProcessConstant: true,
	}
	validServiceDists = map[string]bool{
		"": true, DistUniform: true, DistConstant: true, DistExponential: true,
	}
)

// Validate checks that all fields in the spec are valid.
func (s Spec) Validate() error {
	if !validArrivalProcesses[s.Arrival.Process] {
		return fmt.Errorf("unknown arrival process %q; valid: poisson, gamma, weibull, constant", s.Arrival.Process)
	}
	if s.Arrival.CV != nil {
		cv := *s.Arrival.CV
		if math.IsNaN(cv) || math.IsInf(cv, 0) || cv <= 0 {
			return fmt.Errorf("arrival.cv must be a positive finite number, got %f", cv)
		}
		if s.Arrival.Process == ProcessWeibull && (cv < 0.01 || cv > 10.4) {
			return fmt.Errorf("weibull CV must be in [0.01, 10.4], got %f", cv)
		}
	}
	if !validServiceDists[s.Service.Distribution] {
		return fmt.Errorf("unknown service distribution %q; valid: uniform, constant, exponential", s.Service.Distribution)
	}
	return nil
}

func (a ArrivalSpec) cv() float64 {
	if a.CV == nil || *a.CV <= 0 {
		return 1.0
	}
	return *a.CV
}
