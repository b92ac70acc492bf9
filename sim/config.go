package sim

import (
	"fmt"
	"math"
)

// Config groups the construction-time parameters of a single run.
// Variate distributions are configured separately in sim/workload.
type Config struct {
	NumSources     int     // number of request sources N (must be > 0)
	MeanInterval   float64 // mean inter-arrival time across all sources (must be > 0)
	BufferCapacity int     // buffer slots C (must be > 0)
	NumServers     int     // servers M (must be > 0)
	ServiceMin     float64 // lower bound of the service-time range (must be >= 0)
	ServiceMax     float64 // upper bound of the service-time range (must be >= ServiceMin)
	NumRequests    int     // requests to generate (fixed-N termination; 0 is allowed)

	// StrictDispatch treats "extracted from the buffer but no server free" as an invariant
	// violation (panic). When false the request is counted as rejected and a warning is logged.
	StrictDispatch bool
}

// DefaultConfig returns the reference automatic-mode parameters.
func DefaultConfig() Config {
	return Config{
		NumSources:     10,
		MeanInterval:   0.7,
		BufferCapacity: 4,
		NumServers:     2,
		ServiceMin:     1.0,
		ServiceMax:     1.4,
		NumRequests:    5000,
		StrictDispatch: true,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks that the configuration describes a runnable topology.
// Time parameters must be finite.
func (c Config) Validate() error {
	if !isFinite(c.MeanInterval) || !isFinite(c.ServiceMin) || !isFinite(c.ServiceMax) {
		return fmt.Errorf("time parameters must be finite, got mean interval %v, service range [%v, %v]",
			c.MeanInterval, c.ServiceMin, c.ServiceMax)
	}
	if c.NumSources <= 0 {
		return fmt.Errorf("number of sources must be > 0, got %d", c.NumSources)
	}
	if c.MeanInterval <= 0 {
		return fmt.Errorf("mean inter-arrival time must be > 0, got %v", c.MeanInterval)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer capacity must be > 0, got %d", c.BufferCapacity)
	}
	if c.NumServers <= 0 {
		return fmt.Errorf("number of servers must be > 0, got %d", c.NumServers)
	}
	if c.ServiceMin < 0 {
		return fmt.Errorf("service-time minimum must be >= 0, got %v", c.ServiceMin)
	}
	if c.ServiceMax < c.ServiceMin {
		return fmt.Errorf("service-time maximum %v is below minimum %v", c.ServiceMax, c.ServiceMin)
	}
	if c.NumRequests < 0 {
		return fmt.Errorf("number of requests must be >= 0, got %d", c.NumRequests)
	}
	return nil
}
