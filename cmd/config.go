package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/queue-sim/queue-sim/sim"
	"github.com/queue-sim/queue-sim/sim/experiment"
	"github.com/queue-sim/queue-sim/sim/trace"
	"github.com/queue-sim/queue-sim/sim/workload"
)

// ScenarioFile is the YAML scenario accepted by --config.
// Omitted fields keep their defaults. All sections must be listed to satisfy
// KnownFields(true) strict parsing.
type ScenarioFile struct {
	Seed     int64         `yaml:"seed"`
	System   SystemSection `yaml:"system"`
	Workload workload.Spec `yaml:"workload"`
	Trace    string        `yaml:"trace_level"`
}

// SystemSection mirrors sim.Config.
type SystemSection struct {
	Sources        int     `yaml:"sources"`
	MeanInterval   float64 `yaml:"mean_interval"`
	BufferSize     int     `yaml:"buffer_size"`
	Servers        int     `yaml:"servers"`
	ServiceMin     float64 `yaml:"service_min"`
	ServiceMax     float64 `yaml:"service_max"`
	Requests       int     `yaml:"requests"`
	StrictDispatch bool    `yaml:"strict_dispatch"`
}

func defaultScenarioFile() ScenarioFile {
	cfg := sim.DefaultConfig()
	return ScenarioFile{
		Seed: 42,
		System: SystemSection{
			Sources:        cfg.NumSources,
			MeanInterval:   cfg.MeanInterval,
			BufferSize:     cfg.BufferCapacity,
			Servers:        cfg.NumServers,
			ServiceMin:     cfg.ServiceMin,
			ServiceMax:     cfg.ServiceMax,
			Requests:       cfg.NumRequests,
			StrictDispatch: cfg.StrictDispatch,
		},
		Workload: workload.DefaultSpec(),
		Trace:    string(trace.TraceLevelNone),
	}
}

// LoadScenarioFile parses path on top of the defaults.
// Uses strict field checking: unknown keys are errors.
func LoadScenarioFile(path string) (ScenarioFile, error) {
	file := defaultScenarioFile()
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("read scenario file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return file, fmt.Errorf("parse scenario file %s: %w", path, err)
	}
	return file, nil
}

func (f ScenarioFile) simConfig() sim.Config {
	return sim.Config{
		NumSources:     f.System.Sources,
		MeanInterval:   f.System.MeanInterval,
		BufferCapacity: f.System.BufferSize,
		NumServers:     f.System.Servers,
		ServiceMin:     f.System.ServiceMin,
		ServiceMax:     f.System.ServiceMax,
		NumRequests:    f.System.Requests,
		StrictDispatch: f.System.StrictDispatch,
	}
}

// CLI flags shared by every command that builds a scenario.
var (
	seed           int64   // Seed for request generation and service times
	logLevel       string  // Log verbosity level
	configPath     string  // Optional YAML scenario file
	numSources     int     // Number of request sources
	meanInterval   float64 // Mean inter-arrival time of the merged stream
	bufferSize     int     // Buffer capacity
	numServers     int     // Number of servers
	serviceMin     float64 // Lower bound of service time
	serviceMax     float64 // Upper bound of service time
	numRequests    int     // Number of requests to generate
	arrivalProcess string  // Inter-arrival process
	arrivalCV      float64 // Coefficient of variation for gamma/weibull arrivals
	serviceDist    string  // Service-time distribution
	strictDispatch bool    // Panic on dispatch anomaly instead of counting a rejection
	traceLevel     string  // Decision trace level
	resultsPath    string  // Optional JSON output path
)

// registerScenarioFlags binds the shared flags to fs. Registering resets the bound
// variables to their defaults.
func registerScenarioFlags(fs *pflag.FlagSet) {
	def := defaultScenarioFile()

	fs.Int64Var(&seed, "seed", def.Seed, "Seed for random request generation")
	fs.StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	fs.StringVar(&configPath, "config", "", "Path to a YAML scenario file; explicitly set flags override it")

	// System topology
	fs.IntVar(&numSources, "sources", def.System.Sources, "Number of request sources")
	fs.Float64Var(&meanInterval, "mean-interval", def.System.MeanInterval, "Mean inter-arrival time across all sources")
	fs.IntVar(&bufferSize, "buffer-size", def.System.BufferSize, "Buffer capacity")
	fs.IntVar(&numServers, "servers", def.System.Servers, "Number of servers")
	fs.Float64Var(&serviceMin, "service-min", def.System.ServiceMin, "Minimum service time")
	fs.Float64Var(&serviceMax, "service-max", def.System.ServiceMax, "Maximum service time")
	fs.IntVar(&numRequests, "requests", def.System.Requests, "Number of requests to generate")
	fs.BoolVar(&strictDispatch, "strict-dispatch", def.System.StrictDispatch, "Treat a dispatch anomaly as fatal")

	// Variate distributions
	fs.StringVar(&arrivalProcess, "arrival-process", workload.ProcessPoisson, "Arrival process (poisson, gamma, weibull, constant)")
	fs.Float64Var(&arrivalCV, "arrival-cv", 1.0, "Coefficient of variation for gamma/weibull arrivals")
	fs.StringVar(&serviceDist, "service-dist", workload.DistUniform, "Service-time distribution (uniform, constant, exponential)")

	// Output
	fs.StringVar(&traceLevel, "trace-level", def.Trace, "Decision trace level (none, decisions)")
	fs.StringVar(&resultsPath, "results-path", "", "Write results as JSON to this path")
}

// resolveScenario builds the scenario and seed from defaults, the optional --config file
// and explicitly set flags, in increasing precedence.
func resolveScenario(fs *pflag.FlagSet) (experiment.Scenario, int64, error) {
	file := defaultScenarioFile()
	if configPath != "" {
		loaded, err := LoadScenarioFile(configPath)
		if err != nil {
			return experiment.Scenario{}, 0, err
		}
		file = loaded
	}

	if fs.Changed("seed") {
		file.Seed = seed
	}
	if fs.Changed("sources") {
		file.System.Sources = numSources
	}
	if fs.Changed("mean-interval") {
		file.System.MeanInterval = meanInterval
	}
	if fs.Changed("buffer-size") {
		file.System.BufferSize = bufferSize
	}
	if fs.Changed("servers") {
		file.System.Servers = numServers
	}
	if fs.Changed("service-min") {
		file.System.ServiceMin = serviceMin
	}
	if fs.Changed("service-max") {
		file.System.ServiceMax = serviceMax
	}
	if fs.Changed("requests") {
		file.System.Requests = numRequests
	}
	if fs.Changed("strict-dispatch") {
		file.System.StrictDispatch = strictDispatch
	}
	if fs.Changed("arrival-process") {
		file.Workload.Arrival.Process = arrivalProcess
	}
	if fs.Changed("arrival-cv") {
		cv := arrivalCV
		file.Workload.Arrival.CV = &cv
	}
	if fs.Changed("service-dist") {
		file.Workload.Service.Distribution = serviceDist
	}
	if fs.Changed("trace-level") {
		file.Trace = traceLevel
	}

	if !trace.IsValidTraceLevel(file.Trace) {
		return experiment.Scenario{}, 0, fmt.Errorf("unknown trace level %q; valid: none, decisions", file.Trace)
	}
	sc := experiment.Scenario{
		Sim:      file.simConfig(),
		Workload: file.Workload,
		Trace:    trace.TraceConfig{Level: trace.TraceLevel(file.Trace)},
	}
	if err := sc.Sim.Validate(); err != nil {
		return experiment.Scenario{}, 0, err
	}
	if err := sc.Workload.Validate(); err != nil {
		return experiment.Scenario{}, 0, err
	}
	return sc, file.Seed, nil
}
