package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/queue-sim/queue-sim/sim"
	"github.com/queue-sim/queue-sim/sim/experiment"
	"github.com/queue-sim/queue-sim/sim/trace"
)

var (
	// CLI flags for replicate and calibrate
	replications    int     // Independent runs of replicate
	calReplications int     // Independent runs averaged per calibration step
	parallelism     int     // Concurrent runs; 0 means unbounded
	initialRequests int     // Calibration starting request count N₀
	tAlpha          float64 // Confidence quantile for calibration
	delta           float64 // Relative precision target for calibration
	maxIterations   int     // Calibration iteration cap
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "queue-sim",
	Short: "Discrete-event simulator for a finite-buffer multi-server queueing system",
}

// setupLogging parses --log and applies it.
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// mustResolveScenario builds the scenario for cmd or exits.
func mustResolveScenario(cmd *cobra.Command) (experiment.Scenario, int64) {
	sc, s, err := resolveScenario(cmd.Flags())
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	logrus.Infof("Scenario: sources=%d mean-interval=%v buffer=%d servers=%d service=[%v, %v] requests=%d arrival=%q service-dist=%q seed=%d",
		sc.Sim.NumSources, sc.Sim.MeanInterval, sc.Sim.BufferCapacity, sc.Sim.NumServers,
		sc.Sim.ServiceMin, sc.Sim.ServiceMax, sc.Sim.NumRequests,
		sc.Workload.Arrival.Process, sc.Workload.Service.Distribution, s)
	return sc, s
}

// writeJSON writes v as indented JSON to path.
func writeJSON(path string, v any) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logrus.Infof("Wrote %s", path)
	return nil
}

func printTraceSummary(w io.Writer, st *trace.SimulationTrace, numServers int) {
	s := trace.Summarize(st)
	fmt.Fprintln(w, "\n=== Decision Trace ===")
	fmt.Fprintf(w, "Evictions            : %d\n", s.TotalEvictions)
	fmt.Fprintf(w, "Dispatches           : %d (direct %d, from buffer %d)\n",
		s.TotalDispatches, s.DirectDispatches, s.BufferedDispatches)
	fmt.Fprintf(w, "Mean / Max Wait      : %.4f / %.4f\n", s.MeanWait, s.MaxWait)
	for id := 1; id <= numServers; id++ {
		fmt.Fprintf(w, "Server %-14d: %d\n", id, s.ServerDistribution[id])
	}
}

func printReplications(w io.Writer, results []sim.Result, summary experiment.ReplicationSummary) {
	fmt.Fprintln(w, "=== Replications ===")
	fmt.Fprintf(w, "%-12s %-10s %-10s %-10s %-10s\n", "Seed", "Generated", "Rejected", "p_rej", "T_stay")
	for _, r := range results {
		fmt.Fprintf(w, "%-12d %-10d %-10d %-10.4f %-10.4f\n",
			r.Seed, r.TotalGenerated, r.TotalRejected, r.RejectionProbability, r.MeanSystemTime)
	}
	fmt.Fprintln(w, "\n=== Summary ===")
	fmt.Fprintf(w, "Runs                 : %d\n", summary.Count)
	fmt.Fprintf(w, "Rejection Probability: %.4f ± %.4f\n", summary.MeanRejection, summary.StdDevRejection)
	fmt.Fprintf(w, "Mean Wait Time       : %.4f\n", summary.MeanWait)
	fmt.Fprintf(w, "Mean Time In System  : %.4f\n", summary.MeanSystemTime)
	for i, u := range summary.MeanUtilization {
		fmt.Fprintf(w, "Server %-14d: %.4f\n", i+1, u)
	}
}

func printCalibration(w io.Writer, cal *experiment.Calibration) {
	fmt.Fprintln(w, "=== Calibration ===")
	fmt.Fprintf(w, "%-6s %-10s %-10s\n", "Step", "N", "p_rej")
	for i, step := range cal.Steps {
		fmt.Fprintf(w, "%-6d %-10d %-10.4f\n", i+1, step.Requests, step.RejectionProbability)
	}
	fmt.Fprintf(w, "Converged: %v at N=%d\n\n", cal.Converged, cal.Requests)
	cal.Final.Print(w)
}

// runCmd executes a single simulation using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation to drain",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc, s := mustResolveScenario(cmd)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		out, err := experiment.RunOnce(ctx, sc, s)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		out.Result.Print(os.Stdout)
		if out.Trace != nil {
			printTraceSummary(os.Stdout, out.Trace, sc.Sim.NumServers)
		}
		if resultsPath != "" {
			if err := out.Result.SaveJSON(resultsPath); err != nil {
				logrus.Fatalf("Saving results failed: %v", err)
			}
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
	},
}

// replicateCmd runs independent simulations over consecutive seeds
var replicateCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Run independent replications in parallel and summarize them",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc, s := mustResolveScenario(cmd)
		if replications < 1 {
			logrus.Fatalf("--replications must be >= 1, got %d", replications)
		}
		// Traces of concurrent runs are not collected.
		sc.Trace = trace.TraceConfig{}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := experiment.RunReplications(ctx, sc, experiment.SeedRange(s, replications), parallelism)
		if err != nil {
			logrus.Fatalf("Replications failed: %v", err)
		}
		summary := experiment.Summarize(results)
		printReplications(os.Stdout, results, summary)
		if resultsPath != "" {
			report := struct {
				Runs    []sim.Result                  `json:"runs"`
				Summary experiment.ReplicationSummary `json:"summary"`
			}{results, summary}
			if err := writeJSON(resultsPath, report); err != nil {
				logrus.Fatalf("Saving results failed: %v", err)
			}
		}
	},
}

// calibrateCmd searches for the request count giving the target precision
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Find the number of requests needed for a stable rejection-probability estimate",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc, s := mustResolveScenario(cmd)
		sc.Trace = trace.TraceConfig{}

		opts := experiment.CalibrationOptions{
			InitialRequests: initialRequests,
			TAlpha:          tAlpha,
			Delta:           delta,
			MaxIterations:   maxIterations,
			Replications:    calReplications,
			Parallelism:     parallelism,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cal, err := experiment.Calibrate(ctx, sc, s, opts)
		if err != nil {
			logrus.Fatalf("Calibration failed: %v", err)
		}
		printCalibration(os.Stdout, cal)
		if resultsPath != "" {
			if err := writeJSON(resultsPath, cal); err != nil {
				logrus.Fatalf("Saving results failed: %v", err)
			}
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerScenarioFlags(runCmd.Flags())

	registerScenarioFlags(replicateCmd.Flags())
	replicateCmd.Flags().IntVar(&replications, "replications", 10, "Number of independent runs (seeds seed, seed+1, ...)")
	replicateCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Maximum concurrent runs (0 = unbounded)")

	registerScenarioFlags(calibrateCmd.Flags())
	def := experiment.DefaultCalibrationOptions()
	calibrateCmd.Flags().IntVar(&initialRequests, "initial-requests", def.InitialRequests, "Request count of the first calibration step")
	calibrateCmd.Flags().Float64Var(&tAlpha, "t-alpha", def.TAlpha, "Confidence quantile (1.643 for 90%)")
	calibrateCmd.Flags().Float64Var(&delta, "delta", def.Delta, "Relative precision of the rejection probability")
	calibrateCmd.Flags().IntVar(&maxIterations, "max-iterations", def.MaxIterations, "Maximum calibration steps")
	calibrateCmd.Flags().IntVar(&calReplications, "replications", def.Replications, "Independent runs averaged per step")
	calibrateCmd.Flags().IntVar(&parallelism, "parallelism", 0, "Maximum concurrent runs per step (0 = unbounded)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replicateCmd)
	rootCmd.AddCommand(calibrateCmd)
}
