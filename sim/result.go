package sim

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// SourceResult is the per-source breakdown of a Result.
type SourceResult struct {
	SourceID             int     `json:"source_id"`
	Generated            int     `json:"generated"`
	Served               int     `json:"served"`
	Rejected             int     `json:"rejected"`
	RejectionProbability float64 `json:"rejection_probability"`
	MeanWait             float64 `json:"mean_wait"`
	MeanService          float64 `json:"mean_service"`
	MeanSystemTime       float64 `json:"mean_system_time"`
	WaitVariance         float64 `json:"wait_variance"`
	ServiceVariance      float64 `json:"service_variance"`
}

// ServerResult is the per-server breakdown of a Result.
type ServerResult struct {
	ServerID    int     `json:"server_id"`
	Served      int     `json:"served"`
	BusyTime    float64 `json:"busy_time"`
	Utilization float64 `json:"utilization"`
}

// Result is the read-only summary of one drained run.
type Result struct {
	RunID string `json:"run_id"`
	Seed  int64  `json:"seed"`

	TotalGenerated int `json:"total_generated"`
	TotalServed    int `json:"total_served"`
	TotalRejected  int `json:"total_rejected"`
	Completed      int `json:"completed"`
	StillResident  int `json:"still_resident"`

	RejectionProbability float64 `json:"rejection_probability"`
	MeanWait             float64 `json:"mean_wait"`
	MeanService          float64 `json:"mean_service"`
	MeanSystemTime       float64 `json:"mean_system_time"`
	WaitVariance         float64 `json:"wait_variance"`
	ServiceVariance      float64 `json:"service_variance"`

	Sources     []SourceResult `json:"sources"`
	Servers     []ServerResult `json:"servers"`
	ElapsedTime float64        `json:"elapsed_time"`
}

// Print writes the source and server tables to w.
func (r Result) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Generated Requests   : %d\n", r.TotalGenerated)
	fmt.Fprintf(w, "Served Requests      : %d\n", r.TotalServed)
	fmt.Fprintf(w, "Rejected Requests    : %d\n", r.TotalRejected)
	fmt.Fprintf(w, "Rejection Probability: %.4f\n", r.RejectionProbability)
	fmt.Fprintf(w, "Mean Wait Time       : %.4f\n", r.MeanWait)
	fmt.Fprintf(w, "Mean Service Time    : %.4f\n", r.MeanService)
	fmt.Fprintf(w, "Mean Time In System  : %.4f\n", r.MeanSystemTime)

	fmt.Fprintln(w, "\n=== Sources ===")
	fmt.Fprintf(w, "%-5s %-10s %-8s %-8s %-8s %-8s %-8s %-8s\n",
		"#", "Requests", "p_rej", "T_stay", "T_buf", "T_serv", "D_buf", "D_serv")
	for _, s := range r.Sources {
		fmt.Fprintf(w, "%-5d %-10d %-8.4f %-8.4f %-8.4f %-8.4f %-8.4f %-8.4f\n",
			s.SourceID, s.Generated, s.RejectionProbability, s.MeanSystemTime,
			s.MeanWait, s.MeanService, s.WaitVariance, s.ServiceVariance)
	}

	fmt.Fprintln(w, "\n=== Servers ===")
	fmt.Fprintf(w, "%-5s %-12s %-12s %-8s\n", "#", "Utilization", "Busy time", "Served")
	for _, s := range r.Servers {
		fmt.Fprintf(w, "%-5d %-12.4f %-12.4f %-8d\n", s.ServerID, s.Utilization, s.BusyTime, s.Served)
	}
	fmt.Fprintf(w, "\nTotal simulated time: %.2f\n", r.ElapsedTime)
}

// SaveJSON writes the result as indented JSON to path.
func (r Result) SaveJSON(path string) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote result to '%s'", path)
	return nil
}
