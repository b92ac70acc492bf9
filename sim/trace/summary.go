package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvictions     int
	TotalDispatches    int
	DirectDispatches   int         // dispatched on arrival without waiting
	BufferedDispatches int         // pulled from the buffer on departure
	MeanWait           float64     // mean wait at dispatch
	MaxWait            float64     // max wait at dispatch
	ServerDistribution map[int]int // server ID → dispatch count
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ServerDistribution: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvictions = len(st.Evictions)
	summary.TotalDispatches = len(st.Dispatches)

	if len(st.Dispatches) > 0 {
		totalWait := 0.0
		for _, d := range st.Dispatches {
			summary.ServerDistribution[d.ServerID]++
			if d.Direct {
				summary.DirectDispatches++
			} else {
				summary.BufferedDispatches++
			}
			totalWait += d.Wait
			if d.Wait > summary.MaxWait {
				summary.MaxWait = d.Wait
			}
		}
		summary.MeanWait = totalWait / float64(len(st.Dispatches))
	}

	return summary
}
