// Tracks per-run counters and wait/service samples, and turns them into a Result at drain.

package sim

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SourceStats accumulates the counters and samples of one source.
type SourceStats struct {
	Generated    int
	Served       int
	Rejected     int
	WaitTimes    []float64
	ServiceTimes []float64
}

// Metrics aggregates statistics about one simulation run.
// It is owned by a single Simulator and mutated only from event handlers.
type Metrics struct {
	Generated int // Requests that arrived
	Served    int // Requests dispatched to a server
	Rejected  int // Requests evicted (or rejected by a soft dispatch anomaly)
	Completed int // Requests whose departure has been processed

	TotalWaitTime    float64
	TotalServiceTime float64

	Sources map[int]*SourceStats // source ID -> stats
}

// NewMetrics creates zeroed statistics with entries for sources 1..numSources.
func NewMetrics(numSources int) *Metrics {
	m := &Metrics{Sources: make(map[int]*SourceStats, numSources)}
	for id := 1; id <= numSources; id++ {
		m.Sources[id] = &SourceStats{}
	}
	return m
}

func (m *Metrics) source(id int) *SourceStats {
	s, ok := m.Sources[id]
	if !ok {
		s = &SourceStats{}
		m.Sources[id] = s
	}
	return s
}

// RecordArrival counts a generated request for its source.
func (m *Metrics) RecordArrival(req *Request) {
	m.Generated++
	m.source(req.SourceID).Generated++
}

// RecordRejection counts a rejected request against its source.
func (m *Metrics) RecordRejection(req *Request) {
	m.Rejected++
	m.source(req.SourceID).Rejected++
}

// RecordDispatch counts a served request and stores its wait and service samples.
func (m *Metrics) RecordDispatch(req *Request) {
	wait, service := req.WaitTime(), req.ServiceTime()
	m.Served++
	m.TotalWaitTime += wait
	m.TotalServiceTime += service

	s := m.source(req.SourceID)
	s.Served++
	s.WaitTimes = append(s.WaitTimes, wait)
	s.ServiceTimes = append(s.ServiceTimes, service)
}

// RecordCompletion counts a processed departure.
func (m *Metrics) RecordCompletion() {
	m.Completed++
}

// Finalize computes the read-only Result. elapsed is the total simulated time of the run and
// stillResident the number of requests left in the buffer or in service at drain.
func (m *Metrics) Finalize(elapsed float64, pool *ServerPool, stillResident int) Result {
	res := Result{
		TotalGenerated:       m.Generated,
		TotalServed:          m.Served,
		TotalRejected:        m.Rejected,
		Completed:            m.Completed,
		StillResident:        stillResident,
		RejectionProbability: ratio(float64(m.Rejected), float64(m.Generated)),
		ElapsedTime:          elapsed,
	}

	ids := make([]int, 0, len(m.Sources))
	for id := range m.Sources {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var allWaits, allServices []float64
	for _, id := range ids {
		s := m.Sources[id]
		allWaits = append(allWaits, s.WaitTimes...)
		allServices = append(allServices, s.ServiceTimes...)
		res.Sources = append(res.Sources, s.summarize(id))
	}

	res.MeanWait = ratio(m.TotalWaitTime, float64(m.Served))
	res.MeanService = ratio(m.TotalServiceTime, float64(m.Served))
	res.MeanSystemTime = ratio(m.TotalWaitTime+m.TotalServiceTime, float64(m.Served))
	res.WaitVariance = SampleVariance(allWaits)
	res.ServiceVariance = SampleVariance(allServices)

	if pool != nil {
		for _, srv := range pool.Servers() {
			res.Servers = append(res.Servers, ServerResult{
				ServerID:    srv.ID,
				Served:      srv.Served,
				BusyTime:    srv.BusyTime,
				Utilization: ratio(srv.BusyTime, elapsed),
			})
		}
	}
	return res
}

func (s *SourceStats) summarize(id int) SourceResult {
	meanWait := stat.Mean(s.WaitTimes, nil)
	meanService := stat.Mean(s.ServiceTimes, nil)
	if s.Served == 0 {
		meanWait, meanService = 0, 0
	}
	return SourceResult{
		SourceID:             id,
		Generated:            s.Generated,
		Served:               s.Served,
		Rejected:             s.Rejected,
		RejectionProbability: ratio(float64(s.Rejected), float64(s.Generated)),
		MeanWait:             meanWait,
		MeanService:          meanService,
		MeanSystemTime:       meanWait + meanService,
		WaitVariance:         SampleVariance(s.WaitTimes),
		ServiceVariance:      SampleVariance(s.ServiceTimes),
	}
}

// SampleVariance returns the Bessel-corrected variance of xs, or 0 with fewer than 2 samples.
func SampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	_, v := stat.MeanVariance(xs, nil)
	return v
}

// ratio divides, returning 0 when the denominator is not positive.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
