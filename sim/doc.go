// Package sim provides the discrete-event simulation kernel for queue-sim.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - request.go: Request lifecycle (new → buffered → in service → completed, or rejected)
//   - event.go, calendar.go: Arrival/Departure events and the (timestamp, seqID) ordered calendar
//   - buffer.go: the bounded ring buffer with evict-newest overflow policy
//   - server.go, dispatch.go: the server pool and the lowest-ID-first assignment rule
//   - simulator.go: the event loop and the statistics hooks
//
// # Topology
//
// The kernel models exactly one topology: N sources feed a single bounded buffer that is
// drained by M identical servers. Servers are always selected in ID order (1..M), so
// low-numbered servers carry more load whenever several are free at the same instant.
//
// # Collaborators
//
// Random variates are injected. Arrival generation lives in sim/workload, which produces
// pre-stamped Requests for InjectArrival, and service durations come from a
// ServiceTimeSource. Reproducibility is guaranteed by PartitionedRNG plus the calendar's
// explicit sequence tie-break.
//
// Sub-packages:
//   - sim/workload/: arrival processes, service-time distributions, request generation
//   - sim/trace/: eviction and dispatch decision recording
//   - sim/experiment/: parallel replications and precision calibration of the request count
package sim
