// sim/simulator.go
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/queue-sim/queue-sim/sim/trace"
)

// RunState is the lifecycle of a Simulator.
type RunState int

const (
	StateInitializing RunState = iota
	StateRunning
	StateDrained
)

func (s RunState) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateDrained:
		return "DRAINED"
	default:
		return "UNKNOWN"
	}
}

// Simulator is the core object that holds simulation time, system state, and the event loop.
// A Simulator is single-use and single-goroutine; independent runs need independent Simulators.
type Simulator struct {
	Clock float64
	State RunState
	RunID string

	// Calendar has all pending Arrival and Departure events.
	Calendar   *EventCalendar
	Buffer     *Buffer
	Servers    *ServerPool
	Dispatcher *Dispatcher
	Metrics    *Metrics

	// Trace is nil unless decision tracing is enabled.
	Trace *trace.SimulationTrace

	strictDispatch bool
	maxServiceEnd  float64
	inService      int
	result         *Result
}

// NewSimulator validates cfg and builds an idle simulator drawing service durations from service.
func NewSimulator(cfg Config, service ServiceTimeSource) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	if service == nil {
		return nil, errors.New("service time source must not be nil")
	}
	pool := NewServerPool(cfg.NumServers)
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	return &Simulator{
		State:          StateInitializing,
		RunID:          runID.String(),
		Calendar:       NewEventCalendar(),
		Buffer:         NewBuffer(cfg.BufferCapacity),
		Servers:        pool,
		Dispatcher:     NewDispatcher(pool, service),
		Metrics:        NewMetrics(cfg.NumSources),
		strictDispatch: cfg.StrictDispatch,
	}, nil
}

// EnableTrace turns on decision recording for this run.
func (sim *Simulator) EnableTrace(cfg trace.TraceConfig) {
	if cfg.Enabled() {
		sim.Trace = trace.NewSimulationTrace(cfg)
	}
}

// Schedule pushes an event into the simulator's calendar.
func (sim *Simulator) Schedule(ev Event) {
	sim.Calendar.Schedule(ev)
}

// InjectArrival schedules the arrival of a pre-generated request.
// Only valid before Run; arrivals must be injected in generation order for the
// sequence tie-break to match generation order.
func (sim *Simulator) InjectArrival(req *Request) {
	if sim.State != StateInitializing {
		panic(fmt.Sprintf("InjectArrival: simulator is %s", sim.State))
	}
	sim.Schedule(NewArrivalEvent(req))
}

// Run executes events until the calendar drains or ctx is cancelled.
// Cancellation is checked between events only; a cancelled run is left in StateRunning
// and has no Result.
func (sim *Simulator) Run(ctx context.Context) error {
	if sim.State != StateInitializing {
		return fmt.Errorf("simulator already %s", sim.State)
	}
	sim.State = StateRunning
	logrus.Infof("[t=%.4f] Simulation started with %d pending events", sim.Clock, sim.Calendar.Len())

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("simulation aborted at t=%.4f: %w", sim.Clock, err)
		}
		ev, err := sim.Calendar.PopEarliest()
		if errors.Is(err, ErrEmptyCalendar) {
			break
		}
		if ev.Timestamp() < sim.Clock {
			panic(fmt.Sprintf("event %s at %v popped after clock %v", ev.Kind(), ev.Timestamp(), sim.Clock))
		}
		sim.Clock = ev.Timestamp()
		logrus.Debugf("[t=%.4f] Executing %s", sim.Clock, ev.Kind())
		ev.Execute(sim)
	}

	sim.State = StateDrained
	res := sim.Metrics.Finalize(sim.ElapsedTime(), sim.Servers, sim.Buffer.Len()+sim.inService)
	res.RunID = sim.RunID
	sim.result = &res
	logrus.Infof("[t=%.4f] Simulation drained: generated=%d served=%d rejected=%d",
		sim.Clock, res.TotalGenerated, res.TotalServed, res.TotalRejected)
	return nil
}

// Result returns the finalized statistics. ok is false until the run has drained.
func (sim *Simulator) Result() (Result, bool) {
	if sim.result == nil {
		return Result{}, false
	}
	return *sim.result, true
}

// ElapsedTime is the total simulated time: the later of the current clock and the
// end of the last service interval.
func (sim *Simulator) ElapsedTime() float64 {
	return max(sim.Clock, sim.maxServiceEnd)
}

// InService returns the number of requests currently being served.
func (sim *Simulator) InService() int {
	return sim.inService
}

func (sim *Simulator) handleArrival(req *Request, now float64) {
	sim.Metrics.RecordArrival(req)

	_, evicted := sim.Buffer.Admit(req)
	if evicted != nil {
		sim.Metrics.RecordRejection(evicted)
		logrus.Debugf("[t=%.4f] Evicted %s in favour of %s", now, evicted.Key(), req.Key())
		if sim.Trace != nil {
			sim.Trace.RecordEviction(trace.EvictionRecord{
				Clock:       now,
				EvictedKey:  evicted.Key(),
				IncomingKey: req.Key(),
				Residents:   sim.Buffer.Len(),
			})
		}
	}

	// The just-arrived request, not the buffer's ring head, goes to a free server.
	if sim.Servers.FirstFree(now) == nil {
		return
	}
	if !sim.Buffer.Withdraw(req) {
		panic(fmt.Sprintf("handleArrival: %s missing from buffer right after admission", req.Key()))
	}
	server, ok := sim.Dispatcher.Assign(req, now)
	if !ok {
		panic(fmt.Sprintf("handleArrival: no server for %s although one was free", req.Key()))
	}
	sim.startService(server, req, now, true)
}

func (sim *Simulator) handleDeparture(serverID int, req *Request, now float64) {
	req.markCompleted()
	sim.inService--
	sim.Metrics.RecordCompletion()

	server := sim.Servers.Get(serverID)
	// A same-instant arrival ordered before this departure may already have
	// started new work on this server; only release it if it is still ours.
	if server.BusyUntil <= now {
		server.Release()
	}

	if sim.Servers.FirstFree(now) == nil {
		return
	}
	next := sim.Buffer.ExtractNext()
	if next == nil {
		return
	}
	assigned, ok := sim.Dispatcher.Assign(next, now)
	if !ok {
		sim.dispatchAnomaly(next, now)
		return
	}
	sim.startService(assigned, next, now, false)
}

func (sim *Simulator) startService(server *Server, req *Request, now float64, direct bool) {
	sim.inService++
	sim.Metrics.RecordDispatch(req)
	if req.ServiceEnd > sim.maxServiceEnd {
		sim.maxServiceEnd = req.ServiceEnd
	}
	if sim.Trace != nil {
		sim.Trace.RecordDispatch(trace.DispatchRecord{
			Clock:      now,
			RequestKey: req.Key(),
			ServerID:   server.ID,
			Wait:       req.WaitTime(),
			Service:    req.ServiceTime(),
			Direct:     direct,
		})
	}
	sim.Schedule(NewDepartureEvent(server.ID, req))
}

// dispatchAnomaly handles a request extracted from the buffer that no server accepted.
func (sim *Simulator) dispatchAnomaly(req *Request, now float64) {
	if sim.strictDispatch {
		panic(fmt.Sprintf("[t=%.4f] dispatch anomaly: %s extracted but no server free", now, req.Key()))
	}
	logrus.Warnf("[t=%.4f] dispatch anomaly: %s extracted but no server free; counting as rejected", now, req.Key())
	req.markRejected()
	sim.Metrics.RecordRejection(req)
}
