package sim

import "github.com/sirupsen/logrus"

// EventKind distinguishes the two event types the kernel understands.
type EventKind int

const (
	KindArrival EventKind = iota
	KindDeparture
)

func (k EventKind) String() string {
	switch k {
	case KindArrival:
		return "ARRIVAL"
	case KindDeparture:
		return "DEPARTURE"
	default:
		return "UNKNOWN"
	}
}

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (simulated time) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() float64
	Kind() EventKind
	Execute(*Simulator)
}

// ArrivalEvent represents a source emitting a new request.
type ArrivalEvent struct {
	time    float64  // Simulated time of arrival
	Request *Request // The incoming request associated with this event
}

// NewArrivalEvent creates an arrival for req at its generation time.
func NewArrivalEvent(req *Request) *ArrivalEvent {
	return &ArrivalEvent{time: req.GeneratedAt, Request: req}
}

// Timestamp returns the scheduled time of the ArrivalEvent.
func (e *ArrivalEvent) Timestamp() float64 {
	return e.time
}

func (e *ArrivalEvent) Kind() EventKind { return KindArrival }

// Execute admits the request into the buffer and tries to dispatch it immediately.
func (e *ArrivalEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< Arrival: %s at %.4f", e.Request.Key(), e.time)
	sim.handleArrival(e.Request, e.time)
}

// DepartureEvent represents a server finishing the request it was serving.
type DepartureEvent struct {
	time     float64
	ServerID int      // Server that completes service
	Request  *Request // Request whose service ends
}

// NewDepartureEvent creates a departure for req served on serverID.
func NewDepartureEvent(serverID int, req *Request) *DepartureEvent {
	return &DepartureEvent{time: req.ServiceEnd, ServerID: serverID, Request: req}
}

// Timestamp returns the scheduled time of the DepartureEvent.
func (e *DepartureEvent) Timestamp() float64 {
	return e.time
}

func (e *DepartureEvent) Kind() EventKind { return KindDeparture }

// Execute frees the server and pulls the next buffered request onto the pool.
func (e *DepartureEvent) Execute(sim *Simulator) {
	logrus.Debugf("<< Departure: %s from server %d at %.4f", e.Request.Key(), e.ServerID, e.time)
	sim.handleDeparture(e.ServerID, e.Request, e.time)
}
