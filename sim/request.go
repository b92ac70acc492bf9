// Defines the Request struct that models one unit of work in the simulation.
// Tracks the generating source, the generation time, and the service interval stamps.

package sim

import (
	"fmt"
)

// RequestStatus represents the lifecycle state of a request.
// Transitions only move forward:
//
//	New → Buffered → InService → Completed
//	           └──→ Rejected
type RequestStatus int

const (
	StatusNew RequestStatus = iota
	StatusBuffered
	StatusInService
	StatusCompleted
	StatusRejected
)

var requestStatusNames = [...]string{
	StatusNew:       "NEW",
	StatusBuffered:  "IN_BUFFER",
	StatusInService: "IN_SERVICE",
	StatusCompleted: "COMPLETED",
	StatusRejected:  "REJECTED",
}

func (s RequestStatus) String() string {
	if s < 0 || int(s) >= len(requestStatusNames) {
		return fmt.Sprintf("RequestStatus(%d)", int(s))
	}
	return requestStatusNames[s]
}

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// unsetTime marks a service stamp that has not been assigned yet.
const unsetTime = -1.0

// Request models a single request's lifecycle in the simulation.
type Request struct {
	ID       int // Sequence number within the generating source (1-based)
	SourceID int // Generating source (1..N)

	GeneratedAt  float64 // Simulated time at which the source emitted the request
	ServiceStart float64 // Start of service; unsetTime until dispatched
	ServiceEnd   float64 // End of service; unsetTime until dispatched

	Rejected bool          // Set when the request is evicted from the buffer
	Status   RequestStatus // Current lifecycle state
}

// NewRequest creates a request in StatusNew with unset service stamps.
func NewRequest(id, sourceID int, generatedAt float64) *Request {
	return &Request{
		ID:           id,
		SourceID:     sourceID,
		GeneratedAt:  generatedAt,
		ServiceStart: unsetTime,
		ServiceEnd:   unsetTime,
		Status:       StatusNew,
	}
}

// Key returns a human-readable identifier unique across sources, e.g. "3.17".
func (req *Request) Key() string {
	return fmt.Sprintf("%d.%d", req.SourceID, req.ID)
}

// WaitTime is the time spent between generation and start of service.
// Zero until the request has been dispatched.
func (req *Request) WaitTime() float64 {
	if req.ServiceStart == unsetTime {
		return 0
	}
	return req.ServiceStart - req.GeneratedAt
}

// ServiceTime is the length of the service interval. Zero until dispatched.
func (req *Request) ServiceTime() float64 {
	if req.ServiceStart == unsetTime {
		return 0
	}
	return req.ServiceEnd - req.ServiceStart
}

func (req *Request) markBuffered() {
	req.mustBeIn(StatusNew, StatusBuffered)
	req.Status = StatusBuffered
}

func (req *Request) markInService(start, end float64) {
	req.mustBeIn(StatusBuffered, StatusInService)
	if start < req.GeneratedAt || end < start {
		panic(fmt.Sprintf("request %s: invalid service interval [%v, %v] for generation time %v",
			req.Key(), start, end, req.GeneratedAt))
	}
	req.ServiceStart = start
	req.ServiceEnd = end
	req.Status = StatusInService
}

func (req *Request) markCompleted() {
	req.mustBeIn(StatusInService, StatusCompleted)
	req.Status = StatusCompleted
}

func (req *Request) markRejected() {
	req.mustBeIn(StatusBuffered, StatusRejected)
	req.Rejected = true
	req.Status = StatusRejected
}

func (req *Request) mustBeIn(from, to RequestStatus) {
	if req.Status != from {
		panic(fmt.Sprintf("request %s: illegal transition %s → %s (expected from %s)",
			req.Key(), req.Status, to, from))
	}
}

// String returns a human-readable representation of a Request.
func (req *Request) String() string {
	return fmt.Sprintf("Request: (Key: %s, Status: %s, GeneratedAt: %.4f)", req.Key(), req.Status, req.GeneratedAt)
}
