package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequest_StartsNewWithUnsetStamps(t *testing.T) {
	req := NewRequest(17, 3, 2.5)

	assert.Equal(t, "3.17", req.Key())
	assert.Equal(t, StatusNew, req.Status)
	assert.Equal(t, unsetTime, req.ServiceStart)
	assert.Equal(t, unsetTime, req.ServiceEnd)
	assert.False(t, req.Rejected)
	assert.Zero(t, req.WaitTime(), "wait before dispatch")
	assert.Zero(t, req.ServiceTime(), "service before dispatch")
}

func TestRequest_ServedLifecycle(t *testing.T) {
	// GIVEN a request generated at t=1
	req := NewRequest(1, 1, 1.0)

	// WHEN it is buffered, served over [1.5, 2.75] and completed
	req.markBuffered()
	assert.Equal(t, StatusBuffered, req.Status)
	req.markInService(1.5, 2.75)
	assert.Equal(t, StatusInService, req.Status)
	req.markCompleted()

	// THEN the stamps and derived times are consistent
	assert.Equal(t, StatusCompleted, req.Status)
	assert.True(t, req.Status.IsTerminal())
	assert.InDelta(t, 0.5, req.WaitTime(), 1e-12)
	assert.InDelta(t, 1.25, req.ServiceTime(), 1e-12)
	assert.False(t, req.Rejected)
}

func TestRequest_RejectedLifecycle(t *testing.T) {
	req := NewRequest(1, 2, 0.3)
	req.markBuffered()
	req.markRejected()

	assert.Equal(t, StatusRejected, req.Status)
	assert.True(t, req.Rejected)
	assert.True(t, req.Status.IsTerminal())
	assert.Zero(t, req.WaitTime())
}

func TestRequest_IllegalTransitionsPanic(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Request)
		move  func(*Request)
	}{
		{"serve without buffering", func(*Request) {}, func(r *Request) { r.markInService(1, 2) }},
		{"complete while buffered", func(r *Request) { r.markBuffered() }, func(r *Request) { r.markCompleted() }},
		{"reject while new", func(*Request) {}, func(r *Request) { r.markRejected() }},
		{"buffer twice", func(r *Request) { r.markBuffered() }, func(r *Request) { r.markBuffered() }},
		{"reject while in service", func(r *Request) {
			r.markBuffered()
			r.markInService(1, 2)
		}, func(r *Request) { r.markRejected() }},
		{"service before generation", func(r *Request) { r.markBuffered() }, func(r *Request) { r.markInService(0.5, 2) }},
		{"service ends before start", func(r *Request) { r.markBuffered() }, func(r *Request) { r.markInService(2, 1.5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(1, 1, 1.0)
			tt.setup(req)
			assert.Panics(t, func() { tt.move(req) })
		})
	}
}

func TestRequestStatus_String(t *testing.T) {
	assert.Equal(t, "NEW", StatusNew.String())
	assert.Equal(t, "IN_BUFFER", StatusBuffered.String())
	assert.Equal(t, "IN_SERVICE", StatusInService.String())
	assert.Equal(t, "COMPLETED", StatusCompleted.String())
	assert.Equal(t, "REJECTED", StatusRejected.String())
	assert.Equal(t, "RequestStatus(42)", RequestStatus(42).String())
}
