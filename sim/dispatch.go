package sim

// ServiceTimeSource draws service durations for dispatched requests.
// Implementations must be pure numeric samplers; see workload.NewServiceTimeSource.
type ServiceTimeSource interface {
	Next() float64
}

// Dispatcher binds requests to servers using strict ID-order priority.
type Dispatcher struct {
	pool    *ServerPool
	service ServiceTimeSource
}

// NewDispatcher creates a Dispatcher over pool drawing durations from service.
func NewDispatcher(pool *ServerPool, service ServiceTimeSource) *Dispatcher {
	if service == nil {
		panic("NewDispatcher: service time source must not be nil")
	}
	return &Dispatcher{pool: pool, service: service}
}

// Assign starts req on the lowest-ID server free at t.
// On success the request is stamped and moved to InService and the chosen server is returned.
// If every server is busy, req is left untouched and ok is false.
func (d *Dispatcher) Assign(req *Request, t float64) (server *Server, ok bool) {
	server = d.pool.FirstFree(t)
	if server == nil {
		return nil, false
	}
	duration := d.service.Next()
	start := server.BeginService(t, duration)
	req.markInService(start, start+duration)
	return server, true
}
