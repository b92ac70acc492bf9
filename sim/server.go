package sim

import "fmt"

// Server is one identical service resource. Its ID doubles as its selection priority:
// lower IDs are preferred whenever several servers are free.
type Server struct {
	ID        int     // 1..M
	Busy      bool    // Set by BeginService, cleared by Release
	BusyUntil float64 // End of the current service interval
	BusyTime  float64 // Cumulative service time across the run
	Served    int     // Number of requests started on this server
}

// IsFreeAt reports whether the server can start new work at time t.
func (s *Server) IsFreeAt(t float64) bool {
	return !s.Busy || s.BusyUntil <= t
}

// BeginService occupies the server for duration starting at t and returns the effective start.
// If the server is still busy past t the start is clamped to BusyUntil; the dispatch
// protocol only calls this on free servers, so clamping indicates a caller bug upstream.
func (s *Server) BeginService(t, duration float64) float64 {
	start := t
	if s.Busy && s.BusyUntil > t {
		start = s.BusyUntil
	}
	s.Busy = true
	s.BusyUntil = start + duration
	s.BusyTime += duration
	s.Served++
	return start
}

// Release marks the server free. Cumulative BusyTime is kept.
func (s *Server) Release() {
	s.Busy = false
	s.BusyUntil = 0
}

// ServerPool is the ordered set of servers 1..M.
type ServerPool struct {
	servers []*Server
}

// NewServerPool creates n idle servers with IDs 1..n.
func NewServerPool(n int) *ServerPool {
	if n < 1 {
		panic(fmt.Sprintf("NewServerPool: need at least one server, got %d", n))
	}
	p := &ServerPool{servers: make([]*Server, n)}
	for i := range p.servers {
		p.servers[i] = &Server{ID: i + 1}
	}
	return p
}

// FirstFree returns the lowest-ID server free at t, or nil if all are busy.
func (p *ServerPool) FirstFree(t float64) *Server {
	for _, s := range p.servers {
		if s.IsFreeAt(t) {
			return s
		}
	}
	return nil
}

// Get returns the server with the given ID. Panics on an unknown ID.
func (p *ServerPool) Get(id int) *Server {
	if id < 1 || id > len(p.servers) {
		panic(fmt.Sprintf("ServerPool.Get: unknown server %d (pool size %d)", id, len(p.servers)))
	}
	return p.servers[id-1]
}

// Len returns the number of servers.
func (p *ServerPool) Len() int { return len(p.servers) }

// Servers returns the servers in ID order. Callers must not modify the slice.
func (p *ServerPool) Servers() []*Server { return p.servers }
