// Package trace provides decision-trace recording for buffer and dispatch analysis.
// It has no dependencies on sim/ and stores pure data types.
package trace

// EvictionRecord captures one overflow eviction.
type EvictionRecord struct {
	Clock       float64 // Simulated time of the arrival that caused the eviction
	EvictedKey  string  // Request removed from the buffer
	IncomingKey string  // Request that took its place
	Residents   int     // Buffer occupancy after the swap
}

// DispatchRecord captures one request being bound to a server.
type DispatchRecord struct {
	Clock      float64 // Simulated time of the dispatch
	RequestKey string
	ServerID   int
	Wait       float64 // Time the request spent between generation and service start
	Service    float64 // Sampled service duration
	Direct     bool    // true when dispatched on arrival, false when pulled from the buffer
}
