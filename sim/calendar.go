package sim

import (
	"container/heap"
	"errors"
)

// ErrEmptyCalendar is returned by PopEarliest when no events are pending.
// For the event loop this is the normal termination signal.
var ErrEmptyCalendar = errors.New("event calendar is empty")

// calendarEntry wraps an Event with a sequence ID for deterministic FIFO
// tie-breaking when timestamps are equal.
type calendarEntry struct {
	event Event
	seqID int64
}

// eventHeap is a min-heap ordered by (Timestamp, seqID).
// Implements heap.Interface.
type eventHeap []calendarEntry

func (q eventHeap) Len() int { return len(q) }

func (q eventHeap) Less(i, j int) bool {
	if q[i].event.Timestamp() != q[j].event.Timestamp() {
		return q[i].event.Timestamp() < q[j].event.Timestamp()
	}
	return q[i].seqID < q[j].seqID
}

func (q eventHeap) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventHeap) Push(x any) {
	*q = append(*q, x.(calendarEntry))
}

func (q *eventHeap) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = calendarEntry{}
	*q = old[:n-1]
	return item
}

// EventCalendar holds pending events in time order.
// The sequence counter is per calendar, so independent runs never share ordering state.
type EventCalendar struct {
	events  eventHeap
	nextSeq int64
}

// NewEventCalendar creates an empty calendar.
func NewEventCalendar() *EventCalendar {
	c := &EventCalendar{events: make(eventHeap, 0)}
	heap.Init(&c.events)
	return c
}

// Schedule inserts ev, stamping it with the next sequence number.
func (c *EventCalendar) Schedule(ev Event) {
	heap.Push(&c.events, calendarEntry{event: ev, seqID: c.nextSeq})
	c.nextSeq++
}

// PopEarliest removes and returns the event with the smallest (timestamp, seqID).
func (c *EventCalendar) PopEarliest() (Event, error) {
	if len(c.events) == 0 {
		return nil, ErrEmptyCalendar
	}
	return heap.Pop(&c.events).(calendarEntry).event, nil
}

// Len returns the number of pending events.
func (c *EventCalendar) Len() int {
	return len(c.events)
}
