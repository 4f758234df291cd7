// Package observability aggregates runtime telemetry counters.
package observability

import (
	"sync/atomic"
)

// Monitoring holds the process-wide counters logged by the health worker.
// All methods are safe for concurrent use.
type Monitoring struct {
	messagesPersisted uint64
	messagesRejected  uint64
	eventsDropped     uint64
	ticksDropped      uint64
}

func NewMonitoring() *Monitoring {
	return &Monitoring{}
}

func (m *Monitoring) IncrMessagesPersisted() {
	atomic.AddUint64(&m.messagesPersisted, 1)
}

func (m *Monitoring) IncrMessagesRejected() {
	atomic.AddUint64(&m.messagesRejected, 1)
}

// IncrEventsDropped counts events a sink refused or timed out on.
func (m *Monitoring) IncrEventsDropped() {
	atomic.AddUint64(&m.eventsDropped, 1)
}

// IncrTicksDropped counts scheduler ticks lost to a full room mailbox.
func (m *Monitoring) IncrTicksDropped() {
	atomic.AddUint64(&m.ticksDropped, 1)
}

// Stats is a point-in-time snapshot of the counters.
type Stats struct {
	MessagesPersisted uint64
	MessagesRejected  uint64
	EventsDropped     uint64
	TicksDropped      uint64
}

func (m *Monitoring) Snapshot() Stats {
	return Stats{
		MessagesPersisted: atomic.LoadUint64(&m.messagesPersisted),
		MessagesRejected:  atomic.LoadUint64(&m.messagesRejected),
		EventsDropped:     atomic.LoadUint64(&m.eventsDropped),
		TicksDropped:      atomic.LoadUint64(&m.ticksDropped),
	}
}
