package gateway

import (
	"context"
	"fmt"

	"studymate/domain/event"
)

// ConnSink is the per-connection event buffer. The fan-out worker feeds it;
// the connection's write pump drains it. One channel per connection keeps
// delivery order identical to emission order.
type ConnSink struct {
	Events chan event.DomainEvent
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fan-out worker. A full buffer means the client
// cannot keep up; the event is refused so the caller can count the drop.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("connection buffer full")
	}
}
