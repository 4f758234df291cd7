package workers

import (
	"context"
	"log/slog"
	"time"

	"studymate/contract"
	"studymate/domain"
	"studymate/domain/event"
	"studymate/observability"
)

// EventFanout delivers domain events to the sinks of the event's room.
// Events addressed to a single connection (timer snapshots on join,
// rejections, history) go to that sink only; everything else is broadcast.
//
// A single fanout goroutine drains one channel, so events for a room are
// delivered in the order its worker produced them. Delivery is best-effort:
// a slow sink is bounded by the sink timeout, never retried.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	events      <-chan event.DomainEvent
	sinkTimeout time.Duration
	monitoring  *observability.Monitoring
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	events <-chan event.DomainEvent, sinkTimeout time.Duration,
	monitoring *observability.Monitoring) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		events:      events,
		sinkTimeout: sinkTimeout,
		monitoring:  monitoring,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	if a, ok := evt.(event.Addressed); ok && a.TargetConn() != "" {
		sink, exists := w.registry.GetSink(a.TargetConn())
		if !exists {
			// The connection vanished between emit and delivery.
			w.log.Debug("Target connection gone", "conn", a.TargetConn(), "room", evt.RoomID())
			return
		}
		w.deliver(ctx, sink, evt)
		return
	}

	for _, sink := range w.registry.GetSinksForRoom(domain.RoomID(evt.RoomID())) {
		w.deliver(ctx, sink, evt)
	}
}

func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	deliverCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(deliverCtx, evt); err != nil {
		w.monitoring.IncrEventsDropped()
		w.log.Warn("Sink refused event", "room", evt.RoomID(), "err", err)
	}
}
