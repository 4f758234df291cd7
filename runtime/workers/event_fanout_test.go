package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"studymate/contract"
	"studymate/domain"
	"studymate/domain/event"
	"studymate/mocks"
	"studymate/observability"
)

func TestEventFanout_Broadcast(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	roomSinks := []contract.EventSink{mockSink, mockSink}

	events := make(chan event.DomainEvent, 1)
	fanout := NewEventFanout(log, mockRegistry, events, time.Second, observability.NewMonitoring())

	evt := event.SystemNotice{Room: "focus", Text: "Alice joined the room"}

	// Given a room with two member sinks
	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("focus")).Return(roomSinks).Times(1)
	// Then both receive the broadcast
	count := 0
	done := make(chan struct{})
	mockSink.EXPECT().Consume(gomock.Any(), evt).DoAndReturn(
		func(ctx context.Context, e event.DomainEvent) error {
			count++
			if count == 2 {
				close(done)
			}
			return nil
		}).Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	// When an event enters the pipeline
	events <- evt

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Broadcast did not reach all sinks in time")
	}
}

func TestEventFanout_TargetedDelivery(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent, 1)
	fanout := NewEventFanout(log, mockRegistry, events, time.Second, observability.NewMonitoring())

	// Given a timer snapshot addressed to one connection
	evt := event.TimerUpdated{Room: "focus", Conn: "conn-a", TimeLeft: 25 * time.Minute, Phase: "Study Time"}

	// Then only that connection's sink is resolved, never the room
	mockRegistry.EXPECT().GetSink("conn-a").Return(mockSink, true).Times(1)
	done := make(chan struct{})
	mockSink.EXPECT().Consume(gomock.Any(), evt).DoAndReturn(
		func(ctx context.Context, e event.DomainEvent) error {
			close(done)
			return nil
		}).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	events <- evt

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Targeted event did not reach its sink in time")
	}
}

func TestEventFanout_TargetGone(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	events := make(chan event.DomainEvent, 1)
	fanout := NewEventFanout(log, mockRegistry, events, time.Second, observability.NewMonitoring())

	// Given the addressed connection already disconnected
	mockRegistry.EXPECT().GetSink("conn-gone").Return(nil, false).Times(1)

	// When the event is fanned out, it is dropped without panic
	fanout.Fanout(context.Background(), event.Rejected{Room: "focus", Conn: "conn-gone", Op: "toggleTimer"})
}

func TestEventFanout_SinkTimeout_CountsDrop(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	monitoring := observability.NewMonitoring()

	events := make(chan event.DomainEvent, 1)
	sinkTimeout := 20 * time.Millisecond
	fanout := NewEventFanout(log, mockRegistry, events, sinkTimeout, monitoring)

	evt := event.SystemNotice{Room: "focus", Text: "Alice left the room"}

	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("focus")).
		Return([]contract.EventSink{mockSink}).Times(1)
	// Given a sink that blocks until the delivery deadline fires
	mockSink.EXPECT().Consume(gomock.Any(), evt).DoAndReturn(
		func(ctx context.Context, e event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)

	fanout.Fanout(context.Background(), evt)

	// Then the drop is counted
	req.Equal(uint64(1), monitoring.Snapshot().EventsDropped)
}
