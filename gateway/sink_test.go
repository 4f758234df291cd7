package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"studymate/domain/event"
)

func TestConnSink_PreservesOrder(t *testing.T) {
	req := require.New(t)
	sink := NewConnSink(4)
	ctx := context.Background()

	req.NoError(sink.Consume(ctx, event.SystemNotice{Room: "focus", Text: "one"}))
	req.NoError(sink.Consume(ctx, event.SystemNotice{Room: "focus", Text: "two"}))

	first := (<-sink.Events).(event.SystemNotice)
	second := (<-sink.Events).(event.SystemNotice)
	req.Equal("one", first.Text)
	req.Equal("two", second.Text)
}

func TestConnSink_RefusesWhenFull(t *testing.T) {
	req := require.New(t)
	sink := NewConnSink(1)
	ctx := context.Background()

	req.NoError(sink.Consume(ctx, event.SystemNotice{Room: "focus", Text: "one"}))

	// A full buffer means the client cannot keep up; the caller counts the
	// drop instead of blocking the fan-out
	err := sink.Consume(ctx, event.SystemNotice{Room: "focus", Text: "two"})
	req.Error(err)
}
