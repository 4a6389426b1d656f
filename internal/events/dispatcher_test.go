package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	first := errors.New("first")
	var calls []string

	d.Subscribe(EventNotificationRequested, func(context.Context, Event) error {
		calls = append(calls, "a")
		return first
	})
	d.Subscribe(EventNotificationRequested, func(context.Context, Event) error {
		calls = append(calls, "b")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventNotificationRequested})
	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestPublishWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: "unknown"}))
}
