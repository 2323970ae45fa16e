package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []Event
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{
		ID:       "evt-1",
		Type:     EventTicketCreated,
		TicketID: "ticket-1",
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "ticket-1", received[0].TicketID)
}

func TestDispatcherIgnoresUnrelatedTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	calls := 0
	dispatcher.Subscribe(EventTicketResolved, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Zero(t, calls)
}

func TestDispatcherContinuesPastFailingHandler(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	calls := 0
	dispatcher.Subscribe(EventTicketEscalated, func(context.Context, Event) error {
		return errors.New("handler boom")
	})
	dispatcher.Subscribe(EventTicketEscalated, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketEscalated}))
	assert.Equal(t, 1, calls)
}
