package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher()

	var created, assigned int
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		created++
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(ctx context.Context, e Event) error {
		assigned++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned}))

	assert.Equal(t, 2, created)
	assert.Equal(t, 1, assigned)
}

func TestDispatcherFailingHandlerDoesNotStopOthers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var reached bool
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		reached = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.True(t, reached)
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventDeadlineExtended}))
}
