package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "visitor_checkin", Body: []byte("v1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: "visitor_checkin", Body: []byte("v2")}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	first := <-out
	assert.Equal(t, "visitor_checkin", first.Type)
	assert.Equal(t, "v1", string(first.Body))
	assert.Equal(t, "v2", string((<-out).Body))
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)

	out, err := q.Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, open := <-out:
		assert.False(t, open, "channel closes after cancellation")
	case <-time.After(time.Second):
		t.Fatal("consume channel did not close")
	}
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	require.NoError(t, q.Publish(ctx, Message{Type: "x"}))

	cancel()
	err := q.Publish(ctx, Message{Type: "y"}) // buffer full, ctx done
	assert.ErrorIs(t, err, context.Canceled)
}
