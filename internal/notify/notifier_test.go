package notify

import (
	"context"
	"errors"
	"testing"

	"reservation-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	key   string
	event interface{}
	err   error
}

func (p *stubPublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	p.key = key
	p.event = event
	return p.err
}

func TestKafkaNotifierPublishesRequest(t *testing.T) {
	pub := &stubPublisher{}
	n := NewKafkaNotifier(pub)

	require.NoError(t, n.Send(context.Background(), "ana@example.com", "Payment reminder", "<p>hi</p>"))

	assert.Equal(t, "ana@example.com", pub.key)
	event, ok := pub.event.(*models.NotificationRequestedEvent)
	require.True(t, ok)
	assert.Equal(t, models.EventTypeNotificationRequested, event.EventType)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "Payment reminder", event.Subject)
	assert.Equal(t, "<p>hi</p>", event.Body)
}

func TestKafkaNotifierErrors(t *testing.T) {
	n := NewKafkaNotifier(&stubPublisher{err: errors.New("leader not available")})
	assert.Error(t, n.Send(context.Background(), "ana@example.com", "s", "b"))

	assert.Error(t, NewKafkaNotifier(&stubPublisher{}).Send(context.Background(), "", "s", "b"))
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, NewLogNotifier().Send(context.Background(), "ana@example.com", "s", "b"))
}
