package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/wf-booking-events", topicResourceName("p1", "wf-booking-events"))
	assert.Equal(t, "projects/other/topics/t", topicResourceName("p1", "projects/other/topics/t"))
	assert.Empty(t, topicResourceName("p1", "  "))
	assert.Empty(t, topicResourceName("", "t"))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{BookingTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("t"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}

func TestSubscriptionResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/subscriptions/s", subscriptionResourceName("p1", "s"))
	assert.Equal(t, "projects/x/subscriptions/s", subscriptionResourceName("p1", "projects/x/subscriptions/s"))
	assert.Empty(t, subscriptionResourceName("p1", ""))
}
