package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/models"
)

type fakeSender struct {
	sent   []*azservicebus.Message
	err    error
	closed bool
}

func (f *fakeSender) SendMessage(_ context.Context, msg *azservicebus.Message, _ *azservicebus.SendMessageOptions) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) Close(context.Context) error {
	f.closed = true
	return nil
}

func testEvent() Event {
	summary := models.ChallanSummary{
		ID:           7,
		CustomerName: "Acme Corp",
		ChallanNo:    "CH-001",
		TotalItems:   decimal.NewFromInt(3),
		TotalPrice:   decimal.RequireFromString("12.5"),
		DownloadURL:  models.DownloadURL(7),
	}
	return NewChallanCreatedEvent(summary, time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC))
}

func TestPublish(t *testing.T) {
	fake := &fakeSender{}
	p := &ServiceBusPublisher{sender: fake, queueName: "challan-events", source: "challan-api"}

	event := testEvent()
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, fake.sent, 1)
	msg := fake.sent[0]
	assert.Equal(t, event.ID, *msg.MessageID)
	assert.Equal(t, EventChallanCreated, *msg.Subject)
	assert.Equal(t, "application/json", *msg.ContentType)
	assert.Equal(t, "challan-api", msg.ApplicationProperties["source"])
	assert.Equal(t, "2024-03-05T09:30:00Z", msg.ApplicationProperties["time"])

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "challan.created", decoded["type"])
	challan := decoded["challan"].(map[string]interface{})
	assert.Equal(t, "CH-001", challan["challan_no"])
	assert.Equal(t, 12.5, challan["total_price"])
}

func TestPublishError(t *testing.T) {
	fake := &fakeSender{err: errors.New("link detached")}
	p := &ServiceBusPublisher{sender: fake, queueName: "challan-events"}

	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "challan.created")
	assert.Contains(t, err.Error(), "link detached")
}

func TestClose(t *testing.T) {
	fake := &fakeSender{}
	p := &ServiceBusPublisher{sender: fake}

	require.NoError(t, p.Close())
	assert.True(t, fake.closed)
}

func TestNewServiceBusPublisherRequiresConnectionString(t *testing.T) {
	_, err := NewServiceBusPublisher(config.ServiceBusConfig{QueueName: "challan-events"}, "challan-api")
	assert.Error(t, err)
}
