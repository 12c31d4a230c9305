package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/models"
)

// EventChallanCreated is published after a challan is committed
const EventChallanCreated = "challan.created"

const contentTypeJSON = "application/json"

// Event is the envelope of every message this service publishes
type Event struct {
	ID         string                `json:"id"`
	Type       string                `json:"type"`
	OccurredAt time.Time             `json:"occurred_at"`
	Challan    models.ChallanSummary `json:"challan"`
}

// NewChallanCreatedEvent builds the event announcing summary
func NewChallanCreatedEvent(summary models.ChallanSummary, at time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       EventChallanCreated,
		OccurredAt: at.UTC(),
		Challan:    summary,
	}
}

// sender is the part of *azservicebus.Sender the publisher needs
type sender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// ServiceBusPublisher publishes challan events to an Azure Service Bus queue
type ServiceBusPublisher struct {
	client    *azservicebus.Client
	sender    sender
	queueName string
	source    string
}

// NewServiceBusPublisher creates a new Azure Service Bus publisher
func NewServiceBusPublisher(cfg config.ServiceBusConfig, source string) (*ServiceBusPublisher, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	s, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &ServiceBusPublisher{
		client:    client,
		sender:    s,
		queueName: cfg.QueueName,
		source:    source,
	}, nil
}

// Publish sends event to the queue
func (p *ServiceBusPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}

	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrapf(err, "failed to send %s to %s", event.Type, p.queueName)
	}
	return nil
}

func (p *ServiceBusPublisher) message(event Event) (*azservicebus.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message body")
	}

	contentType := contentTypeJSON
	messageID := event.ID
	subject := event.Type

	return &azservicebus.Message{
		Body:        data,
		ContentType: &contentType,
		MessageID:   &messageID,
		Subject:     &subject,
		ApplicationProperties: map[string]interface{}{
			"source": p.source,
			"time":   event.OccurredAt.Format(time.RFC3339),
		},
	}, nil
}

// Close closes the Service Bus client
func (p *ServiceBusPublisher) Close() error {
	ctx := context.Background()

	if p.sender != nil {
		if err := p.sender.Close(ctx); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(ctx)
	}
	return nil
}
