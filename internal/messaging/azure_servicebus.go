package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/arogyayaan/replenishment/config"
	"example.com/arogyayaan/replenishment/internal/models"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/rs/zerolog/log"
)

// EventCardCreated is the subject of messages announcing a new solution card
const EventCardCreated = "solution_card.created"

type sender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// CardCreatedEvent is the body published for every saved solution card
type CardCreatedEvent struct {
	CardID       string              `json:"card_id"`
	Status       string              `json:"status"`
	FromFacility string              `json:"from_facility"`
	ToFacility   string              `json:"to_facility"`
	Item         string              `json:"item"`
	Quantity     int                 `json:"quantity"`
	EstTimeMins  int                 `json:"est_time_mins"`
	Weather      models.WeatherClass `json:"weather"`
	Source       string              `json:"source"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CardPublisher publishes solution card events to an Azure Service Bus queue
type CardPublisher struct {
	client    *azservicebus.Client
	sender    sender
	queueName string
	enabled   bool
}

// Disabled returns a publisher that drops every event
func Disabled() *CardPublisher {
	return &CardPublisher{enabled: false}
}

// NewCardPublisher creates a new Azure Service Bus publisher
func NewCardPublisher(cfg config.AzureConfig) (*CardPublisher, error) {
	if !cfg.Enabled {
		return Disabled(), nil
	}
	if cfg.QueueConnStr == "" {
		return nil, fmt.Errorf("%w: azure.queue_conn_str is empty", config.ErrConfiguration)
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	s, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		client.Close(context.Background())
		return nil, fmt.Errorf("failed to create Service Bus sender: %w", err)
	}

	return &CardPublisher{
		client:    client,
		sender:    s,
		queueName: cfg.QueueName,
		enabled:   true,
	}, nil
}

// PublishCardCreated sends a card-created event. The card's idempotency token is used as
// the message id so broker-side duplicate detection drops retried sends.
func (p *CardPublisher) PublishCardCreated(ctx context.Context, card *models.SolutionCard) error {
	if !p.enabled {
		return nil
	}

	payload := card.Payload.Data()
	data, err := json.Marshal(CardCreatedEvent{
		CardID:       card.ID.String(),
		Status:       card.Status,
		FromFacility: card.FromFacilityID,
		ToFacility:   card.ToFacilityID,
		Item:         payload.RequestDetails.Item,
		Quantity:     payload.Recommendation.Quantity,
		EstTimeMins:  payload.Recommendation.Logistics.EstTimeMins,
		Weather:      payload.Recommendation.Logistics.Weather,
		Source:       card.Source,
		CreatedAt:    card.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	messageID := card.IdempotencyToken.String()
	subject := EventCardCreated
	contentType := "application/json"

	msg := &azservicebus.Message{
		Body:        data,
		MessageID:   &messageID,
		Subject:     &subject,
		ContentType: &contentType,
		ApplicationProperties: map[string]interface{}{
			"source": card.Source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return fmt.Errorf("failed to send %s for card %s: %w", EventCardCreated, card.ID, err)
	}

	log.Debug().Str("card_id", card.ID.String()).Str("queue", p.queueName).Msg("Card event published")
	return nil
}

// Close closes the Service Bus sender and client
func (p *CardPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.sender != nil {
		if err := p.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(context.Background())
	}
	return nil
}
