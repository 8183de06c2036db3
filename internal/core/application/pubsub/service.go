package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
)

// WebhookInfo describes a registered webhook, its secret is never exposed.
type WebhookInfo struct {
	ID       string `json:"id"`
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Secured  bool   `json:"is_secured"`
}

type Service struct {
	pubsub ports.PubSub
}

func NewService(pubsub ports.PubSub) *Service {
	return &Service{pubsub}
}

// AddWebhook registers an endpoint to be notified of the given event, or of
// every event if "*" is given.
func (s *Service) AddWebhook(
	_ context.Context, event, endpoint, secret string,
) (string, error) {
	if !isValidTopic(event) {
		return "", fmt.Errorf("%w: invalid webhook event type %q", domain.ErrValidation, event)
	}
	return s.pubsub.Subscribe(event, endpoint, secret)
}

func (s *Service) RemoveWebhook(_ context.Context, id string) error {
	return s.pubsub.Unsubscribe(ports.UnspecifiedTopic, id)
}

// ListWebhooks returns the webhooks notified for the given event, or all of
// them if the event is empty.
func (s *Service) ListWebhooks(
	_ context.Context, event string,
) ([]WebhookInfo, error) {
	if event != ports.UnspecifiedTopic && !isValidTopic(event) {
		return nil, fmt.Errorf("%w: invalid webhook event type %q", domain.ErrValidation, event)
	}
	subs := s.pubsub.ListSubscriptionsForTopic(event)
	webhooks := make([]WebhookInfo, 0, len(subs))
	for _, sub := range subs {
		webhooks = append(webhooks, WebhookInfo{
			ID:       sub.Id(),
			Event:    sub.Topic(),
			Endpoint: sub.NotifyAt(),
			Secured:  sub.IsSecured(),
		})
	}
	return webhooks, nil
}

// PublishEvent notifies the subscribers of the given trade event.
func (s *Service) PublishEvent(event domain.Event) error {
	topic := event.Type().String()
	payload := map[string]interface{}{
		"event":    topic,
		"trade_id": event.GetTradeId(),
		"data":     event,
	}
	message, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.pubsub.Publish(topic, string(message))
}

func (s *Service) Close() {
	//nolint
	s.pubsub.Close()
}

func isValidTopic(topic string) bool {
	if topic == ports.AnyTopic {
		return true
	}
	for _, e := range domain.EventTypes() {
		if e.String() == topic {
			return true
		}
	}
	return false
}
