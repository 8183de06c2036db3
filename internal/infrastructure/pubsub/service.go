package pubsub

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/golang-jwt/jwt"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-nft-escrow/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRequestTimeout = 15 * time.Second
	// DefaultRateLimit is the max number of webhook requests per second.
	DefaultRateLimit = 50
)

type service struct {
	store      *store
	httpClient *client
	cb         *gobreaker.CircuitBreaker
	limiter    ratelimit.Limiter
}

// NewService returns a webhook based pubsub service persisting subscriptions
// under the given datadir. Subscriptions are kept in memory if the datadir is
// empty.
func NewService(
	datadir string, requestTimeout time.Duration, rateLimit int,
	logger badger.Logger,
) (ports.PubSub, error) {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	store, err := newStore(datadir, logger)
	if err != nil {
		return nil, err
	}

	return &service{
		store:      store,
		httpClient: newHTTPClient(requestTimeout),
		cb:         circuitbreaker.NewCircuitBreaker("webhooks"),
		limiter:    ratelimit.New(rateLimit),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}
	if err := ws.store.addSubscription(*sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	return ws.store.removeSubscription(id)
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	subs, err := ws.listSubscriptionsForTopic(topic)
	if err != nil {
		log.WithError(err).Warnf("pubsub: failed to list subscriptions for %s", topic)
		return nil
	}
	return subs.toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	subs, err := ws.listSubscriptionsForTopic(topic)
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(context.Background())
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(ctx, sub, message) })
	}
	return eg.Wait()
}

func (ws *service) Close() error {
	return ws.store.close()
}

func (ws *service) listSubscriptionsForTopic(topic string) (subscriptions, error) {
	if topic == ports.UnspecifiedTopic {
		return ws.store.getSubscriptionsForTopics()
	}
	if topic == ports.AnyTopic {
		return ws.store.getSubscriptionsForTopics(ports.AnyTopic)
	}
	return ws.store.getSubscriptionsForTopics(topic, ports.AnyTopic)
}

func (ws *service) doRequest(
	ctx context.Context, sub Subscription, payload string,
) error {
	ws.limiter.Take()

	_, err := ws.cb.Execute(func() (interface{}, error) {
		headers := map[string]string{
			"Content-Type": "application/json",
		}
		if sub.IsSecured() {
			token := jwt.New(jwt.SigningMethodHS256)
			tokenString, err := token.SignedString([]byte(sub.Secret))
			if err != nil {
				return nil, err
			}
			headers["Authorization"] = fmt.Sprintf("Bearer %s", tokenString)
		}

		status, resp, err := ws.httpClient.post(ctx, sub.Endpoint, payload, headers)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("webhook %s replied with status %d: %s", sub.ID, status, resp)
		}
		return nil, nil
	})

	return err
}
