package pubsub_test

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
	pubsub "github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/pubsub"
)

const testMessage = `{"event":"TRADE_SETTLED","trade_id":1,"data":{"trade_id":1,"bidder_address":"alice","asker_address":"bob","price":3000,"settled_at":1700000000}}`

type testWebServer struct {
	*httptest.Server

	lock     sync.Mutex
	requests map[string][]*receivedRequest
}

type receivedRequest struct {
	payload       string
	authorization string
}

func (s *testWebServer) received(path string) []*receivedRequest {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.requests[path]
}

func TestPubSubService(t *testing.T) {
	pubsubSvc, err := pubsub.NewService(t.TempDir(), 5*time.Second, 100, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		//nolint
		pubsubSvc.Close()
	})

	server := newTestWebServer(t)
	t.Cleanup(server.Close)

	settledEndpoint := fmt.Sprintf("%s/tradesettled", server.URL)
	allEventsEndpoint := fmt.Sprintf("%s/allevents", server.URL)

	secret := randomSecret()
	testSubs := []struct {
		topic    string
		endpoint string
		secret   string
	}{
		{"TRADE_SETTLED", settledEndpoint, secret},
		{"TRADE_SETTLED", settledEndpoint, ""},
		{"NFT_STAKED", settledEndpoint, ""},
		{ports.AnyTopic, allEventsEndpoint, ""},
	}
	for _, sub := range testSubs {
		subID, err := pubsubSvc.Subscribe(sub.topic, sub.endpoint, sub.secret)
		require.NoError(t, err)
		require.NotEmpty(t, subID)
	}

	subs := pubsubSvc.ListSubscriptionsForTopic("TRADE_SETTLED")
	require.Len(t, subs, 3)
	secured := 0
	for _, sub := range subs {
		require.NotEmpty(t, sub.Id())
		if sub.IsSecured() {
			secured++
		}
	}
	require.Equal(t, 1, secured)

	require.Len(t, pubsubSvc.ListSubscriptionsForTopic(ports.AnyTopic), 1)
	require.Len(t, pubsubSvc.ListSubscriptionsForTopic(ports.UnspecifiedTopic), 4)

	// Should invoke all hooks for the topic plus those for any topic.
	err = pubsubSvc.Publish("TRADE_SETTLED", testMessage)
	require.NoError(t, err)

	settled := server.received("/tradesettled")
	require.Len(t, settled, 2)
	tokens := 0
	for _, r := range settled {
		require.Equal(t, testMessage, r.payload)
		if r.authorization == "" {
			continue
		}
		tokens++
		tokenString := strings.TrimPrefix(r.authorization, "Bearer ")
		_, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 1, tokens)
	require.Len(t, server.received("/allevents"), 1)

	for _, s := range pubsubSvc.ListSubscriptionsForTopic(ports.UnspecifiedTopic) {
		err := pubsubSvc.Unsubscribe(s.Topic(), s.Id())
		require.NoError(t, err)
	}
	require.Empty(t, pubsubSvc.ListSubscriptionsForTopic(ports.UnspecifiedTopic))

	err = pubsubSvc.Unsubscribe("", "unknown")
	require.ErrorIs(t, err, pubsub.ErrSubscriptionNotFound)

	// Checks that it's all ok if there are no hooks to invoke.
	err = pubsubSvc.Publish("BID_CREATED", testMessage)
	require.NoError(t, err)
}

func TestPubSubServiceFailingEndpoint(t *testing.T) {
	pubsubSvc, err := pubsub.NewService("", time.Second, 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		//nolint
		pubsubSvc.Close()
	})

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		},
	))
	t.Cleanup(server.Close)

	_, err = pubsubSvc.Subscribe("BID_CREATED", server.URL, "")
	require.NoError(t, err)

	err = pubsubSvc.Publish("BID_CREATED", testMessage)
	require.Error(t, err)
}

func TestNewSubscription(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		event    string
		endpoint string
	}{
		{"missing event", "", "http://localhost:8080"},
		{"invalid endpoint", "BID_CREATED", "localhost"},
		{"invalid scheme", "BID_CREATED", "ftp://localhost"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := pubsub.NewSubscription(tt.event, tt.endpoint, "")
			require.Error(t, err)
		})
	}

	sub, err := pubsub.NewSubscription("BID_CREATED", "http://localhost:8080", "")
	require.NoError(t, err)
	require.NotEmpty(t, sub.Id())
	require.False(t, sub.IsSecured())
}

func newTestWebServer(t *testing.T) *testWebServer {
	srv := &testWebServer{requests: make(map[string][]*receivedRequest)}
	handleFn := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Bad method", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Content-Type") == "" {
			http.Error(w, "Missing Content-Type header", http.StatusUnsupportedMediaType)
			return
		}
		defer r.Body.Close()
		payload, _ := io.ReadAll(r.Body)

		srv.lock.Lock()
		srv.requests[r.URL.Path] = append(srv.requests[r.URL.Path], &receivedRequest{
			payload:       string(payload),
			authorization: r.Header.Get("Authorization"),
		})
		srv.lock.Unlock()

		t.Logf("request info: %s %s", r.Method, r.URL.String())
		fmt.Fprintf(w, "Done")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/tradesettled", handleFn)
	mux.HandleFunc("/allevents", handleFn)
	srv.Server = httptest.NewServer(mux)
	return srv
}

func randomSecret() string {
	b := make([]byte, 32)
	//nolint
	rand.Read(b)
	return hex.EncodeToString(b)
}
