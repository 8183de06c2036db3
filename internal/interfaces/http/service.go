package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-nft-escrow/internal/interfaces"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type ServiceOpts struct {
	Port          int
	EscrowSvc     EscrowService
	WebhookSvc    WebhookService
	Faucet        DevFaucet
	EnableMetrics bool
}

func (o ServiceOpts) validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("invalid listening port %d", o.Port)
	}
	if o.EscrowSvc == nil {
		return fmt.Errorf("missing escrow service")
	}
	return nil
}

type service struct {
	server   *http.Server
	listener net.Listener
}

// NewService returns the REST interface of the daemon. Webhook and dev
// faucet routes are mounted only if the related services are provided.
func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &service{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// NewRouter returns the handler serving every route of the daemon.
func NewRouter(opts ServiceOpts) http.Handler {
	obs := newObservability(opts.EnableMetrics)

	r := chi.NewRouter()
	r.Use(obs.middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", obs.metricsHandler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/trades", newEscrowHandler(opts.EscrowSvc).routes)
		if opts.WebhookSvc != nil {
			r.Route("/webhooks", newWebhookHandler(opts.WebhookSvc).routes)
		}
		if opts.Faucet != nil {
			r.Route("/dev", newFaucetHandler(opts.Faucet).routes)
		}
	})
	return r
}

func (s *service) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = lis

	go func() {
		if err := s.server.Serve(lis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped unexpectedly")
		}
	}()

	log.Infof("http server listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http server")
		return
	}
	log.Info("http server stopped")
}
