package httpinterface

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application/pubsub"
)

type WebhookService interface {
	AddWebhook(ctx context.Context, event, endpoint, secret string) (string, error)
	RemoveWebhook(ctx context.Context, id string) error
	ListWebhooks(ctx context.Context, event string) ([]pubsub.WebhookInfo, error)
}

type webhookHandler struct {
	webhookSvc WebhookService
}

func newWebhookHandler(webhookSvc WebhookService) *webhookHandler {
	return &webhookHandler{webhookSvc}
}

func (h *webhookHandler) routes(r chi.Router) {
	r.Post("/", h.addWebhook)
	r.Get("/", h.listWebhooks)
	r.Delete("/{webhookID}", h.removeWebhook)
}

func (h *webhookHandler) addWebhook(w http.ResponseWriter, r *http.Request) {
	var req addWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.webhookSvc.AddWebhook(r.Context(), req.Event, req.Endpoint, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addWebhookResponse{id})
}

func (h *webhookHandler) removeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.webhookSvc.RemoveWebhook(
		r.Context(), chi.URLParam(r, "webhookID"),
	); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *webhookHandler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.webhookSvc.ListWebhooks(r.Context(), r.URL.Query().Get("event"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"webhooks": hooks})
}
