package httpinterface

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application/escrow"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
)

// EscrowService is the application service exposed by the trades endpoints.
type EscrowService interface {
	CreateBid(ctx context.Context, caller string, req domain.TradeRequest) (uint64, error)
	CreateAsk(ctx context.Context, caller string, req domain.TradeRequest) (uint64, error)
	StakeNft(
		ctx context.Context, tradeID uint64, caller string,
		assetID uint64, assetAddress string,
	) (*escrow.TradeInfo, error)
	Pay(ctx context.Context, tradeID uint64, caller string, amount uint64) (*escrow.TradeInfo, error)
	Settle(ctx context.Context, tradeID uint64) (*escrow.TradeInfo, error)
	Reclaim(ctx context.Context, tradeID uint64, caller string) (*domain.Refund, error)
	GetTradeById(ctx context.Context, tradeID uint64) (*escrow.TradeInfo, error)
	ListTrades(ctx context.Context, address string) ([]escrow.TradeInfo, error)
}

type escrowHandler struct {
	escrowSvc EscrowService
}

func newEscrowHandler(escrowSvc EscrowService) *escrowHandler {
	return &escrowHandler{escrowSvc}
}

func (h *escrowHandler) routes(r chi.Router) {
	r.Post("/bid", h.createBid)
	r.Post("/ask", h.createAsk)
	r.Get("/", h.listTrades)
	r.Route("/{tradeID}", func(r chi.Router) {
		r.Get("/", h.getTrade)
		r.Post("/stake", h.stakeNft)
		r.Post("/pay", h.pay)
		r.Post("/settle", h.settle)
		r.Post("/reclaim", h.reclaim)
	})
}

func (h *escrowHandler) createBid(w http.ResponseWriter, r *http.Request) {
	h.createTrade(w, r, h.escrowSvc.CreateBid)
}

func (h *escrowHandler) createAsk(w http.ResponseWriter, r *http.Request) {
	h.createTrade(w, r, h.escrowSvc.CreateAsk)
}

func (h *escrowHandler) createTrade(
	w http.ResponseWriter, r *http.Request,
	createFn func(context.Context, string, domain.TradeRequest) (uint64, error),
) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	var req createTradeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tradeID, err := createFn(r.Context(), caller, req.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTradeResponse{tradeID})
}

func (h *escrowHandler) stakeNft(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFromRequest(w, r)
	if !ok {
		return
	}
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	var req stakeNftRequest
	if !decodeBody(w, r, &req) {
		return
	}

	info, err := h.escrowSvc.StakeNft(
		r.Context(), tradeID, caller, req.NftID, req.NftAddress,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeResponse(*info))
}

func (h *escrowHandler) pay(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFromRequest(w, r)
	if !ok {
		return
	}
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	var req payRequest
	if !decodeBody(w, r, &req) {
		return
	}

	info, err := h.escrowSvc.Pay(r.Context(), tradeID, caller, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeResponse(*info))
}

func (h *escrowHandler) settle(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFromRequest(w, r)
	if !ok {
		return
	}

	info, err := h.escrowSvc.Settle(r.Context(), tradeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeResponse(*info))
}

func (h *escrowHandler) reclaim(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFromRequest(w, r)
	if !ok {
		return
	}
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	refund, err := h.escrowSvc.Reclaim(r.Context(), tradeID, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRefundResponse(*refund))
}

func (h *escrowHandler) getTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := tradeIDFromRequest(w, r)
	if !ok {
		return
	}

	info, err := h.escrowSvc.GetTradeById(r.Context(), tradeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeResponse(*info))
}

func (h *escrowHandler) listTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.escrowSvc.ListTrades(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, err)
		return
	}

	res := listTradesResponse{make([]tradeResponse, 0, len(trades))}
	for _, info := range trades {
		res.Trades = append(res.Trades, newTradeResponse(info))
	}
	writeJSON(w, http.StatusOK, res)
}

func tradeIDFromRequest(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	tradeID, err := strconv.ParseUint(chi.URLParam(r, "tradeID"), 10, 64)
	if err != nil {
		writeBadRequest(w, errInvalidTradeID)
		return 0, false
	}
	return tradeID, true
}

func callerFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get(CallerHeader)
	if caller == "" {
		writeBadRequest(w, errMissingCaller)
		return "", false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, errInvalidBody)
		return false
	}
	return true
}
