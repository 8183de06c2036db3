package httpinterface

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
)

// DevFaucet mints NFTs and funds accounts on development custodies.
type DevFaucet interface {
	Mint(assetAddress string, assetID uint64, owner string) error
	Fund(address string, amount uint64) error
	OwnerOf(ctx context.Context, assetAddress string, assetID uint64) (string, error)
	BalanceOf(ctx context.Context, address string) (uint64, error)
}

type faucetHandler struct {
	faucet DevFaucet
}

func newFaucetHandler(faucet DevFaucet) *faucetHandler {
	return &faucetHandler{faucet}
}

func (h *faucetHandler) routes(r chi.Router) {
	r.Post("/nfts", h.mint)
	r.Get("/nfts/{nftAddress}/{nftID}", h.ownerOf)
	r.Post("/balances", h.fund)
	r.Get("/balances/{address}", h.balanceOf)
}

func (h *faucetHandler) mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.faucet.Mint(req.NftAddress, req.NftID, req.Owner); err != nil {
		writeError(w, fmt.Errorf("%w: %s", domain.ErrValidation, err))
		return
	}
	writeJSON(w, http.StatusCreated, ownerResponse{req.Owner})
}

func (h *faucetHandler) ownerOf(w http.ResponseWriter, r *http.Request) {
	nftID, err := strconv.ParseUint(chi.URLParam(r, "nftID"), 10, 64)
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid nft id"))
		return
	}
	owner, err := h.faucet.OwnerOf(r.Context(), chi.URLParam(r, "nftAddress"), nftID)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", domain.ErrNotFound, err))
		return
	}
	writeJSON(w, http.StatusOK, ownerResponse{owner})
}

func (h *faucetHandler) fund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.faucet.Fund(req.Address, req.Amount); err != nil {
		writeError(w, fmt.Errorf("%w: %s", domain.ErrValidation, err))
		return
	}
	h.writeBalance(w, r, req.Address)
}

func (h *faucetHandler) balanceOf(w http.ResponseWriter, r *http.Request) {
	h.writeBalance(w, r, chi.URLParam(r, "address"))
}

func (h *faucetHandler) writeBalance(
	w http.ResponseWriter, r *http.Request, address string,
) {
	balance, err := h.faucet.BalanceOf(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{address, balance})
}
