package httpinterface

import (
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application/escrow"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
)

// CallerHeader carries the address of the account performing the request.
// Authenticating it is up to the infrastructure in front of the daemon.
const CallerHeader = "X-Escrow-Caller"

type createTradeRequest struct {
	BidderNftAddress string `json:"bidder_nft_address"`
	BidderNftID      uint64 `json:"bidder_nft_id"`
	AskerNftAddress  string `json:"asker_nft_address"`
	AskerNftID       uint64 `json:"asker_nft_id"`
	Duration         int64  `json:"duration"`
	Price            uint64 `json:"price"`
}

func (r createTradeRequest) toDomain() domain.TradeRequest {
	return domain.TradeRequest{
		BidderAssetID:      r.BidderNftID,
		AskerAssetID:       r.AskerNftID,
		BidderAssetAddress: r.BidderNftAddress,
		AskerAssetAddress:  r.AskerNftAddress,
		Duration:           r.Duration,
		Price:              r.Price,
	}
}

type createTradeResponse struct {
	TradeID uint64 `json:"trade_id"`
}

type stakeNftRequest struct {
	NftID      uint64 `json:"nft_id"`
	NftAddress string `json:"nft_address,omitempty"`
}

type payRequest struct {
	Amount uint64 `json:"amount"`
}

type nftResponse struct {
	Address string `json:"address"`
	ID      uint64 `json:"id"`
}

type tradeResponse struct {
	ID              uint64      `json:"id"`
	Type            string      `json:"type"`
	Status          string      `json:"status"`
	Creator         string      `json:"creator"`
	BidderAddress   string      `json:"bidder_address"`
	AskerAddress    string      `json:"asker_address"`
	BidderNft       nftResponse `json:"bidder_nft"`
	AskerNft        nftResponse `json:"asker_nft"`
	Price           uint64      `json:"price"`
	Paid            bool        `json:"paid"`
	BidderStaked    bool        `json:"bidder_staked"`
	AskerStaked     bool        `json:"asker_staked"`
	Completed       bool        `json:"completed"`
	CreatedAt       int64       `json:"created_at"`
	ExpiresAt       int64       `json:"expires_at"`
	SettledAt       int64       `json:"settled_at,omitempty"`
	BidderReclaimed bool        `json:"bidder_reclaimed"`
	AskerReclaimed  bool        `json:"asker_reclaimed"`
	PaymentRefunded bool        `json:"payment_refunded"`
}

func newTradeResponse(info escrow.TradeInfo) tradeResponse {
	t := info.Trade
	return tradeResponse{
		ID:              t.ID,
		Type:            t.Type.String(),
		Status:          info.Status.String(),
		Creator:         t.CreatorAddress,
		BidderAddress:   t.BidderAddress,
		AskerAddress:    t.AskerAddress,
		BidderNft:       nftResponse{t.BidderAssetAddress, t.BidderAssetID},
		AskerNft:        nftResponse{t.AskerAssetAddress, t.AskerAssetID},
		Price:           t.Price,
		Paid:            t.Paid,
		BidderStaked:    t.BidderStaked,
		AskerStaked:     t.AskerStaked,
		Completed:       t.Completed,
		CreatedAt:       t.CreatedAt,
		ExpiresAt:       t.ExpiresAt,
		SettledAt:       t.SettledAt,
		BidderReclaimed: t.BidderReclaimed,
		AskerReclaimed:  t.AskerReclaimed,
		PaymentRefunded: t.PaymentRefunded,
	}
}

type listTradesResponse struct {
	Trades []tradeResponse `json:"trades"`
}

type refundResponse struct {
	To     string       `json:"to"`
	Nft    *nftResponse `json:"nft,omitempty"`
	Amount uint64       `json:"amount"`
}

func newRefundResponse(refund domain.Refund) refundResponse {
	res := refundResponse{To: refund.To, Amount: refund.Amount}
	if refund.Nft != nil {
		res.Nft = &nftResponse{refund.Nft.Address, refund.Nft.ID}
	}
	return res
}

type addWebhookRequest struct {
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret,omitempty"`
}

type addWebhookResponse struct {
	ID string `json:"id"`
}

type mintRequest struct {
	NftAddress string `json:"nft_address"`
	NftID      uint64 `json:"nft_id"`
	Owner      string `json:"owner"`
}

type fundRequest struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}
