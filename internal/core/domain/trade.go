package domain

import (
	"math"
)

// TradeType tells which party created the trade.
type TradeType int

const (
	// TradeBid is a trade created by the party that wants the asker's NFT.
	TradeBid TradeType = iota
	// TradeAsk is a trade created by the party that sells its NFT.
	TradeAsk
)

func (t TradeType) String() string {
	switch t {
	case TradeBid:
		return "BID"
	case TradeAsk:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// Side identifies one of the two legs of a trade.
type Side int

const (
	SideNone Side = iota
	SideBidder
	SideAsker
)

func (s Side) String() string {
	switch s {
	case SideBidder:
		return "bidder"
	case SideAsker:
		return "asker"
	default:
		return "none"
	}
}

// TradeStatus is the lifecycle status of a trade, derived from its flags and
// from the time of the evaluation.
type TradeStatus int

const (
	// StatusOpen trades accept stakes and payments.
	StatusOpen TradeStatus = iota
	// StatusCompleted trades have been settled, this is terminal.
	StatusCompleted
	// StatusExpired trades passed their expiration without settling, parties
	// can only reclaim what they staked.
	StatusExpired
	// StatusUnwound trades are expired and every stake has been reclaimed.
	StatusUnwound
)

func (s TradeStatus) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusCompleted:
		return "COMPLETED"
	case StatusExpired:
		return "EXPIRED"
	case StatusUnwound:
		return "UNWOUND"
	default:
		return "UNKNOWN"
	}
}

// Nft references a single token of a collection.
type Nft struct {
	Address string
	ID      uint64
}

// TradeRequest holds the arguments of a bid or ask creation.
type TradeRequest struct {
	BidderAssetID      uint64
	AskerAssetID       uint64
	BidderAssetAddress string
	AskerAssetAddress  string
	// Duration in seconds after which the trade expires.
	Duration int64
	// Price is the amount of native currency owed by the bidder to the asker.
	Price uint64
}

// Trade is the escrow record of a swap between two NFTs, optionally topped
// up by a payment from the bidder to the asker.
type Trade struct {
	ID                 uint64
	Type               TradeType
	CreatorAddress     string
	BidderAddress      string
	AskerAddress       string
	BidderAssetAddress string
	AskerAssetAddress  string
	BidderAssetID      uint64
	AskerAssetID       uint64
	Price              uint64
	Paid               bool
	BidderStaked       bool
	AskerStaked        bool
	Completed          bool
	CreatedAt          int64
	ExpiresAt          int64
	SettledAt          int64
	BidderReclaimed    bool
	AskerReclaimed     bool
	PaymentRefunded    bool
}

// Refund is what a party gets back when reclaiming from an expired trade.
type Refund struct {
	To     string
	Nft    *Nft
	Amount uint64
}

// NewBid returns a trade proposed by the caller as bidder. The returned trade
// has no identifier, that is assigned by the TradeRepository.
func NewBid(
	caller string, req TradeRequest, minDuration, now int64,
) (*Trade, error) {
	t, err := newTrade(caller, req, minDuration, now)
	if err != nil {
		return nil, err
	}
	t.Type = TradeBid
	t.BidderAddress = caller
	return t, nil
}

// NewAsk returns a trade proposed by the caller as asker.
func NewAsk(
	caller string, req TradeRequest, minDuration, now int64,
) (*Trade, error) {
	t, err := newTrade(caller, req, minDuration, now)
	if err != nil {
		return nil, err
	}
	t.Type = TradeAsk
	t.AskerAddress = caller
	return t, nil
}

func newTrade(
	caller string, req TradeRequest, minDuration, now int64,
) (*Trade, error) {
	if caller == "" {
		return nil, ErrMissingCaller
	}
	if req.BidderAssetAddress == "" || req.AskerAssetAddress == "" {
		return nil, ErrMissingAssetAddress
	}
	if req.BidderAssetAddress == req.AskerAssetAddress &&
		req.BidderAssetID == req.AskerAssetID {
		return nil, ErrSameNft
	}
	if req.Duration < minDuration || req.Duration < 0 {
		return nil, ErrDurationTooShort
	}
	expiresAt := int64(math.MaxInt64)
	if req.Duration <= math.MaxInt64-now {
		expiresAt = now + req.Duration
	}

	return &Trade{
		CreatorAddress:     caller,
		BidderAssetAddress: req.BidderAssetAddress,
		AskerAssetAddress:  req.AskerAssetAddress,
		BidderAssetID:      req.BidderAssetID,
		AskerAssetID:       req.AskerAssetID,
		Price:              req.Price,
		CreatedAt:          now,
		ExpiresAt:          expiresAt,
	}, nil
}

// IsExpired returns whether the trade can no longer be progressed at the
// given time.
func (t *Trade) IsExpired(now int64) bool {
	return now >= t.ExpiresAt
}

// IsPaymentSatisfied returns whether the payment precondition of the
// settlement is met. A zero price never requires a payment.
func (t *Trade) IsPaymentSatisfied() bool {
	return t.Paid || t.Price == 0
}

// IsSettleable returns whether every precondition of the settlement is met,
// expiration excluded.
func (t *Trade) IsSettleable() bool {
	return !t.Completed && t.BidderStaked && t.AskerStaked &&
		t.IsPaymentSatisfied()
}

// Status returns the lifecycle status of the trade at the given time.
func (t *Trade) Status(now int64) TradeStatus {
	if t.Completed {
		return StatusCompleted
	}
	if !t.IsExpired(now) {
		return StatusOpen
	}
	if t.hasPendingRefunds() {
		return StatusExpired
	}
	return StatusUnwound
}

// BidderNft returns the reference of the NFT offered by the bidder.
func (t *Trade) BidderNft() Nft {
	return Nft{t.BidderAssetAddress, t.BidderAssetID}
}

// AskerNft returns the reference of the NFT offered by the asker.
func (t *Trade) AskerNft() Nft {
	return Nft{t.AskerAssetAddress, t.AskerAssetID}
}

// SideOf resolves which leg of the trade the given NFT belongs to.
// The NFT address is optional and is only required to disambiguate trades
// whose legs share the same NFT id. Without it, the caller's already bound
// role is used to resolve the ambiguity.
func (t *Trade) SideOf(
	assetID uint64, assetAddress, caller string,
) (Side, error) {
	matchesBidder := assetID == t.BidderAssetID &&
		(assetAddress == "" || assetAddress == t.BidderAssetAddress)
	matchesAsker := assetID == t.AskerAssetID &&
		(assetAddress == "" || assetAddress == t.AskerAssetAddress)

	switch {
	case matchesBidder && matchesAsker:
		if caller != "" && caller == t.BidderAddress {
			return SideBidder, nil
		}
		if caller != "" && caller == t.AskerAddress {
			return SideAsker, nil
		}
		return SideNone, ErrAmbiguousNft
	case matchesBidder:
		return SideBidder, nil
	case matchesAsker:
		return SideAsker, nil
	default:
		return SideNone, ErrUnknownNft
	}
}

// Stake binds the caller to the side of the given NFT and marks it as staked.
// The caller is expected to move the NFT into custody only if no error is
// returned.
func (t *Trade) Stake(
	caller string, assetID uint64, assetAddress string, now int64,
) (Side, error) {
	if caller == "" {
		return SideNone, ErrMissingCaller
	}
	if t.Completed {
		return SideNone, ErrTradeCompleted
	}
	if t.IsExpired(now) {
		return SideNone, ErrTradeExpired
	}

	side, err := t.SideOf(assetID, assetAddress, caller)
	if err != nil {
		return SideNone, err
	}

	switch side {
	case SideBidder:
		if t.BidderAddress != "" && t.BidderAddress != caller {
			return SideNone, ErrBidderMismatch
		}
		if caller == t.AskerAddress {
			return SideNone, ErrCounterpartyIsSelf
		}
		if t.BidderStaked {
			return SideNone, ErrAlreadyStaked
		}
		t.BidderAddress = caller
		t.BidderStaked = true
	case SideAsker:
		if t.AskerAddress != "" && t.AskerAddress != caller {
			return SideNone, ErrAskerMismatch
		}
		if caller == t.BidderAddress {
			return SideNone, ErrCounterpartyIsSelf
		}
		if t.AskerStaked {
			return SideNone, ErrAlreadyStaked
		}
		t.AskerAddress = caller
		t.AskerStaked = true
	}
	return side, nil
}

// Pay records the bidder's payment of the trade price. The caller is expected
// to collect the amount only if no error is returned.
func (t *Trade) Pay(caller string, amount uint64, now int64) error {
	if t.Completed {
		return ErrTradeCompleted
	}
	if t.IsExpired(now) {
		return ErrTradeExpired
	}
	if caller == "" || caller != t.BidderAddress {
		return ErrBidderMismatch
	}
	if amount != t.Price {
		return ErrWrongAmount
	}
	if t.Paid {
		return ErrAlreadyPaid
	}

	t.Paid = true
	return nil
}

// Settle marks the trade as completed. The caller is expected to exchange the
// custody of the NFTs and of the payment only if no error is returned.
func (t *Trade) Settle(now int64) error {
	if t.Completed {
		return ErrTradeCompleted
	}
	if t.IsExpired(now) {
		return ErrTradeExpired
	}
	if !t.IsSettleable() {
		return ErrNotSettleable
	}

	t.Completed = true
	t.SettledAt = now
	return nil
}

// Reclaim returns what the caller staked into an expired trade and marks it
// as returned so that it cannot be reclaimed twice.
func (t *Trade) Reclaim(caller string, now int64) (*Refund, error) {
	if caller == "" {
		return nil, ErrMissingCaller
	}
	if t.Completed {
		return nil, ErrTradeCompleted
	}
	if !t.IsExpired(now) {
		return nil, ErrTradeNotExpired
	}

	refund := &Refund{To: caller}
	switch caller {
	case t.BidderAddress:
		if t.BidderStaked && !t.BidderReclaimed {
			nft := t.BidderNft()
			refund.Nft = &nft
			t.BidderReclaimed = true
		}
		if t.Paid && t.Price > 0 && !t.PaymentRefunded {
			refund.Amount = t.Price
			t.PaymentRefunded = true
		}
	case t.AskerAddress:
		if t.AskerStaked && !t.AskerReclaimed {
			nft := t.AskerNft()
			refund.Nft = &nft
			t.AskerReclaimed = true
		}
	}

	if refund.Nft == nil && refund.Amount == 0 {
		return nil, ErrNothingToReclaim
	}
	return refund, nil
}

// IsParticipant returns whether the given address is bound to any role of
// the trade.
func (t *Trade) IsParticipant(address string) bool {
	return address != "" &&
		(address == t.BidderAddress || address == t.AskerAddress ||
			address == t.CreatorAddress)
}

func (t *Trade) hasPendingRefunds() bool {
	return (t.BidderStaked && !t.BidderReclaimed) ||
		(t.AskerStaked && !t.AskerReclaimed) ||
		(t.Paid && t.Price > 0 && !t.PaymentRefunded)
}
