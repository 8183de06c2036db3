package domain

// EventType enumerates the events emitted along the lifecycle of a trade.
type EventType int

const (
	BidCreated EventType = iota
	AskCreated
	NftStaked
	AmountPaid
	TradeSettled
	StakeReclaimed
)

var eventTypeToString = map[EventType]string{
	BidCreated:     "BID_CREATED",
	AskCreated:     "ASK_CREATED",
	NftStaked:      "NFT_STAKED",
	AmountPaid:     "AMOUNT_PAID",
	TradeSettled:   "TRADE_SETTLED",
	StakeReclaimed: "STAKE_RECLAIMED",
}

func (e EventType) String() string {
	label, ok := eventTypeToString[e]
	if !ok {
		return "UNKNOWN"
	}
	return label
}

// EventTypes returns every known event type.
func EventTypes() []EventType {
	return []EventType{
		BidCreated, AskCreated, NftStaked, AmountPaid, TradeSettled, StakeReclaimed,
	}
}

// Event is implemented by every trade lifecycle event.
type Event interface {
	Type() EventType
	GetTradeId() uint64
}

// TradeCreatedEvent is emitted for both bids and asks: the Type tells them
// apart and only the creator's address field is populated.
type TradeCreatedEvent struct {
	TradeID            uint64 `json:"trade_id"`
	Creator            string `json:"creator"`
	BidderAddress      string `json:"bidder_address,omitempty"`
	AskerAddress       string `json:"asker_address,omitempty"`
	BidderAssetAddress string `json:"bidder_nft_address"`
	AskerAssetAddress  string `json:"asker_nft_address"`
	BidderAssetID      uint64 `json:"bidder_nft_id"`
	AskerAssetID       uint64 `json:"asker_nft_id"`
	Price              uint64 `json:"price"`
	ExpiresAt          int64  `json:"expires_at"`

	eventType EventType
}

// NewTradeCreatedEvent returns a BidCreated or AskCreated event depending on
// the type of the given trade.
func NewTradeCreatedEvent(t *Trade) *TradeCreatedEvent {
	evt := &TradeCreatedEvent{
		TradeID:            t.ID,
		Creator:            t.CreatorAddress,
		BidderAssetAddress: t.BidderAssetAddress,
		AskerAssetAddress:  t.AskerAssetAddress,
		BidderAssetID:      t.BidderAssetID,
		AskerAssetID:       t.AskerAssetID,
		Price:              t.Price,
		ExpiresAt:          t.ExpiresAt,
	}
	if t.Type == TradeAsk {
		evt.eventType = AskCreated
		evt.AskerAddress = t.AskerAddress
	} else {
		evt.eventType = BidCreated
		evt.BidderAddress = t.BidderAddress
	}
	return evt
}

func (e *TradeCreatedEvent) Type() EventType    { return e.eventType }
func (e *TradeCreatedEvent) GetTradeId() uint64 { return e.TradeID }

type NftStakedEvent struct {
	TradeID      uint64 `json:"trade_id"`
	Side         string `json:"side"`
	Staker       string `json:"staker"`
	AssetAddress string `json:"nft_address"`
	AssetID      uint64 `json:"nft_id"`
}

func NewNftStakedEvent(t *Trade, side Side) *NftStakedEvent {
	evt := &NftStakedEvent{TradeID: t.ID, Side: side.String()}
	if side == SideBidder {
		evt.Staker = t.BidderAddress
		evt.AssetAddress, evt.AssetID = t.BidderAssetAddress, t.BidderAssetID
	} else {
		evt.Staker = t.AskerAddress
		evt.AssetAddress, evt.AssetID = t.AskerAssetAddress, t.AskerAssetID
	}
	return evt
}

func (e *NftStakedEvent) Type() EventType    { return NftStaked }
func (e *NftStakedEvent) GetTradeId() uint64 { return e.TradeID }

type AmountPaidEvent struct {
	TradeID uint64 `json:"trade_id"`
	Bidder  string `json:"bidder"`
	Amount  uint64 `json:"amount"`
}

func NewAmountPaidEvent(t *Trade) *AmountPaidEvent {
	return &AmountPaidEvent{t.ID, t.BidderAddress, t.Price}
}

func (e *AmountPaidEvent) Type() EventType    { return AmountPaid }
func (e *AmountPaidEvent) GetTradeId() uint64 { return e.TradeID }

type TradeSettledEvent struct {
	TradeID       uint64 `json:"trade_id"`
	BidderAddress string `json:"bidder_address"`
	AskerAddress  string `json:"asker_address"`
	Price         uint64 `json:"price"`
	SettledAt     int64  `json:"settled_at"`
}

func NewTradeSettledEvent(t *Trade) *TradeSettledEvent {
	return &TradeSettledEvent{
		t.ID, t.BidderAddress, t.AskerAddress, t.Price, t.SettledAt,
	}
}

func (e *TradeSettledEvent) Type() EventType    { return TradeSettled }
func (e *TradeSettledEvent) GetTradeId() uint64 { return e.TradeID }

type StakeReclaimedEvent struct {
	TradeID      uint64 `json:"trade_id"`
	Recipient    string `json:"recipient"`
	AssetAddress string `json:"nft_address,omitempty"`
	AssetID      uint64 `json:"nft_id,omitempty"`
	Amount       uint64 `json:"amount,omitempty"`
}

func NewStakeReclaimedEvent(t *Trade, refund Refund) *StakeReclaimedEvent {
	evt := &StakeReclaimedEvent{
		TradeID:   t.ID,
		Recipient: refund.To,
		Amount:    refund.Amount,
	}
	if refund.Nft != nil {
		evt.AssetAddress, evt.AssetID = refund.Nft.Address, refund.Nft.ID
	}
	return evt
}

func (e *StakeReclaimedEvent) Type() EventType    { return StakeReclaimed }
func (e *StakeReclaimedEvent) GetTradeId() uint64 { return e.TradeID }
