package escrow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
)

// DefaultMinDuration is the minimum lifetime in seconds of a trade when not
// otherwise configured.
const DefaultMinDuration = int64(600)

const eventQueueSize = 1024

// ErrCustodyRejected is returned when the asset custody or the currency bank
// refuse to move the caller's NFT or payment into escrow.
var ErrCustodyRejected = errors.New("custody rejected the transfer")

// EventPublisher notifies external subscribers of the trades lifecycle.
type EventPublisher interface {
	PublishEvent(event domain.Event) error
}

// TradeInfo is a read-only view of a trade together with its status at the
// time of the request.
type TradeInfo struct {
	domain.Trade
	Status domain.TradeStatus
}

// Service is the escrow engine. It owns the lifecycle of the trades and the
// custody of the NFTs and payments staked into them.
type Service struct {
	repoManager ports.RepoManager
	custody     ports.AssetCustody
	bank        ports.CurrencyBank
	publisher   EventPublisher
	minDuration int64

	locker *tradeLocker
	nowFn  func() int64

	events    chan domain.Event
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewService(
	repoManager ports.RepoManager,
	custody ports.AssetCustody,
	bank ports.CurrencyBank,
	publisher EventPublisher,
	minDuration int64,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if custody == nil {
		return nil, fmt.Errorf("missing asset custody")
	}
	if bank == nil {
		return nil, fmt.Errorf("missing currency bank")
	}
	if minDuration < 0 {
		return nil, fmt.Errorf("min trade duration must not be negative")
	}

	svc := &Service{
		repoManager: repoManager,
		custody:     custody,
		bank:        bank,
		publisher:   publisher,
		minDuration: minDuration,
		locker:      newTradeLocker(),
		nowFn:       func() int64 { return time.Now().Unix() },
		events:      make(chan domain.Event, eventQueueSize),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go svc.publishLoop()

	return svc, nil
}

// Close stops the delivery of events once the queued ones are published.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
}

// SetNowFunc overrides the time source used to evaluate expirations.
func (s *Service) SetNowFunc(now func() int64) {
	if now == nil {
		s.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	s.nowFn = now
}

// MinDuration returns the minimum lifetime in seconds accepted for a trade.
func (s *Service) MinDuration() int64 {
	return s.minDuration
}

// CreateBid creates a trade where the caller is the bidder. The price is
// paid later with Pay.
func (s *Service) CreateBid(
	ctx context.Context, caller string, req domain.TradeRequest,
) (uint64, error) {
	if err := s.checkCaller(caller); err != nil {
		return 0, err
	}
	trade, err := domain.NewBid(caller, req, s.minDuration, s.now())
	if err != nil {
		return 0, err
	}
	return s.addTrade(ctx, trade)
}

// CreateAsk creates a trade where the caller is the asker.
func (s *Service) CreateAsk(
	ctx context.Context, caller string, req domain.TradeRequest,
) (uint64, error) {
	if err := s.checkCaller(caller); err != nil {
		return 0, err
	}
	trade, err := domain.NewAsk(caller, req, s.minDuration, s.now())
	if err != nil {
		return 0, err
	}
	return s.addTrade(ctx, trade)
}

// StakeNft moves the caller's NFT into custody and binds the caller to the
// side of the trade the NFT belongs to. assetAddress is optional and only
// required when both legs share the same NFT id. The trade is settled as soon
// as every precondition is met.
func (s *Service) StakeNft(
	ctx context.Context, tradeID uint64, caller string,
	assetID uint64, assetAddress string,
) (*TradeInfo, error) {
	if err := s.checkCaller(caller); err != nil {
		return nil, err
	}
	unlock := s.locker.lock(tradeID)
	defer unlock()

	now := s.now()
	var side domain.Side
	var settled bool
	var updated domain.Trade
	j := newJournal(s.custody, s.bank)

	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
			var err error
			if side, err = t.Stake(caller, assetID, assetAddress, now); err != nil {
				return nil, err
			}

			nft := t.AskerNft()
			if side == domain.SideBidder {
				nft = t.BidderNft()
			}
			if err := j.transferIn(ctx, nft, caller); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrCustodyRejected, err)
			}

			settled = s.trySettle(ctx, j, t, now)
			updated = *t
			return t, nil
		},
	); err != nil {
		j.rollback(ctx)
		return nil, err
	}

	log.WithFields(log.Fields{
		"trade_id": tradeID,
		"side":     side.String(),
	}).Debug("nft staked")

	s.publish(domain.NewNftStakedEvent(&updated, side))
	if settled {
		s.publish(domain.NewTradeSettledEvent(&updated))
	}
	return s.info(updated, now), nil
}

// Pay collects the price of the trade from the bidder. The trade is settled
// as soon as every precondition is met.
func (s *Service) Pay(
	ctx context.Context, tradeID uint64, caller string, amount uint64,
) (*TradeInfo, error) {
	if err := s.checkCaller(caller); err != nil {
		return nil, err
	}
	unlock := s.locker.lock(tradeID)
	defer unlock()

	now := s.now()
	var settled bool
	var updated domain.Trade
	j := newJournal(s.custody, s.bank)

	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
			if err := t.Pay(caller, amount, now); err != nil {
				return nil, err
			}
			if err := j.collect(ctx, caller, amount); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrCustodyRejected, err)
			}

			settled = s.trySettle(ctx, j, t, now)
			updated = *t
			return t, nil
		},
	); err != nil {
		j.rollback(ctx)
		return nil, err
	}

	log.WithField("trade_id", tradeID).Debug("trade paid")

	s.publish(domain.NewAmountPaidEvent(&updated))
	if settled {
		s.publish(domain.NewTradeSettledEvent(&updated))
	}
	return s.info(updated, now), nil
}

// Settle finalizes a trade whose NFTs are both staked and whose price, if
// any, is paid. It exists for trades whose automatic settlement failed.
func (s *Service) Settle(ctx context.Context, tradeID uint64) (*TradeInfo, error) {
	unlock := s.locker.lock(tradeID)
	defer unlock()

	now := s.now()
	var updated domain.Trade
	j := newJournal(s.custody, s.bank)

	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
			if err := s.settle(ctx, j, t, now); err != nil {
				return nil, err
			}
			updated = *t
			return t, nil
		},
	); err != nil {
		j.rollback(ctx)
		return nil, err
	}

	log.WithField("trade_id", tradeID).Info("trade settled")

	s.publish(domain.NewTradeSettledEvent(&updated))
	return s.info(updated, now), nil
}

// Reclaim returns to the caller what they staked into an expired trade.
func (s *Service) Reclaim(
	ctx context.Context, tradeID uint64, caller string,
) (*domain.Refund, error) {
	if err := s.checkCaller(caller); err != nil {
		return nil, err
	}
	unlock := s.locker.lock(tradeID)
	defer unlock()

	now := s.now()
	var refund *domain.Refund
	var updated domain.Trade
	j := newJournal(s.custody, s.bank)

	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
			var err error
			if refund, err = t.Reclaim(caller, now); err != nil {
				return nil, err
			}
			if refund.Nft != nil {
				if err := j.transferOut(ctx, *refund.Nft, refund.To); err != nil {
					return nil, fmt.Errorf("failed to return NFT: %w", err)
				}
			}
			if err := j.send(ctx, refund.To, refund.Amount); err != nil {
				return nil, fmt.Errorf("failed to refund payment: %w", err)
			}
			updated = *t
			return t, nil
		},
	); err != nil {
		j.rollback(ctx)
		return nil, err
	}

	log.WithFields(log.Fields{
		"trade_id":  tradeID,
		"recipient": refund.To,
	}).Info("stake reclaimed")

	s.publish(domain.NewStakeReclaimedEvent(&updated, *refund))
	return refund, nil
}

// GetTradeById returns the trade with the given id.
func (s *Service) GetTradeById(
	ctx context.Context, tradeID uint64,
) (*TradeInfo, error) {
	trade, err := s.repoManager.TradeRepository().GetTradeById(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	return s.info(*trade, s.now()), nil
}

// ListTrades returns the trades involving the given address, or all of them
// if the address is empty, sorted by id.
func (s *Service) ListTrades(
	ctx context.Context, address string,
) ([]TradeInfo, error) {
	repo := s.repoManager.TradeRepository()

	var trades []*domain.Trade
	var err error
	if address == "" {
		trades, err = repo.GetAllTrades(ctx)
	} else {
		trades, err = repo.GetAllTradesByAddress(ctx, address)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	list := make([]TradeInfo, 0, len(trades))
	for _, t := range trades {
		list = append(list, *s.info(*t, now))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Service) addTrade(ctx context.Context, trade *domain.Trade) (uint64, error) {
	id, err := s.repoManager.TradeRepository().AddTrade(ctx, trade)
	if err != nil {
		return 0, err
	}
	trade.ID = id

	log.WithFields(log.Fields{
		"trade_id": id,
		"type":     trade.Type.String(),
		"creator":  trade.CreatorAddress,
	}).Info("trade created")

	s.publish(domain.NewTradeCreatedEvent(trade))
	return id, nil
}

// settle completes the trade and exchanges the custody of NFTs and payment.
func (s *Service) settle(
	ctx context.Context, j *journal, t *domain.Trade, now int64,
) error {
	if err := t.Settle(now); err != nil {
		return err
	}
	if err := j.transferOut(ctx, t.BidderNft(), t.AskerAddress); err != nil {
		return fmt.Errorf("failed to deliver bidder NFT: %w", err)
	}
	if err := j.transferOut(ctx, t.AskerNft(), t.BidderAddress); err != nil {
		return fmt.Errorf("failed to deliver asker NFT: %w", err)
	}
	if t.Paid {
		if err := j.send(ctx, t.AskerAddress, t.Price); err != nil {
			return fmt.Errorf("failed to deliver payment: %w", err)
		}
	}
	return nil
}

// trySettle settles the trade if possible. A failed settlement is reverted
// without affecting the operation that triggered it, the trade can then be
// settled with an explicit call to Settle.
func (s *Service) trySettle(
	ctx context.Context, j *journal, t *domain.Trade, now int64,
) bool {
	if !t.IsSettleable() {
		return false
	}

	snapshot := *t
	nested := newJournal(s.custody, s.bank)
	if err := s.settle(ctx, nested, t, now); err != nil {
		nested.rollback(ctx)
		*t = snapshot
		log.WithError(err).Warnf("automatic settlement of trade %d failed", t.ID)
		return false
	}
	j.merge(nested)
	return true
}

// checkCaller rejects the custody address, that would otherwise be able to
// stake or pay with what is escrowed for other trades.
func (s *Service) checkCaller(caller string) error {
	if caller != "" && caller == s.custody.CustodyAddress() {
		return domain.ErrCustodyCaller
	}
	return nil
}

// publish enqueues the event. Events are delivered one at a time in the order
// they are enqueued, so those of the same trade reach subscribers in the
// order the operations were committed.
func (s *Service) publish(event domain.Event) {
	if s.publisher == nil {
		return
	}
	select {
	case s.events <- event:
	case <-s.quit:
		log.Warnf(
			"pubsub: service closed, dropping %s event for trade %d",
			event.Type(), event.GetTradeId(),
		)
	}
}

func (s *Service) publishLoop() {
	defer close(s.done)

	for {
		select {
		case event := <-s.events:
			s.deliver(event)
		case <-s.quit:
			for {
				select {
				case event := <-s.events:
					s.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) deliver(event domain.Event) {
	if err := s.publisher.PublishEvent(event); err != nil {
		log.WithError(err).Warnf(
			"pubsub: failed to publish %s event for trade %d",
			event.Type(), event.GetTradeId(),
		)
		return
	}
	log.Debugf(
		"pubsub: published %s event for trade %d",
		event.Type(), event.GetTradeId(),
	)
}

func (s *Service) info(t domain.Trade, now int64) *TradeInfo {
	return &TradeInfo{t, t.Status(now)}
}

func (s *Service) now() int64 {
	if s.nowFn == nil {
		return time.Now().Unix()
	}
	return s.nowFn()
}
