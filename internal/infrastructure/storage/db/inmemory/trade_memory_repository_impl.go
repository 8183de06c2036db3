package inmemory

import (
	"context"

	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
)

type tradeRepositoryImpl struct {
	store *tradeInmemoryStore
}

// NewTradeRepositoryImpl returns a new inmemory TradeRepository implementation.
func NewTradeRepositoryImpl(store *tradeInmemoryStore) domain.TradeRepository {
	return &tradeRepositoryImpl{store}
}

func (r tradeRepositoryImpl) AddTrade(
	_ context.Context, trade *domain.Trade,
) (uint64, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	r.store.lastID++
	id := r.store.lastID

	t := *trade
	t.ID = id
	r.store.trades[id] = t

	return id, nil
}

func (r tradeRepositoryImpl) GetTradeById(
	_ context.Context, tradeID uint64,
) (*domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.getTrade(tradeID)
}

func (r tradeRepositoryImpl) GetAllTrades(
	_ context.Context,
) ([]*domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	trades := make([]*domain.Trade, 0, len(r.store.trades))
	for _, t := range r.store.trades {
		trade := t
		trades = append(trades, &trade)
	}
	return trades, nil
}

func (r tradeRepositoryImpl) GetAllTradesByAddress(
	_ context.Context, address string,
) ([]*domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	trades := make([]*domain.Trade, 0)
	for _, t := range r.store.trades {
		if !t.IsParticipant(address) {
			continue
		}
		trade := t
		trades = append(trades, &trade)
	}
	return trades, nil
}

func (r tradeRepositoryImpl) UpdateTrade(
	_ context.Context,
	tradeID uint64,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	currentTrade, err := r.getTrade(tradeID)
	if err != nil {
		return err
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}

	updatedTrade.ID = tradeID
	r.store.trades[tradeID] = *updatedTrade
	return nil
}

func (r tradeRepositoryImpl) getTrade(tradeID uint64) (*domain.Trade, error) {
	t, ok := r.store.trades[tradeID]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return &t, nil
}
