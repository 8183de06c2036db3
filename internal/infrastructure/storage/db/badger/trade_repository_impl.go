package dbbadger

import (
	"context"
	"errors"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const (
	tradeCounterKey = "trade_counter"
	maxTxRetries    = 10
)

// tradeCounter holds the last identifier assigned to a trade.
type tradeCounter struct {
	LastID uint64
}

type tradeRepositoryImpl struct {
	store *badgerhold.Store
	// serializes inserts, that all contend on the counter record.
	lock *sync.Mutex
}

func NewTradeRepositoryImpl(store *badgerhold.Store) domain.TradeRepository {
	return &tradeRepositoryImpl{store, &sync.Mutex{}}
}

// AddTrade increments the counter and inserts the trade within the same
// transaction, therefore identifiers are never skipped nor reused.
func (r *tradeRepositoryImpl) AddTrade(
	ctx context.Context, trade *domain.Trade,
) (uint64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var id uint64
	err := r.update(ctx, func(tx *badger.Txn) error {
		counter := tradeCounter{}
		if err := r.store.TxGet(tx, tradeCounterKey, &counter); err != nil {
			if !errors.Is(err, badgerhold.ErrNotFound) {
				return err
			}
		}
		counter.LastID++

		t := *trade
		t.ID = counter.LastID
		if err := r.store.TxUpsert(tx, tradeCounterKey, &counter); err != nil {
			return err
		}
		if err := r.store.TxInsert(tx, t.ID, &t); err != nil {
			return err
		}
		id = t.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *tradeRepositoryImpl) GetTradeById(
	_ context.Context, tradeID uint64,
) (*domain.Trade, error) {
	var trade domain.Trade
	if err := r.store.Get(tradeID, &trade); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

func (r *tradeRepositoryImpl) GetAllTrades(
	_ context.Context,
) ([]*domain.Trade, error) {
	return r.findTrades(nil)
}

func (r *tradeRepositoryImpl) GetAllTradesByAddress(
	_ context.Context, address string,
) ([]*domain.Trade, error) {
	if address == "" {
		return []*domain.Trade{}, nil
	}
	query := badgerhold.Where("CreatorAddress").Eq(address).
		Or(badgerhold.Where("BidderAddress").Eq(address)).
		Or(badgerhold.Where("AskerAddress").Eq(address))
	return r.findTrades(query)
}

func (r *tradeRepositoryImpl) UpdateTrade(
	ctx context.Context,
	tradeID uint64,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	// updateFn may have side effects, so conflicting transactions are not
	// retried here.
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		var current domain.Trade
		if err := r.store.TxGet(tx, tradeID, &current); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrTradeNotFound
			}
			return err
		}

		updated, err := updateFn(&current)
		if err != nil {
			return err
		}
		updated.ID = tradeID
		return r.store.TxUpdate(tx, tradeID, updated)
	})
}

func (r *tradeRepositoryImpl) findTrades(
	query *badgerhold.Query,
) ([]*domain.Trade, error) {
	var found []domain.Trade
	if err := r.store.Find(&found, query); err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0, len(found))
	for i := range found {
		trades = append(trades, &found[i])
	}
	return trades, nil
}

func (r *tradeRepositoryImpl) update(
	ctx context.Context, fn func(tx *badger.Txn) error,
) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = r.store.Badger().Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
