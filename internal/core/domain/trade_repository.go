package domain

import (
	"context"
)

// TradeRepository is the abstraction for any kind of database intended to
// persist Trades. It is the only component allowed to assign trade
// identifiers: they start at 1, are strictly increasing and never reused.
type TradeRepository interface {
	// AddTrade assigns the next identifier to the given trade, stores it and
	// returns the assigned identifier.
	AddTrade(ctx context.Context, trade *Trade) (uint64, error)
	// GetTradeById returns the trade with the given id, or ErrTradeNotFound.
	GetTradeById(ctx context.Context, tradeID uint64) (*Trade, error)
	// GetAllTrades returns all the trades stored in the repository, in no
	// particular order.
	GetAllTrades(ctx context.Context) ([]*Trade, error)
	// GetAllTradesByAddress returns all the trades where the given address
	// is the creator, the bidder or the asker.
	GetAllTradesByAddress(ctx context.Context, address string) ([]*Trade, error)
	// UpdateTrade allows to commit multiple changes to the same trade in a
	// transactional way. Nothing is persisted if updateFn returns an error.
	UpdateTrade(
		ctx context.Context,
		tradeID uint64,
		updateFn func(t *Trade) (*Trade, error),
	) error
}
