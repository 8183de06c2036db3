package inmemory

import (
	"sync"

	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
)

type tradeInmemoryStore struct {
	trades map[uint64]domain.Trade
	lastID uint64
	locker *sync.Mutex
}

type RepoManager struct {
	tradeRepository domain.TradeRepository
}

func NewRepoManager() ports.RepoManager {
	tradeStore := &tradeInmemoryStore{
		trades: map[uint64]domain.Trade{},
		locker: &sync.Mutex{},
	}

	return &RepoManager{
		tradeRepository: NewTradeRepositoryImpl(tradeStore),
	}
}

func (d *RepoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepository
}

func (d *RepoManager) Close() {}
