package ports

import "github.com/tdex-network/tdex-nft-escrow/internal/core/domain"

// RepoManager gives access to the repositories of the daemon.
type RepoManager interface {
	TradeRepository() domain.TradeRepository
	Close()
}
