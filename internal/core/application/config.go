package application

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application/escrow"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application/pubsub"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
	dbbadger "github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/storage/db/inmemory"
)

const (
	DBInMemory = "inmemory"
	DBBadger   = "badger"
)

var (
	SupportedDBType = map[string]struct{}{
		DBInMemory: {},
		DBBadger:   {},
	}
)

type Config struct {
	DBType   string
	DBConfig interface{}

	AssetCustody     ports.AssetCustody
	CurrencyBank     ports.CurrencyBank
	PubSub           ports.PubSub
	MinTradeDuration int64

	repo   ports.RepoManager
	pubsub *pubsub.Service
	escrow *escrow.Service
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("unsupported db type %q", c.DBType)
	}
	if c.AssetCustody == nil {
		return fmt.Errorf("missing asset custody")
	}
	if c.CurrencyBank == nil {
		return fmt.Errorf("missing currency bank")
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.escrowService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

// PubSubService returns nil if no pubsub is configured.
func (c *Config) PubSubService() *pubsub.Service {
	return c.pubsubService()
}

func (c *Config) EscrowService() *escrow.Service {
	svc, _ := c.escrowService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir, _ := c.DBConfig.(string)
			repoManager, err := dbbadger.NewRepoManager(datadir, log.New())
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = inmemory.NewRepoManager()
		default:
			return nil, fmt.Errorf("unsupported db type %q", c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) pubsubService() *pubsub.Service {
	if c.pubsub == nil && c.PubSub != nil {
		c.pubsub = pubsub.NewService(c.PubSub)
	}
	return c.pubsub
}

func (c *Config) escrowService() (*escrow.Service, error) {
	if c.escrow == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}

		var publisher escrow.EventPublisher
		if svc := c.pubsubService(); svc != nil {
			publisher = svc
		}

		svc, err := escrow.NewService(
			repo, c.AssetCustody, c.CurrencyBank, publisher, c.MinTradeDuration,
		)
		if err != nil {
			return nil, err
		}
		c.escrow = svc
	}
	return c.escrow, nil
}
