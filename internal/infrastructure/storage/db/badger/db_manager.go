package dbbadger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const tradesDir = "trades"

type repoManager struct {
	store     *badgerhold.Store
	tradeRepo domain.TradeRepository
	stopGC    chan struct{}
}

// NewRepoManager opens (or creates if not exists) the badger store under the
// given base directory. The store is kept in memory if the directory is empty.
func NewRepoManager(
	baseDbDir string, logger badger.Logger,
) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, tradesDir)
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening trades db: %w", err)
	}

	stopGC := make(chan struct{})
	if len(dbDir) > 0 {
		go runValueLogGC(store, 30*time.Minute, stopGC)
	}

	return &repoManager{
		store:     store,
		tradeRepo: NewTradeRepositoryImpl(store),
		stopGC:    stopGC,
	}, nil
}

func (d *repoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepo
}

func (d *repoManager) Close() {
	close(d.stopGC)
	if err := d.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close trades db")
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

func runValueLogGC(
	store *badgerhold.Store, interval time.Duration, stop <-chan struct{},
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := store.Badger().RunValueLogGC(0.5); err != nil &&
				err != badger.ErrNoRewrite {
				log.WithError(err).Warn("trades db value log gc failed")
			}
		}
	}
}
