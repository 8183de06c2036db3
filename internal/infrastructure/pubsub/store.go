package pubsub

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const subscriptionsDir = "pubsub"

var ErrSubscriptionNotFound = fmt.Errorf("%w: webhook not found", domain.ErrNotFound)

type store struct {
	db *badgerhold.Store
}

func newStore(baseDbDir string, logger badger.Logger) (*store, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, subscriptionsDir)
	}

	isInMemory := len(dbDir) <= 0
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, fmt.Errorf("opening pubsub db: %w", err)
	}
	return &store{db}, nil
}

func (s *store) addSubscription(sub Subscription) error {
	return s.db.Insert(sub.ID, &sub)
}

func (s *store) removeSubscription(id string) error {
	if err := s.db.Delete(id, Subscription{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	return nil
}

// getSubscriptionsForTopics returns the subscriptions for any of the given
// topics, or all of them if none is given.
func (s *store) getSubscriptionsForTopics(topics ...string) (subscriptions, error) {
	var query *badgerhold.Query
	if len(topics) > 0 {
		values := make([]interface{}, 0, len(topics))
		for _, t := range topics {
			values = append(values, t)
		}
		query = badgerhold.Where("Event").In(values...)
	}

	var subs []Subscription
	if err := s.db.Find(&subs, query); err != nil {
		return nil, err
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (s *store) close() error {
	return s.db.Close()
}
