package custodyinmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNftNotFound     = errors.New("nft not found")
	ErrNftAlreadyExist = errors.New("nft already exists")
	ErrNotOwner        = errors.New("nft not owned by sender")
)

type nftKey struct {
	collection string
	id         uint64
}

// Registry is an in-memory NFT registry, meant for development and testing,
// where the escrow holds the NFTs staked into trades under its custody
// address.
type Registry struct {
	custodyAddress string
	owners         map[nftKey]string
	lock           *sync.RWMutex
}

func NewRegistry(custodyAddress string) (*Registry, error) {
	if custodyAddress == "" {
		return nil, fmt.Errorf("missing custody address")
	}
	return &Registry{
		custodyAddress: custodyAddress,
		owners:         make(map[nftKey]string),
		lock:           &sync.RWMutex{},
	}, nil
}

// Mint creates a new NFT owned by the given address.
func (r *Registry) Mint(assetAddress string, assetID uint64, owner string) error {
	if assetAddress == "" || owner == "" {
		return fmt.Errorf("missing nft address or owner")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	key := nftKey{assetAddress, assetID}
	if _, ok := r.owners[key]; ok {
		return ErrNftAlreadyExist
	}
	r.owners[key] = owner
	return nil
}

func (r *Registry) CustodyAddress() string {
	return r.custodyAddress
}

func (r *Registry) TransferIn(
	_ context.Context, assetAddress string, assetID uint64, from string,
) error {
	return r.transfer(assetAddress, assetID, from, r.custodyAddress)
}

func (r *Registry) TransferOut(
	_ context.Context, assetAddress string, assetID uint64, to string,
) error {
	return r.transfer(assetAddress, assetID, r.custodyAddress, to)
}

func (r *Registry) OwnerOf(
	_ context.Context, assetAddress string, assetID uint64,
) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	owner, ok := r.owners[nftKey{assetAddress, assetID}]
	if !ok {
		return "", ErrNftNotFound
	}
	return owner, nil
}

func (r *Registry) transfer(
	assetAddress string, assetID uint64, from, to string,
) error {
	if to == "" {
		return fmt.Errorf("missing recipient")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	key := nftKey{assetAddress, assetID}
	owner, ok := r.owners[key]
	if !ok {
		return ErrNftNotFound
	}
	if owner != from {
		return ErrNotOwner
	}
	r.owners[key] = to
	return nil
}
