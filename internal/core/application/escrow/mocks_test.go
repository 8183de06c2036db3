package escrow_test

import (
	"context"
	"errors"
	"sync"

	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	custodyinmemory "github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/custody/inmemory"
)

var errTransferFailed = errors.New("transfer failed")

// **** Custody ****

type faultyCustody struct {
	*custodyinmemory.Registry

	lock      sync.Mutex
	failOutTo string
}

func (c *faultyCustody) failTransfersTo(address string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.failOutTo = address
}

func (c *faultyCustody) TransferOut(
	ctx context.Context, assetAddress string, assetID uint64, to string,
) error {
	c.lock.Lock()
	fail := c.failOutTo != "" && c.failOutTo == to
	c.lock.Unlock()

	if fail {
		return errTransferFailed
	}
	return c.Registry.TransferOut(ctx, assetAddress, assetID, to)
}

// **** Publisher ****

type capturingPublisher struct {
	lock   sync.Mutex
	events []domain.Event
}

func (p *capturingPublisher) PublishEvent(event domain.Event) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) countByType() map[domain.EventType]int {
	p.lock.Lock()
	defer p.lock.Unlock()

	count := make(map[domain.EventType]int)
	for _, e := range p.events {
		count[e.Type()]++
	}
	return count
}

func (p *capturingPublisher) types() []domain.EventType {
	p.lock.Lock()
	defer p.lock.Unlock()

	types := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type())
	}
	return types
}

func (p *capturingPublisher) eventsOfType(eventType domain.EventType) []domain.Event {
	p.lock.Lock()
	defer p.lock.Unlock()

	events := make([]domain.Event, 0)
	for _, e := range p.events {
		if e.Type() == eventType {
			events = append(events, e)
		}
	}
	return events
}
