package escrow

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/ports"
)

// journal keeps track of the custody transfers made while processing an
// operation, so that they can be reverted if the operation fails at a later
// step.
type journal struct {
	custody ports.AssetCustody
	bank    ports.CurrencyBank
	undos   []undo
}

type undo struct {
	description string
	fn          func(ctx context.Context) error
}

func newJournal(custody ports.AssetCustody, bank ports.CurrencyBank) *journal {
	return &journal{custody: custody, bank: bank}
}

func (j *journal) transferIn(ctx context.Context, nft domain.Nft, from string) error {
	if err := j.custody.TransferIn(ctx, nft.Address, nft.ID, from); err != nil {
		return err
	}
	j.record("return NFT to "+from, func(ctx context.Context) error {
		return j.custody.TransferOut(ctx, nft.Address, nft.ID, from)
	})
	return nil
}

func (j *journal) transferOut(ctx context.Context, nft domain.Nft, to string) error {
	if err := j.custody.TransferOut(ctx, nft.Address, nft.ID, to); err != nil {
		return err
	}
	j.record("take back NFT from "+to, func(ctx context.Context) error {
		return j.custody.TransferIn(ctx, nft.Address, nft.ID, to)
	})
	return nil
}

func (j *journal) collect(ctx context.Context, from string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := j.bank.Collect(ctx, from, amount); err != nil {
		return err
	}
	j.record("refund payment to "+from, func(ctx context.Context) error {
		return j.bank.SendTo(ctx, from, amount)
	})
	return nil
}

func (j *journal) send(ctx context.Context, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := j.bank.SendTo(ctx, to, amount); err != nil {
		return err
	}
	j.record("take back payment from "+to, func(ctx context.Context) error {
		return j.bank.Collect(ctx, to, amount)
	})
	return nil
}

func (j *journal) record(description string, fn func(ctx context.Context) error) {
	j.undos = append(j.undos, undo{description, fn})
}

// merge appends the transfers of another journal, used when a nested step
// succeeded and its transfers must be reverted together with the outer ones.
func (j *journal) merge(other *journal) {
	j.undos = append(j.undos, other.undos...)
	other.undos = nil
}

// rollback reverts the recorded transfers in reverse order.
func (j *journal) rollback(ctx context.Context) {
	for i := len(j.undos) - 1; i >= 0; i-- {
		u := j.undos[i]
		if err := u.fn(ctx); err != nil {
			log.WithError(err).Errorf("custody rollback failed: %s", u.description)
		}
	}
	j.undos = nil
}
