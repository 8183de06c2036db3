package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a Trade method wraps exactly one
// of these, so callers can switch on the category with errors.Is while still
// surfacing the specific reason.
var (
	// ErrValidation is the category of malformed trade requests.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is the category of lookups of unknown trades.
	ErrNotFound = errors.New("not found")
	// ErrExpired is the category of operations attempted past expiration.
	ErrExpired = errors.New("expired")
	// ErrRoleMismatch is the category of callers acting outside their role.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrAssetMismatch is the category of assets not belonging to the trade.
	ErrAssetMismatch = errors.New("asset mismatch")
	// ErrAmountMismatch is the category of payments not matching the price.
	ErrAmountMismatch = errors.New("amount mismatch")
	// ErrInvalidState is the category of operations not allowed by the current
	// state of the trade.
	ErrInvalidState = errors.New("invalid state")
)

var (
	// ErrSameNft ...
	ErrSameNft = wrap(ErrValidation, "NFT cannot be the same!")
	// ErrDurationTooShort ...
	ErrDurationTooShort = wrap(ErrValidation, "duration below minimum")
	// ErrMissingCaller ...
	ErrMissingCaller = wrap(ErrValidation, "missing caller address")
	// ErrMissingAssetAddress ...
	ErrMissingAssetAddress = wrap(ErrValidation, "missing NFT address")

	// ErrTradeNotFound ...
	ErrTradeNotFound = wrap(ErrNotFound, "trade not found")

	// ErrTradeExpired ...
	ErrTradeExpired = wrap(ErrExpired, "trade is expired")

	// ErrBidderMismatch ...
	ErrBidderMismatch = wrap(
		ErrRoleMismatch, "sender's address must match the bidder's address",
	)
	// ErrAskerMismatch ...
	ErrAskerMismatch = wrap(
		ErrRoleMismatch, "sender's address must match the asker's address",
	)
	// ErrCustodyCaller ...
	ErrCustodyCaller = wrap(
		ErrRoleMismatch, "custody address cannot take part in a trade",
	)
	// ErrCounterpartyIsSelf ...
	ErrCounterpartyIsSelf = wrap(
		ErrRoleMismatch, "sender cannot take both sides of the trade",
	)

	// ErrUnknownNft ...
	ErrUnknownNft = wrap(ErrAssetMismatch, "NFT does not belong to the trade")
	// ErrAmbiguousNft ...
	ErrAmbiguousNft = wrap(
		ErrAssetMismatch, "NFT id matches both sides, NFT address is required",
	)

	// ErrWrongAmount ...
	ErrWrongAmount = wrap(
		ErrAmountMismatch, "amount of currency must equal the price",
	)

	// ErrTradeCompleted ...
	ErrTradeCompleted = wrap(ErrInvalidState, "trade is already completed")
	// ErrAlreadyStaked ...
	ErrAlreadyStaked = wrap(ErrInvalidState, "NFT is already staked")
	// ErrAlreadyPaid ...
	ErrAlreadyPaid = wrap(ErrInvalidState, "trade is already paid")
	// ErrNotSettleable ...
	ErrNotSettleable = wrap(
		ErrInvalidState, "both NFTs must be staked and price paid to settle",
	)
	// ErrTradeNotExpired ...
	ErrTradeNotExpired = wrap(
		ErrInvalidState, "trade must be expired to reclaim stakes",
	)
	// ErrNothingToReclaim ...
	ErrNothingToReclaim = wrap(ErrInvalidState, "nothing to reclaim")
)

func wrap(category error, reason string) error {
	return fmt.Errorf("%w: %s", category, reason)
}
