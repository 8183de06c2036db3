package ports

import "context"

// AssetCustody is the boundary with the NFT registry. The escrow engine never
// implements the registry, it only moves tokens in and out of its own custody
// address.
type AssetCustody interface {
	// CustodyAddress returns the address holding the NFTs staked into escrow.
	CustodyAddress() string
	// TransferIn moves the NFT from its owner into custody. It must fail if
	// the NFT is not owned by from, this includes NFTs already held in
	// custody for another trade.
	TransferIn(ctx context.Context, assetAddress string, assetID uint64, from string) error
	// TransferOut moves the NFT from custody to the given address.
	TransferOut(ctx context.Context, assetAddress string, assetID uint64, to string) error
	// OwnerOf returns the current owner of the NFT.
	OwnerOf(ctx context.Context, assetAddress string, assetID uint64) (string, error)
}

// CurrencyBank is the boundary with the native currency transfer mechanism.
type CurrencyBank interface {
	// Collect accepts the payment attached to a call, moving the amount from
	// the payer into custody.
	Collect(ctx context.Context, from string, amount uint64) error
	// SendTo moves the amount from custody to the given address.
	SendTo(ctx context.Context, to string, amount uint64) error
	// BalanceOf returns the spendable balance of the given address.
	BalanceOf(ctx context.Context, address string) (uint64, error)
}
