package escrow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application/escrow"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/domain"
	custodyinmemory "github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/custody/inmemory"
	"github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/storage/db/inmemory"
)

const (
	custodyAddress = "escrow"
	alice          = "alice"
	bob            = "bob"
	carol          = "carol"

	collectionA = "collection-a"
	collectionB = "collection-b"
	aliceNftID  = uint64(13423)
	bobNftID    = uint64(25252)

	price       = uint64(3000)
	duration    = int64(700)
	minDuration = int64(600)
	startTime   = int64(1_700_000_000)
)

var ctx = context.Background()

type testEnv struct {
	svc       *escrow.Service
	custody   *faultyCustody
	ledger    *custodyinmemory.Ledger
	publisher *capturingPublisher
	clock     *testClock
}

type testClock struct {
	lock sync.Mutex
	now  int64
}

func (c *testClock) Now() int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *testClock) Advance(seconds int64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now += seconds
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry, err := custodyinmemory.NewRegistry(custodyAddress)
	require.NoError(t, err)
	ledger, err := custodyinmemory.NewLedger(custodyAddress)
	require.NoError(t, err)

	require.NoError(t, registry.Mint(collectionA, aliceNftID, alice))
	require.NoError(t, registry.Mint(collectionB, bobNftID, bob))
	require.NoError(t, ledger.Fund(alice, 5000))

	custody := &faultyCustody{Registry: registry}
	publisher := &capturingPublisher{}
	svc, err := escrow.NewService(
		inmemory.NewRepoManager(), custody, ledger, publisher, minDuration,
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	clock := &testClock{now: startTime}
	svc.SetNowFunc(clock.Now)

	return &testEnv{svc, custody, ledger, publisher, clock}
}

func newTradeRequest() domain.TradeRequest {
	return domain.TradeRequest{
		BidderAssetID:      aliceNftID,
		AskerAssetID:       bobNftID,
		BidderAssetAddress: collectionA,
		AskerAssetAddress:  collectionB,
		Duration:           duration,
		Price:              price,
	}
}

func (e *testEnv) ownerOf(t *testing.T, collection string, id uint64) string {
	owner, err := e.custody.OwnerOf(ctx, collection, id)
	require.NoError(t, err)
	return owner
}

func (e *testEnv) balanceOf(t *testing.T, address string) uint64 {
	balance, err := e.ledger.BalanceOf(ctx, address)
	require.NoError(t, err)
	return balance
}

func TestNewService(t *testing.T) {
	t.Parallel()

	registry, err := custodyinmemory.NewRegistry(custodyAddress)
	require.NoError(t, err)
	ledger, err := custodyinmemory.NewLedger(custodyAddress)
	require.NoError(t, err)
	repoManager := inmemory.NewRepoManager()

	_, err = escrow.NewService(nil, registry, ledger, nil, minDuration)
	require.Error(t, err)
	_, err = escrow.NewService(repoManager, nil, ledger, nil, minDuration)
	require.Error(t, err)
	_, err = escrow.NewService(repoManager, registry, nil, nil, minDuration)
	require.Error(t, err)
	_, err = escrow.NewService(repoManager, registry, ledger, nil, -1)
	require.Error(t, err)

	svc, err := escrow.NewService(repoManager, registry, ledger, nil, minDuration)
	require.NoError(t, err)
	require.Equal(t, minDuration, svc.MinDuration())
}

func TestBidLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)
	require.Equal(t, uint64(1), tradeID)

	trade, err := svc.GetTradeById(ctx, tradeID)
	require.NoError(t, err)
	require.Equal(t, domain.TradeBid, trade.Type)
	require.Equal(t, alice, trade.BidderAddress)
	require.Equal(t, alice, trade.CreatorAddress)
	require.Empty(t, trade.AskerAddress)
	require.False(t, trade.Paid)
	require.False(t, trade.BidderStaked)
	require.False(t, trade.AskerStaked)
	require.Equal(t, startTime+duration, trade.ExpiresAt)
	require.Equal(t, domain.StatusOpen, trade.Status)

	// Creating a bid does not move the bidder's NFT, it must be staked
	// explicitly like the asker's one before the trade can settle.
	trade, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)
	require.True(t, trade.BidderStaked)
	require.Equal(t, custodyAddress, env.ownerOf(t, collectionA, aliceNftID))

	trade, err = svc.StakeNft(ctx, tradeID, bob, bobNftID, collectionB)
	require.NoError(t, err)
	require.True(t, trade.AskerStaked)
	require.Equal(t, bob, trade.AskerAddress)
	require.False(t, trade.Completed)

	trade, err = svc.Pay(ctx, tradeID, alice, price)
	require.NoError(t, err)
	require.True(t, trade.Paid)
	require.True(t, trade.Completed)
	require.Equal(t, startTime, trade.SettledAt)
	require.Equal(t, domain.StatusCompleted, trade.Status)

	require.Equal(t, bob, env.ownerOf(t, collectionA, aliceNftID))
	require.Equal(t, alice, env.ownerOf(t, collectionB, bobNftID))
	require.Equal(t, uint64(2000), env.balanceOf(t, alice))
	require.Equal(t, price, env.balanceOf(t, bob))
	require.Zero(t, env.balanceOf(t, custodyAddress))

	_, err = svc.Pay(ctx, tradeID, alice, price)
	require.ErrorIs(t, err, domain.ErrTradeCompleted)
	_, err = svc.Settle(ctx, tradeID)
	require.ErrorIs(t, err, domain.ErrTradeCompleted)

	require.Eventually(t, func() bool {
		count := env.publisher.countByType()
		return count[domain.BidCreated] == 1 &&
			count[domain.NftStaked] == 2 &&
			count[domain.AmountPaid] == 1 &&
			count[domain.TradeSettled] == 1
	}, 2*time.Second, 10*time.Millisecond)

	paid := env.publisher.eventsOfType(domain.AmountPaid)
	require.Equal(t, &domain.AmountPaidEvent{
		TradeID: tradeID, Bidder: alice, Amount: price,
	}, paid[0])
}

func TestAskLifecycleWithoutPrice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	req := newTradeRequest()
	req.Price = 0
	tradeID, err := svc.CreateAsk(ctx, bob, req)
	require.NoError(t, err)

	trade, err := svc.GetTradeById(ctx, tradeID)
	require.NoError(t, err)
	require.Equal(t, domain.TradeAsk, trade.Type)
	require.Equal(t, bob, trade.AskerAddress)
	require.Empty(t, trade.BidderAddress)

	_, err = svc.StakeNft(ctx, tradeID, bob, bobNftID, "")
	require.NoError(t, err)

	trade, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)
	require.Equal(t, alice, trade.BidderAddress)
	require.True(t, trade.Completed)
	require.False(t, trade.Paid)

	require.Equal(t, bob, env.ownerOf(t, collectionA, aliceNftID))
	require.Equal(t, alice, env.ownerOf(t, collectionB, bobNftID))
	require.Equal(t, uint64(5000), env.balanceOf(t, alice))

	require.Eventually(t, func() bool {
		count := env.publisher.countByType()
		return count[domain.AskCreated] == 1 &&
			count[domain.NftStaked] == 2 &&
			count[domain.TradeSettled] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateTradeFailing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	sameNft := newTradeRequest()
	sameNft.AskerAssetAddress = sameNft.BidderAssetAddress
	sameNft.AskerAssetID = sameNft.BidderAssetID

	shortDuration := newTradeRequest()
	shortDuration.Duration = minDuration - 1

	tests := []struct {
		name        string
		caller      string
		req         domain.TradeRequest
		expectedErr error
	}{
		{"same nft", alice, sameNft, domain.ErrSameNft},
		{"duration too short", alice, shortDuration, domain.ErrDurationTooShort},
		{"missing caller", "", newTradeRequest(), domain.ErrMissingCaller},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateBid(ctx, tt.caller, tt.req)
			require.ErrorIs(t, err, tt.expectedErr)
			require.ErrorIs(t, err, domain.ErrValidation)

			_, err = env.svc.CreateAsk(ctx, tt.caller, tt.req)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}

	trades, err := env.svc.ListTrades(ctx, "")
	require.NoError(t, err)
	require.Empty(t, trades)
}

func TestStakeNftFailing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)

	tests := []struct {
		name         string
		tradeID      uint64
		caller       string
		assetID      uint64
		assetAddress string
		expectedErr  error
	}{
		{"unknown trade", 42, alice, aliceNftID, "", domain.ErrTradeNotFound},
		{"unknown nft", tradeID, alice, 1, "", domain.ErrUnknownNft},
		{"wrong collection", tradeID, alice, aliceNftID, collectionB, domain.ErrUnknownNft},
		{"bidder mismatch", tradeID, carol, aliceNftID, "", domain.ErrBidderMismatch},
		{"counterparty is self", tradeID, alice, bobNftID, "", domain.ErrCounterpartyIsSelf},
		{"nft not owned", tradeID, carol, bobNftID, "", custodyinmemory.ErrNotOwner},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StakeNft(ctx, tt.tradeID, tt.caller, tt.assetID, tt.assetAddress)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}

	_, err = svc.StakeNft(ctx, tradeID, carol, bobNftID, "")
	require.ErrorIs(t, err, escrow.ErrCustodyRejected)

	// A failing transfer into custody leaves the asker unbound.
	trade, err := svc.GetTradeById(ctx, tradeID)
	require.NoError(t, err)
	require.Empty(t, trade.AskerAddress)
	require.False(t, trade.AskerStaked)
	require.False(t, trade.BidderStaked)

	_, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.ErrorIs(t, err, domain.ErrAlreadyStaked)

	env.clock.Advance(duration)
	_, err = svc.StakeNft(ctx, tradeID, bob, bobNftID, "")
	require.ErrorIs(t, err, domain.ErrTradeExpired)
	require.ErrorIs(t, err, domain.ErrExpired)
	require.Equal(t, bob, env.ownerOf(t, collectionB, bobNftID))
}

func TestPayFailing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	req := newTradeRequest()
	req.Price = 6000
	tradeID, err := svc.CreateBid(ctx, alice, req)
	require.NoError(t, err)

	tests := []struct {
		name        string
		tradeID     uint64
		caller      string
		amount      uint64
		expectedErr error
	}{
		{"unknown trade", 42, alice, 6000, domain.ErrTradeNotFound},
		{"not the bidder", tradeID, bob, 6000, domain.ErrBidderMismatch},
		{"wrong amount", tradeID, alice, 3000, domain.ErrWrongAmount},
		{"insufficient balance", tradeID, alice, 6000, custodyinmemory.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Pay(ctx, tt.tradeID, tt.caller, tt.amount)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}

	trade, err := svc.GetTradeById(ctx, tradeID)
	require.NoError(t, err)
	require.False(t, trade.Paid)
	require.Equal(t, uint64(5000), env.balanceOf(t, alice))

	require.NoError(t, env.ledger.Fund(alice, 1000))
	_, err = svc.Pay(ctx, tradeID, alice, 6000)
	require.NoError(t, err)
	_, err = svc.Pay(ctx, tradeID, alice, 6000)
	require.ErrorIs(t, err, domain.ErrAlreadyPaid)
	require.Zero(t, env.balanceOf(t, alice))
	require.Equal(t, uint64(6000), env.balanceOf(t, custodyAddress))
}

func TestConcurrentPay(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)

	count := 10
	errs := make(chan error, count)
	wg := &sync.WaitGroup{}
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Pay(ctx, tradeID, alice, price)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, uint64(2000), env.balanceOf(t, alice))
}

func TestSettlementRollback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, bob, bobNftID, "")
	require.NoError(t, err)

	// The delivery of the asker's NFT to the bidder fails after the bidder's
	// NFT has already been delivered to the asker.
	env.custody.failTransfersTo(alice)

	trade, err := svc.Pay(ctx, tradeID, alice, price)
	require.NoError(t, err)
	require.True(t, trade.Paid)
	require.False(t, trade.Completed)
	require.Equal(t, custodyAddress, env.ownerOf(t, collectionA, aliceNftID))
	require.Equal(t, custodyAddress, env.ownerOf(t, collectionB, bobNftID))
	require.Equal(t, price, env.balanceOf(t, custodyAddress))
	require.Zero(t, env.balanceOf(t, bob))

	_, err = svc.Settle(ctx, tradeID)
	require.ErrorIs(t, err, errTransferFailed)
	require.Equal(t, custodyAddress, env.ownerOf(t, collectionA, aliceNftID))

	trade, err = svc.GetTradeById(ctx, tradeID)
	require.NoError(t, err)
	require.False(t, trade.Completed)

	env.custody.failTransfersTo("")

	trade, err = svc.Settle(ctx, tradeID)
	require.NoError(t, err)
	require.True(t, trade.Completed)
	require.Equal(t, bob, env.ownerOf(t, collectionA, aliceNftID))
	require.Equal(t, alice, env.ownerOf(t, collectionB, bobNftID))
	require.Equal(t, price, env.balanceOf(t, bob))

	require.Eventually(t, func() bool {
		return env.publisher.countByType()[domain.TradeSettled] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSettleNotReady(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)

	_, err = svc.Settle(ctx, tradeID)
	require.ErrorIs(t, err, domain.ErrNotSettleable)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = svc.Settle(ctx, 42)
	require.ErrorIs(t, err, domain.ErrTradeNotFound)
}

func TestReclaim(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)
	_, err = svc.Pay(ctx, tradeID, alice, price)
	require.NoError(t, err)

	_, err = svc.Reclaim(ctx, tradeID, alice)
	require.ErrorIs(t, err, domain.ErrTradeNotExpired)

	env.clock.Advance(duration)

	trade, err := svc.GetTradeById(ctx, tradeID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusExpired, trade.Status)

	_, err = svc.Reclaim(ctx, tradeID, bob)
	require.ErrorIs(t, err, domain.ErrNothingToReclaim)

	refund, err := svc.Reclaim(ctx, tradeID, alice)
	require.NoError(t, err)
	require.Equal(t, alice, refund.To)
	require.Equal(t, &domain.Nft{Address: collectionA, ID: aliceNftID}, refund.Nft)
	require.Equal(t, price, refund.Amount)

	require.Equal(t, alice, env.ownerOf(t, collectionA, aliceNftID))
	require.Equal(t, uint64(5000), env.balanceOf(t, alice))
	require.Zero(t, env.balanceOf(t, custodyAddress))

	_, err = svc.Reclaim(ctx, tradeID, alice)
	require.ErrorIs(t, err, domain.ErrNothingToReclaim)

	trade, err = svc.GetTradeById(ctx, tradeID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusUnwound, trade.Status)

	require.Eventually(t, func() bool {
		return env.publisher.countByType()[domain.StakeReclaimed] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListTrades(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	req := newTradeRequest()
	for i := 0; i < 3; i++ {
		_, err := svc.CreateBid(ctx, alice, req)
		require.NoError(t, err)
	}
	_, err := svc.CreateAsk(ctx, bob, req)
	require.NoError(t, err)

	trades, err := svc.ListTrades(ctx, "")
	require.NoError(t, err)
	require.Len(t, trades, 4)
	for i, trade := range trades {
		require.Equal(t, uint64(i+1), trade.ID)
	}

	trades, err = svc.ListTrades(ctx, bob)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, uint64(4), trades[0].ID)

	trades, err = svc.ListTrades(ctx, carol)
	require.NoError(t, err)
	require.Empty(t, trades)
}

func TestCustodyAddressCannotTrade(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)
	_, err = svc.Pay(ctx, tradeID, alice, price)
	require.NoError(t, err)

	// Alice's NFT and payment are now held by the custody address.
	stolenNft := domain.TradeRequest{
		BidderAssetID:      bobNftID,
		AskerAssetID:       aliceNftID,
		BidderAssetAddress: collectionB,
		AskerAssetAddress:  collectionA,
		Duration:           duration,
	}

	_, err = svc.CreateAsk(ctx, custodyAddress, stolenNft)
	require.ErrorIs(t, err, domain.ErrCustodyCaller)
	require.ErrorIs(t, err, domain.ErrRoleMismatch)
	_, err = svc.CreateBid(ctx, custodyAddress, stolenNft)
	require.ErrorIs(t, err, domain.ErrCustodyCaller)

	askID, err := svc.CreateAsk(ctx, carol, stolenNft)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
	}{
		{"stake", func() error {
			_, err := svc.StakeNft(ctx, askID, custodyAddress, aliceNftID, collectionA)
			return err
		}},
		{"stake counterparty", func() error {
			_, err := svc.StakeNft(ctx, askID, custodyAddress, bobNftID, collectionB)
			return err
		}},
		{"pay", func() error {
			_, err := svc.Pay(ctx, tradeID, custodyAddress, price)
			return err
		}},
		{"reclaim", func() error {
			_, err := svc.Reclaim(ctx, tradeID, custodyAddress)
			return err
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), domain.ErrCustodyCaller)
		})
	}

	require.Equal(t, custodyAddress, env.ownerOf(t, collectionA, aliceNftID))
	require.Equal(t, price, env.balanceOf(t, custodyAddress))

	trade, err := svc.GetTradeById(ctx, askID)
	require.NoError(t, err)
	require.False(t, trade.AskerStaked)
	require.False(t, trade.BidderStaked)
}

func TestEventsAreDeliveredInOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := env.svc

	tradeID, err := svc.CreateBid(ctx, alice, newTradeRequest())
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, alice, aliceNftID, "")
	require.NoError(t, err)
	_, err = svc.StakeNft(ctx, tradeID, bob, bobNftID, "")
	require.NoError(t, err)
	_, err = svc.Pay(ctx, tradeID, alice, price)
	require.NoError(t, err)

	expected := []domain.EventType{
		domain.BidCreated,
		domain.NftStaked,
		domain.NftStaked,
		domain.AmountPaid,
		domain.TradeSettled,
	}

	// Close waits for the queued events to be delivered.
	svc.Close()
	require.Equal(t, expected, env.publisher.types())
}
