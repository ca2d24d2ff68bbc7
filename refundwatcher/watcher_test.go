package refundwatcher

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/keychain"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/htlcscript"
	"github.com/lightninglabs/ln-liquid-swap/keyring"
	"github.com/lightninglabs/ln-liquid-swap/liquidwallet"
	"github.com/lightninglabs/ln-liquid-swap/swap"
	"github.com/lightninglabs/ln-liquid-swap/swapdb/sqlitestore"
)

type fixedResolver struct {
	wallet liquidwallet.Wallet
	loc    keychain.KeyLocator
}

func (r fixedResolver) RefunderWallet(*swap.Swap) liquidwallet.Wallet    { return r.wallet }
func (r fixedResolver) RefunderKeyLocator(*swap.Swap) keychain.KeyLocator { return r.loc }

func testKeyRing(t *testing.T) *keyring.KeyRing {
	t.Helper()
	kr, err := keyring.New(&keyring.Config{
		NetParams: &chaincfg.RegressionNetParams,
		Seed:      []byte("refund-watcher-test-seed-000000"),
	})
	require.NoError(t, err)
	return kr
}

func buildTestSwap(t *testing.T, kr *keyring.KeyRing, params elements.AddressParams, refundLockHeight uint32) *swap.Swap {
	t.Helper()

	refunderLoc := keychain.KeyLocator{Family: keyring.KeyFamilySeller, Index: 0}
	claimerLoc := keychain.KeyLocator{Family: keyring.KeyFamilyBuyer, Index: 0}

	refunderPKH, err := kr.PubKeyHash160(refunderLoc)
	require.NoError(t, err)
	claimerPKH, err := kr.PubKeyHash160(claimerLoc)
	require.NoError(t, err)

	spec := htlcscript.HtlcSpec{
		PaymentHash:      [32]byte{1, 2, 3},
		ClaimerPKH:       claimerPKH,
		RefunderPKH:      refunderPKH,
		RefundLockHeight: refundLockHeight,
	}
	p2wshAddr, script, err := spec.P2WSHAddress(params)
	require.NoError(t, err)

	return &swap.Swap{
		SwapID:           uuid.New(),
		QuoteID:          uuid.New(),
		Direction:        swap.DirectionLNToLiquid,
		PaymentHash:      spec.PaymentHash,
		AssetID:          elements.AssetID{9},
		AssetAmount:      1000,
		FeeSubsidySats:   10_000,
		RefundLockHeight: refundLockHeight,
		P2WSHAddress:     p2wshAddr,
		WitnessScript:    script,
		MinFundingConfs:  1,
		Status:           swap.StatusFunded,
	}
}

func TestScanOnceRefundsPastLockHeight(t *testing.T) {
	ctx := context.Background()
	params := elements.RegtestParams
	policy := elements.AssetID{2}

	kr := testKeyRing(t)
	wallet := liquidwallet.NewFake(params, policy)
	wallet.SetHeight(100)

	store, err := sqlitestore.Open(sqlitestore.Config{DSN: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	sw := buildTestSwap(t, kr, params, 50)

	htlcAddr, err := elements.DecodeAddress(sw.P2WSHAddress, params)
	require.NoError(t, err)
	htlcScript := elements.ScriptPubKeyFor(htlcAddr)

	fundingResult, err := wallet.BuildAndBroadcastFunding(ctx, htlcScript, sw.AssetID, sw.AssetAmount, sw.FeeSubsidySats)
	require.NoError(t, err)
	sw.FundingTxID = fundingResult.TxID
	sw.AssetVout = fundingResult.AssetVout
	sw.LBTCVout = fundingResult.LBTCVout

	require.NoError(t, store.InsertQuote(ctx, &swap.Quote{
		QuoteID: sw.QuoteID, OfferID: [32]byte{1}, Direction: sw.Direction,
		AssetID: sw.AssetID, AssetAmount: sw.AssetAmount, MinFundingConfs: 1, TotalPriceMsat: 1,
	}))
	require.NoError(t, store.InsertSwap(ctx, sw))

	w := New(Config{
		Store:   store,
		KeyRing: kr,
		Resolver: fixedResolver{
			wallet: wallet,
			loc:    keychain.KeyLocator{Family: keyring.KeyFamilySeller, Index: 0},
		},
	})

	require.NoError(t, w.ScanOnce(ctx))

	got, err := store.GetSwap(ctx, sw.SwapID)
	require.NoError(t, err)
	require.Equal(t, swap.StatusRefunded, got.Status)
}

func TestScanOnceLeavesSwapBeforeLockHeightAlone(t *testing.T) {
	ctx := context.Background()
	params := elements.RegtestParams
	policy := elements.AssetID{2}

	kr := testKeyRing(t)
	wallet := liquidwallet.NewFake(params, policy)
	wallet.SetHeight(10)

	store, err := sqlitestore.Open(sqlitestore.Config{DSN: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	sw := buildTestSwap(t, kr, params, 50)

	htlcAddr, err := elements.DecodeAddress(sw.P2WSHAddress, params)
	require.NoError(t, err)
	htlcScript := elements.ScriptPubKeyFor(htlcAddr)

	fundingResult, err := wallet.BuildAndBroadcastFunding(ctx, htlcScript, sw.AssetID, sw.AssetAmount, sw.FeeSubsidySats)
	require.NoError(t, err)
	sw.FundingTxID = fundingResult.TxID
	sw.AssetVout = fundingResult.AssetVout
	sw.LBTCVout = fundingResult.LBTCVout

	require.NoError(t, store.InsertQuote(ctx, &swap.Quote{
		QuoteID: sw.QuoteID, OfferID: [32]byte{1}, Direction: sw.Direction,
		AssetID: sw.AssetID, AssetAmount: sw.AssetAmount, MinFundingConfs: 1, TotalPriceMsat: 1,
	}))
	require.NoError(t, store.InsertSwap(ctx, sw))

	w := New(Config{
		Store:   store,
		KeyRing: kr,
		Resolver: fixedResolver{
			wallet: wallet,
			loc:    keychain.KeyLocator{Family: keyring.KeyFamilySeller, Index: 0},
		},
	})

	require.NoError(t, w.ScanOnce(ctx))

	got, err := store.GetSwap(ctx, sw.SwapID)
	require.NoError(t, err)
	require.Equal(t, swap.StatusFunded, got.Status)
}

func TestScanOnceSkipsPaidSwaps(t *testing.T) {
	ctx := context.Background()
	params := elements.RegtestParams
	policy := elements.AssetID{2}

	kr := testKeyRing(t)
	wallet := liquidwallet.NewFake(params, policy)
	wallet.SetHeight(1000)

	store, err := sqlitestore.Open(sqlitestore.Config{DSN: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	sw := buildTestSwap(t, kr, params, 50)
	sw.Status = swap.StatusPaid
	preimage := [32]byte{9}
	sw.LNPreimage = &preimage

	htlcAddr, err := elements.DecodeAddress(sw.P2WSHAddress, params)
	require.NoError(t, err)
	htlcScript := elements.ScriptPubKeyFor(htlcAddr)

	fundingResult, err := wallet.BuildAndBroadcastFunding(ctx, htlcScript, sw.AssetID, sw.AssetAmount, sw.FeeSubsidySats)
	require.NoError(t, err)
	sw.FundingTxID = fundingResult.TxID
	sw.AssetVout = fundingResult.AssetVout
	sw.LBTCVout = fundingResult.LBTCVout

	require.NoError(t, store.InsertQuote(ctx, &swap.Quote{
		QuoteID: sw.QuoteID, OfferID: [32]byte{1}, Direction: sw.Direction,
		AssetID: sw.AssetID, AssetAmount: sw.AssetAmount, MinFundingConfs: 1, TotalPriceMsat: 1,
	}))
	require.NoError(t, store.InsertSwap(ctx, sw))
	require.NoError(t, store.UpsertSwapPayment(ctx, sw.SwapID, "payment-1", preimage, swap.StatusPaid))

	// ListSwapsByStatus is only asked about Created/Funded, so a Paid
	// swap never reaches ScanOnce's loop body in the first place; this
	// just confirms the scan completes without error when the only live
	// swap row is terminal.
	w := New(Config{
		Store:   store,
		KeyRing: kr,
		Resolver: fixedResolver{
			wallet: wallet,
			loc:    keychain.KeyLocator{Family: keyring.KeyFamilySeller, Index: 0},
		},
	})
	require.NoError(t, w.ScanOnce(ctx))

	got, err := store.GetSwap(ctx, sw.SwapID)
	require.NoError(t, err)
	require.Equal(t, swap.StatusPaid, got.Status)
}
