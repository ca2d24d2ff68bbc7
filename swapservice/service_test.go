package swapservice

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/invoice"
	"github.com/lightninglabs/ln-liquid-swap/keyring"
	"github.com/lightninglabs/ln-liquid-swap/lnclient"
	"github.com/lightninglabs/ln-liquid-swap/liquidwallet"
	"github.com/lightninglabs/ln-liquid-swap/swap"
	"github.com/lightninglabs/ln-liquid-swap/swapdb/sqlitestore"
)

const (
	testSellerToken = "seller-token"
	testBuyerToken  = "buyer-token"
)

type testRig struct {
	svc          *Service
	buyerWallet  *liquidwallet.Fake
	sellerWallet *liquidwallet.Fake
	ln           *lnclient.Fake
	cfg          Config
	lnNetParams  *chaincfg.Params
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	params := elements.RegtestParams
	policyAsset := elements.AssetID{0xaa}
	assetID := elements.AssetID{0xbb}
	lnNetParams := &chaincfg.RegressionNetParams

	kr, err := keyring.New(&keyring.Config{
		NetParams: lnNetParams,
		Seed:      []byte("swapservice-test-seed-0000000000"),
	})
	require.NoError(t, err)

	sellerWallet := liquidwallet.NewFake(params, policyAsset)
	buyerWallet := liquidwallet.NewFake(params, policyAsset)
	sellerWallet.SetHeight(100)
	buyerWallet.SetHeight(100)

	lnFake := lnclient.NewFake(lnNetParams)

	store, err := sqlitestore.Open(sqlitestore.Config{DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := Config{
		Offer: swap.Offer{
			AssetID:               assetID,
			SupportedDirections:   []swap.Direction{swap.DirectionLNToLiquid, swap.DirectionLiquidToLN},
			PriceMsatPerAssetUnit: 1_000,
			FeeSubsidySats:        1_000,
			RefundDeltaBlocks:     144,
			InvoiceExpirySecs:     3600,
			MaxMinFundingConfs:    6,
		},
		SellerToken:    testSellerToken,
		BuyerToken:     testBuyerToken,
		BuyerKeyIndex:  0,
		SellerKeyIndex: 1,
	}

	svc, err := New(context.Background(), cfg, Deps{
		KeyRing:      kr,
		LNNetParams:  lnNetParams,
		SellerWallet: sellerWallet,
		BuyerWallet:  buyerWallet,
		SellerLN:     lnFake,
		BuyerLN:      lnFake,
		Store:        store,
	})
	require.NoError(t, err)

	return &testRig{
		svc:          svc,
		buyerWallet:  buyerWallet,
		sellerWallet: sellerWallet,
		ln:           lnFake,
		cfg:          cfg,
		lnNetParams:  lnNetParams,
	}
}

func TestCreateQuoteOnlySeller(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	_, err := rig.svc.CreateQuote(ctx, testBuyerToken, swap.DirectionLNToLiquid, rig.cfg.Offer.AssetID, 1_000, 0)
	require.Error(t, err)
	var swapErr *swap.Error
	require.ErrorAs(t, err, &swapErr)
	require.Equal(t, swap.KindPermissionDenied, swapErr.Kind)
}

func TestCreateQuoteRejectsUnknownToken(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	_, err := rig.svc.CreateQuote(ctx, "bogus", swap.DirectionLNToLiquid, rig.cfg.Offer.AssetID, 1_000, 0)
	require.Error(t, err)
	var swapErr *swap.Error
	require.ErrorAs(t, err, &swapErr)
	require.Equal(t, swap.KindUnauthenticated, swapErr.Kind)
}

// TestSwapLifecycleLiquidToLN drives the liquid_to_ln direction: the buyer
// funds the Liquid-side HTLC and supplies their own invoice up front, the
// seller pays it, then claims the Liquid funds once the preimage is known.
func TestSwapLifecycleLiquidToLN(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	quote, err := rig.svc.CreateQuote(ctx, testSellerToken, swap.DirectionLiquidToLN, rig.cfg.Offer.AssetID, 1_000, 0)
	require.NoError(t, err)

	buyerAddr, _, err := rig.buyerWallet.AddressAt(ctx, rig.cfg.BuyerKeyIndex)
	require.NoError(t, err)

	bolt11, err := rig.ln.CreateInvoice(ctx, quote.TotalPriceMsat, "buyer-invoice", rig.cfg.Offer.InvoiceExpirySecs)
	require.NoError(t, err)

	sw, err := rig.svc.CreateSwap(ctx, testBuyerToken, quote.QuoteID, buyerAddr, bolt11)
	require.NoError(t, err)
	require.Equal(t, swap.StatusFunded, sw.Status)
	require.Equal(t, bolt11, sw.Bolt11Invoice)

	wantHash, err := invoice.PaymentHash(bolt11, rig.lnNetParams)
	require.NoError(t, err)
	require.Equal(t, wantHash, sw.PaymentHash)

	// Only the seller pays in this direction.
	_, err = rig.svc.CreateLightningPayment(ctx, testBuyerToken, sw.SwapID)
	require.Error(t, err)
	var swapErr *swap.Error
	require.ErrorAs(t, err, &swapErr)
	require.Equal(t, swap.KindPermissionDenied, swapErr.Kind)

	paid, err := rig.svc.CreateLightningPayment(ctx, testSellerToken, sw.SwapID)
	require.NoError(t, err)
	require.Equal(t, swap.StatusPaid, paid.Status)
	require.NotNil(t, paid.LNPreimage)

	// Calling it again is idempotent, not a re-payment.
	paidAgain, err := rig.svc.CreateLightningPayment(ctx, testSellerToken, sw.SwapID)
	require.NoError(t, err)
	require.Equal(t, paid.LNPaymentID, paidAgain.LNPaymentID)

	claimed, err := rig.svc.CreateAssetClaim(ctx, testSellerToken, sw.SwapID, nil)
	require.NoError(t, err)
	require.Equal(t, swap.StatusClaimed, claimed.Status)
	require.NotNil(t, claimed.ClaimTxID)
}

// TestCreateSwapIsIdempotentPerQuote covers P7: calling CreateSwap twice for
// the same quote returns the original swap rather than funding a second
// HTLC.
func TestCreateSwapIsIdempotentPerQuote(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	quote, err := rig.svc.CreateQuote(ctx, testSellerToken, swap.DirectionLNToLiquid, rig.cfg.Offer.AssetID, 1_000, 0)
	require.NoError(t, err)

	buyerAddr, _, err := rig.buyerWallet.AddressAt(ctx, rig.cfg.BuyerKeyIndex)
	require.NoError(t, err)

	first, err := rig.svc.CreateSwap(ctx, testBuyerToken, quote.QuoteID, buyerAddr, "")
	require.NoError(t, err)

	second, err := rig.svc.CreateSwap(ctx, testBuyerToken, quote.QuoteID, buyerAddr, "")
	require.NoError(t, err)

	require.Equal(t, first.SwapID, second.SwapID)
	require.Equal(t, first.FundingTxID, second.FundingTxID)
}

// TestCreateLightningPaymentRejectsPreimageMismatch covers S5: a preimage
// that does not hash to the swap's payment hash must not be persisted, so a
// later retry with the real preimage can still succeed.
func TestCreateLightningPaymentRejectsPreimageMismatch(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	quote, err := rig.svc.CreateQuote(ctx, testSellerToken, swap.DirectionLNToLiquid, rig.cfg.Offer.AssetID, 1_000, 0)
	require.NoError(t, err)

	buyerAddr, _, err := rig.buyerWallet.AddressAt(ctx, rig.cfg.BuyerKeyIndex)
	require.NoError(t, err)

	sw, err := rig.svc.CreateSwap(ctx, testBuyerToken, quote.QuoteID, buyerAddr, "")
	require.NoError(t, err)

	var wrongPreimage, wrongHash [32]byte
	wrongPreimage[0] = 0xff
	rig.ln.SetPreimage(sw.Bolt11Invoice, wrongHash, wrongPreimage)

	_, err = rig.svc.CreateLightningPayment(ctx, testBuyerToken, sw.SwapID)
	require.Error(t, err)

	got, err := rig.svc.GetSwap(ctx, testBuyerToken, sw.SwapID)
	require.NoError(t, err)
	require.Equal(t, swap.StatusFunded, got.Status)
	require.Empty(t, got.LNPaymentID)
	require.Nil(t, got.LNPreimage)
}

// TestCheckKeyRotationFailsOnChangedIndex covers spec.md §9: a service
// cannot start against a store holding a live swap whose witness script no
// longer matches what the configured key indices derive.
func TestCheckKeyRotationFailsOnChangedIndex(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	quote, err := rig.svc.CreateQuote(ctx, testSellerToken, swap.DirectionLNToLiquid, rig.cfg.Offer.AssetID, 1_000, 0)
	require.NoError(t, err)

	buyerAddr, _, err := rig.buyerWallet.AddressAt(ctx, rig.cfg.BuyerKeyIndex)
	require.NoError(t, err)

	_, err = rig.svc.CreateSwap(ctx, testBuyerToken, quote.QuoteID, buyerAddr, "")
	require.NoError(t, err)

	rig.svc.cfg.BuyerKeyIndex++

	err = rig.svc.CheckKeyRotation(ctx)
	require.Error(t, err)
	var swapErr *swap.Error
	require.ErrorAs(t, err, &swapErr)
	require.Equal(t, swap.KindInternal, swapErr.Kind)
}

func TestGetSwapUnknownIsNotFound(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	var swapErr *swap.Error
	_, err := rig.svc.GetSwap(ctx, testBuyerToken, uuid.New())
	require.ErrorAs(t, err, &swapErr)
	require.Equal(t, swap.KindNotFound, swapErr.Kind)
}
