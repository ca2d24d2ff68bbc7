package swapservice

import (
	"context"
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/htlctx"
	"github.com/lightninglabs/ln-liquid-swap/swap"
	"github.com/lightninglabs/ln-liquid-swap/swapdb"
)

// CreateQuote implements spec.md §4.4 operation 1: seller only.
func (s *Service) CreateQuote(
	ctx context.Context,
	token string,
	direction swap.Direction,
	assetID elements.AssetID,
	assetAmount uint64,
	minFundingConfs uint32,
) (*swap.Quote, error) {

	party, err := s.authenticate(token)
	if err != nil {
		return nil, err
	}
	if party != swap.PartySeller {
		return nil, swap.NewError(swap.KindPermissionDenied, "only the seller may create a quote")
	}

	if assetID != s.cfg.Offer.AssetID {
		return nil, swap.NewError(swap.KindInvalidArgument, "unsupported asset_id")
	}

	q, err := swap.NewQuote(s.cfg.Offer, direction, assetAmount, minFundingConfs)
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertQuote(ctx, q); err != nil {
		return nil, swap.WrapInternal(err, "persist quote")
	}

	log.Infof("created quote %s: direction=%s asset_amount=%d total_price_msat=%d",
		q.QuoteID, q.Direction, q.AssetAmount, q.TotalPriceMsat)

	return q, nil
}

// GetQuote implements spec.md §4.4 operation 2: any authenticated caller.
func (s *Service) GetQuote(ctx context.Context, token string, quoteID uuid.UUID) (*swap.Quote, error) {
	if _, err := s.authenticate(token); err != nil {
		return nil, err
	}

	q, err := s.store.GetQuote(ctx, quoteID)
	if err == swapdb.ErrNotFound {
		return nil, swap.NewError(swap.KindNotFound, "quote %s not found", quoteID)
	}
	if err != nil {
		return nil, swap.WrapInternal(err, "get quote")
	}
	return q, nil
}

// GetSwap implements spec.md §4.4 operation 4: any authenticated caller.
func (s *Service) GetSwap(ctx context.Context, token string, swapID uuid.UUID) (*swap.Swap, error) {
	if _, err := s.authenticate(token); err != nil {
		return nil, err
	}

	sw, err := s.store.GetSwap(ctx, swapID)
	if err == swapdb.ErrNotFound {
		return nil, swap.NewError(swap.KindNotFound, "swap %s not found", swapID)
	}
	if err != nil {
		return nil, swap.WrapInternal(err, "get swap")
	}
	return sw, nil
}

// CreateLightningPayment implements spec.md §4.4 operation 5: authorized
// only for the direction's ln_payer.
func (s *Service) CreateLightningPayment(ctx context.Context, token string, swapID uuid.UUID) (*swap.Swap, error) {
	sw, err := s.store.GetSwap(ctx, swapID)
	if err == swapdb.ErrNotFound {
		return nil, swap.NewError(swap.KindNotFound, "swap %s not found", swapID)
	}
	if err != nil {
		return nil, swap.WrapInternal(err, "get swap")
	}

	party, err := s.requireRole(token, sw.Direction, swap.RoleLNPayer)
	if err != nil {
		return nil, err
	}

	// Idempotent: a payment already recorded is returned as-is.
	if sw.LNPaymentID != "" && sw.LNPreimage != nil {
		return sw, nil
	}

	if sw.Status != swap.StatusFunded {
		return nil, swap.NewError(swap.KindFailedPrecondition,
			"swap %s is %s, expected funded", swapID, sw.Status)
	}

	ln := s.lnClientFor(party)

	paymentID, err := ln.PayInvoice(ctx, sw.Bolt11Invoice)
	if err != nil {
		return nil, swap.WrapInternal(err, "pay invoice")
	}

	preimage, err := ln.WaitPreimage(ctx, paymentID, s.cfg.paymentTimeout())
	if err != nil {
		return nil, swap.NewError(swap.KindDeadlineExceeded, "wait for preimage: %s", err)
	}

	gotHash := sha256.Sum256(preimage[:])
	if gotHash != sw.PaymentHash {
		// S5: defensive — neither payment_id nor preimage are persisted
		// on a hash mismatch, so a retry with the real preimage can
		// still succeed later.
		return nil, swap.NewError(swap.KindInternal, "preimage hash mismatch")
	}

	if err := s.store.UpsertSwapPayment(ctx, swapID, paymentID, preimage, swap.StatusPaid); err != nil {
		return nil, swap.WrapInternal(err, "persist payment")
	}

	log.Infof("swap %s paid: payment_id=%s", swapID, paymentID)

	sw.LNPaymentID = paymentID
	sw.LNPreimage = &preimage
	sw.Status = swap.StatusPaid
	return sw, nil
}

// CreateAssetClaim implements spec.md §4.4 operation 6: authorized only
// for the direction's liquid_claimer.
func (s *Service) CreateAssetClaim(ctx context.Context, token string, swapID uuid.UUID, claimFeeSats *uint64) (*swap.Swap, error) {
	sw, err := s.store.GetSwap(ctx, swapID)
	if err == swapdb.ErrNotFound {
		return nil, swap.NewError(swap.KindNotFound, "swap %s not found", swapID)
	}
	if err != nil {
		return nil, swap.WrapInternal(err, "get swap")
	}

	party, err := s.requireRole(token, sw.Direction, swap.RoleLiquidClaimer)
	if err != nil {
		return nil, err
	}

	// Idempotent: a claim already broadcast is returned as-is.
	if sw.ClaimTxID != nil {
		return sw, nil
	}

	if sw.LNPreimage == nil {
		return nil, swap.NewError(swap.KindFailedPrecondition, "not paid yet")
	}

	feeSats := s.cfg.defaultClaimFeeSats()
	if claimFeeSats != nil {
		feeSats = *claimFeeSats
	}

	claimerKey, err := s.keyRing.DeriveKey(s.keyLocator(party))
	if err != nil {
		return nil, swap.WrapInternal(err, "derive claimer key")
	}

	claimerWallet := s.walletFor(party)
	claimerIndex := s.cfg.SellerKeyIndex
	if party == swap.PartyBuyer {
		claimerIndex = s.cfg.BuyerKeyIndex
	}

	claimerAddr, claimerScript, err := claimerWallet.AddressAt(ctx, claimerIndex)
	if err != nil {
		return nil, swap.WrapInternal(err, "get claimer receive address")
	}
	if party == swap.PartyBuyer && claimerAddr != sw.BuyerLiquidAddress {
		// Key rotation guard (spec.md §9): the buyer's receive address
		// derived now must still match the buyer_liquid_address recorded
		// when the swap was created.
		return nil, swap.NewError(swap.KindInternal,
			"claimer address drift: derived %s, recorded %s", claimerAddr, sw.BuyerLiquidAddress)
	}

	policyAsset := claimerWallet.PolicyAsset()
	funding := htlctx.HtlcFunding{
		FundingTxID:    chainhash.Hash(sw.FundingTxID),
		AssetVout:      sw.AssetVout,
		LBTCVout:       sw.LBTCVout,
		AssetID:        sw.AssetID,
		AssetAmount:    sw.AssetAmount,
		PolicyAsset:    policyAsset,
		FeeSubsidySats: sw.FeeSubsidySats,
	}

	tx, err := htlctx.BuildClaimTx(sw.WitnessScript, funding, claimerScript, feeSats)
	if err != nil {
		return nil, swap.NewError(swap.KindInvalidArgument, "build claim tx: %s", err)
	}
	if err := htlctx.SignClaim(tx, funding, sw.WitnessScript, claimerKey, *sw.LNPreimage); err != nil {
		return nil, swap.WrapInternal(err, "sign claim tx")
	}

	txid, err := claimerWallet.BroadcastTransaction(ctx, tx)
	if err != nil {
		return nil, swap.WrapInternal(err, "broadcast claim tx")
	}

	if err := s.store.UpsertSwapClaim(ctx, swapID, txid, swap.StatusClaimed); err != nil {
		return nil, swap.WrapInternal(err, "persist claim")
	}

	log.Infof("swap %s claimed: txid=%x", swapID, txid)

	sw.ClaimTxID = &txid
	sw.Status = swap.StatusClaimed
	return sw, nil
}
