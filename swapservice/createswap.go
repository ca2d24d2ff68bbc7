package swapservice

import (
	"context"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/uuid"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/htlcscript"
	"github.com/lightninglabs/ln-liquid-swap/invoice"
	"github.com/lightninglabs/ln-liquid-swap/swap"
	"github.com/lightninglabs/ln-liquid-swap/swapdb"
)

// CreateSwap implements spec.md §4.4 operation 3: buyer only. Concurrent
// duplicate calls for the same quote are collapsed onto a single in-flight
// funding operation via createSwapGroup (P7).
func (s *Service) CreateSwap(
	ctx context.Context,
	token string,
	quoteID uuid.UUID,
	buyerLiquidAddress string,
	buyerBolt11Invoice string,
) (*swap.Swap, error) {

	party, err := s.authenticate(token)
	if err != nil {
		return nil, err
	}
	if party != swap.PartyBuyer {
		return nil, swap.NewError(swap.KindPermissionDenied, "only the buyer may create a swap")
	}

	result, err, _ := s.createSwapGroup.Do(quoteID.String(), func() (any, error) {
		return s.createSwap(ctx, quoteID, buyerLiquidAddress, buyerBolt11Invoice)
	})
	if err != nil {
		return nil, err
	}
	return result.(*swap.Swap), nil
}

func (s *Service) createSwap(
	ctx context.Context,
	quoteID uuid.UUID,
	buyerLiquidAddress string,
	buyerBolt11Invoice string,
) (*swap.Swap, error) {

	quote, err := s.store.GetQuote(ctx, quoteID)
	if err == swapdb.ErrNotFound {
		return nil, swap.NewError(swap.KindNotFound, "quote %s not found", quoteID)
	}
	if err != nil {
		return nil, swap.WrapInternal(err, "get quote")
	}

	// Idempotent: a quote already linked to a swap returns that swap.
	if quote.SwapID != nil {
		sw, err := s.store.GetSwap(ctx, *quote.SwapID)
		if err != nil {
			return nil, swap.WrapInternal(err, "get linked swap")
		}
		return sw, nil
	}

	if currentID := s.cfg.Offer.ID(); currentID != quote.OfferID {
		return nil, swap.NewError(swap.KindFailedPrecondition, "offer changed since quoting")
	}

	params := s.networkParams()
	buyerAddr, err := elements.DecodeAddress(buyerLiquidAddress, params)
	if err != nil {
		return nil, swap.NewError(swap.KindInvalidArgument, "invalid buyer_liquid_address: %s", err)
	}
	if _, ok := buyerAddr.(*btcutil.AddressWitnessPubKeyHash); !ok {
		return nil, swap.NewError(swap.KindInvalidArgument, "buyer_liquid_address must be a P2WPKH address")
	}

	swapID := uuid.New()
	direction := quote.Direction

	var (
		bolt11      string
		paymentHash [32]byte
	)
	switch direction {
	case swap.DirectionLNToLiquid:
		if buyerBolt11Invoice != "" {
			return nil, swap.NewError(swap.KindInvalidArgument,
				"buyer_bolt11_invoice must be empty for ln_to_liquid")
		}

		payeeLN := s.lnClientFor(swap.PartyForRole(direction, swap.RoleLNPayee))
		memo := fmt.Sprintf("swap:%s", swapID)
		bolt11, err = payeeLN.CreateInvoice(ctx, quote.TotalPriceMsat, memo, s.cfg.Offer.InvoiceExpirySecs)
		if err != nil {
			return nil, swap.WrapInternal(err, "create invoice")
		}
		paymentHash, err = invoice.PaymentHash(bolt11, s.lnNetParams)
		if err != nil {
			return nil, swap.WrapInternal(err, "parse created invoice")
		}

	case swap.DirectionLiquidToLN:
		if buyerBolt11Invoice == "" {
			return nil, swap.NewError(swap.KindInvalidArgument,
				"buyer_bolt11_invoice is required for liquid_to_ln")
		}

		inv, err := invoice.Decode(buyerBolt11Invoice, s.lnNetParams)
		if err != nil {
			return nil, swap.NewError(swap.KindInvalidArgument, "invalid buyer_bolt11_invoice: %s", err)
		}
		if !inv.HasAmount || inv.AmountMsat != quote.TotalPriceMsat {
			return nil, swap.NewError(swap.KindInvalidArgument,
				"buyer_bolt11_invoice amount mismatch: invoice=%d msat, quote=%d msat",
				inv.AmountMsat, quote.TotalPriceMsat)
		}
		now := s.clock.Now()
		if !inv.Expiry.IsZero() && now.After(inv.Expiry) {
			return nil, swap.NewError(swap.KindInvalidArgument, "buyer_bolt11_invoice is expired")
		}

		expectedMemo := fmt.Sprintf("swap:%s", swapID)
		if inv.Description != "" && inv.Description != expectedMemo {
			// spec.md §9 Open Question: no rejection for the direction
			// this service doesn't control the invoice description
			// for, only an audit log line.
			log.Warnf("swap %s: buyer invoice description %q does not match %q",
				swapID, inv.Description, expectedMemo)
		}

		bolt11 = buyerBolt11Invoice
		paymentHash = inv.PaymentHash

	default:
		return nil, swap.NewError(swap.KindFailedPrecondition, "unsupported direction %s", direction)
	}

	funderParty := swap.PartyForRole(direction, swap.RoleLiquidFunder)
	claimerParty := swap.PartyForRole(direction, swap.RoleLiquidClaimer)
	refunderParty := swap.PartyForRole(direction, swap.RoleLiquidRefunder)
	funderWallet := s.walletFor(funderParty)

	tipHeight, err := funderWallet.TipHeight(ctx)
	if err != nil {
		return nil, swap.WrapInternal(err, "get tip height")
	}
	refundLockHeight := saturatingAddU32(tipHeight, s.cfg.Offer.RefundDeltaBlocks)

	claimerPKH, err := s.keyRing.PubKeyHash160(s.keyLocator(claimerParty))
	if err != nil {
		return nil, swap.WrapInternal(err, "derive claimer pubkey hash")
	}
	refunderPKH, err := s.keyRing.PubKeyHash160(s.keyLocator(refunderParty))
	if err != nil {
		return nil, swap.WrapInternal(err, "derive refunder pubkey hash")
	}

	htlcSpec := htlcscript.HtlcSpec{
		PaymentHash:      paymentHash,
		ClaimerPKH:       claimerPKH,
		RefunderPKH:      refunderPKH,
		RefundLockHeight: refundLockHeight,
	}
	p2wshAddrStr, witnessScript, err := htlcSpec.P2WSHAddress(params)
	if err != nil {
		return nil, swap.WrapInternal(err, "derive htlc p2wsh address")
	}
	p2wshAddr, err := elements.DecodeAddress(p2wshAddrStr, params)
	if err != nil {
		return nil, swap.WrapInternal(err, "decode htlc p2wsh address")
	}
	htlcScriptPubKey := elements.ScriptPubKeyFor(p2wshAddr)

	fundingResult, err := funderWallet.BuildAndBroadcastFunding(
		ctx, htlcScriptPubKey, s.cfg.Offer.AssetID, quote.AssetAmount, s.cfg.Offer.FeeSubsidySats,
	)
	if err != nil {
		return nil, swap.WrapInternal(err, "fund htlc")
	}

	sw := &swap.Swap{
		SwapID:             swapID,
		QuoteID:            quoteID,
		Direction:          direction,
		Bolt11Invoice:      bolt11,
		PaymentHash:        paymentHash,
		AssetID:            s.cfg.Offer.AssetID,
		AssetAmount:        quote.AssetAmount,
		TotalPriceMsat:     quote.TotalPriceMsat,
		BuyerLiquidAddress: buyerLiquidAddress,
		FeeSubsidySats:     s.cfg.Offer.FeeSubsidySats,
		RefundLockHeight:   refundLockHeight,
		P2WSHAddress:       p2wshAddrStr,
		WitnessScript:      witnessScript,
		FundingTxID:        fundingResult.TxID,
		AssetVout:          fundingResult.AssetVout,
		LBTCVout:           fundingResult.LBTCVout,
		MinFundingConfs:    quote.MinFundingConfs,
		Status:             swap.StatusCreated,
	}

	if err := s.store.InsertSwap(ctx, sw); err != nil {
		return nil, swap.WrapInternal(err, "persist swap")
	}
	if err := s.store.SetQuoteSwapID(ctx, quoteID, swapID); err != nil {
		return nil, swap.WrapInternal(err, "link quote to swap")
	}

	log.Infof("created swap %s: direction=%s funding_txid=%x p2wsh=%s",
		swapID, direction, sw.FundingTxID, p2wshAddrStr)

	confs, err := s.waitForFundingConfirmations(ctx, funderWallet, htlcScriptPubKey, sw.FundingTxID, sw.MinFundingConfs)
	if err != nil {
		// A timed-out or failed wait leaves the swap in Created. Nothing
		// later moves it to Funded: a repeated CreateSwap for this quote
		// returns the Created record, and the refund watcher refunds it
		// once refund_lock_height is reached.
		return nil, err
	}

	if err := s.store.UpdateSwapStatus(ctx, swapID, swap.StatusFunded); err != nil {
		return nil, swap.WrapInternal(err, "update swap status to funded")
	}

	log.Infof("swap %s funded: confs=%d", swapID, confs)

	sw.Status = swap.StatusFunded
	return sw, nil
}

// waitForFundingConfirmations blocks until the funding transaction's HTLC
// output reaches minConfs confirmations or s.cfg.fundingConfirmationTimeout
// elapses.
func (s *Service) waitForFundingConfirmations(
	ctx context.Context,
	wallet interface {
		TxConfirmationsForScript(ctx context.Context, scriptPubKey []byte, txid [32]byte) (uint32, bool, error)
	},
	scriptPubKey []byte,
	txid [32]byte,
	minConfs uint32,
) (uint32, error) {

	deadline := s.clock.Now().Add(s.cfg.fundingConfirmationTimeout())

	for {
		confs, found, err := wallet.TxConfirmationsForScript(ctx, scriptPubKey, txid)
		if err != nil {
			return 0, swap.WrapInternal(err, "check funding confirmations")
		}
		if found && confs >= minConfs {
			return confs, nil
		}

		if s.clock.Now().After(deadline) {
			return 0, swap.NewError(swap.KindDeadlineExceeded,
				"timeout waiting for funding confirmations: txid=%x min_confs=%d", txid, minConfs)
		}

		select {
		case <-ctx.Done():
			return 0, swap.WrapInternal(ctx.Err(), "wait for funding confirmations")
		case <-s.clock.TickAfter(s.cfg.confirmationPollInterval()):
		}
	}
}

// saturatingAddU32 adds delta to base, clamping to math.MaxUint32 instead
// of wrapping on overflow.
func saturatingAddU32(base, delta uint32) uint32 {
	if base > math.MaxUint32-delta {
		return math.MaxUint32
	}
	return base + delta
}
