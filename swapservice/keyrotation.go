package swapservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/lightninglabs/ln-liquid-swap/htlcscript"
	"github.com/lightninglabs/ln-liquid-swap/swap"
)

// CheckKeyRotation guards against the configured key indices having moved
// since a still-live swap's HTLC was funded (spec.md §9 Open Question:
// rotating BuyerKeyIndex/SellerKeyIndex is not supported). For every swap
// still in Created, Funded or Paid, it re-parses the persisted witness
// script and compares the claimer/refunder pubkey hashes it embeds against
// what the configured indices derive today. A mismatch means a claim or
// refund built now would sign for a key that can never satisfy that HTLC,
// so the service refuses to start rather than failing silently later.
func (s *Service) CheckKeyRotation(ctx context.Context) error {
	swaps, err := s.store.ListSwapsByStatus(ctx,
		swap.StatusCreated, swap.StatusFunded, swap.StatusPaid)
	if err != nil {
		return swap.WrapInternal(err, "list live swaps for key rotation check")
	}

	for _, sw := range swaps {
		spec, err := htlcscript.ParseWitnessScript(sw.WitnessScript)
		if err != nil {
			return swap.WrapInternal(err, fmt.Sprintf("parse witness script for swap %s", sw.SwapID))
		}

		claimerParty := swap.PartyForRole(sw.Direction, swap.RoleLiquidClaimer)
		refunderParty := swap.PartyForRole(sw.Direction, swap.RoleLiquidRefunder)

		wantClaimerPKH, err := s.keyRing.PubKeyHash160(s.keyLocator(claimerParty))
		if err != nil {
			return swap.WrapInternal(err, fmt.Sprintf("derive claimer pubkey hash for swap %s", sw.SwapID))
		}
		wantRefunderPKH, err := s.keyRing.PubKeyHash160(s.keyLocator(refunderParty))
		if err != nil {
			return swap.WrapInternal(err, fmt.Sprintf("derive refunder pubkey hash for swap %s", sw.SwapID))
		}

		if !bytes.Equal(spec.ClaimerPKH[:], wantClaimerPKH[:]) {
			return swap.NewError(swap.KindInternal,
				"key rotation detected: swap %s claimer pubkey hash no longer matches configured key index",
				sw.SwapID)
		}
		if !bytes.Equal(spec.RefunderPKH[:], wantRefunderPKH[:]) {
			return swap.NewError(swap.KindInternal,
				"key rotation detected: swap %s refunder pubkey hash no longer matches configured key index",
				sw.SwapID)
		}
	}

	return nil
}
