package htlctx

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

// inputValue returns the explicit value of the output being spent by input
// idx: the traded asset amount for input 0, the fee-subsidy amount for
// input 1.
func inputValue(funding HtlcFunding, idx int) uint64 {
	if idx == 0 {
		return funding.AssetAmount
	}
	return funding.FeeSubsidySats
}

// sign computes the SegWit v0 signature for input idx of tx, spending
// witnessScript under funding's per-input value, and appends the
// SigHashAll type byte as required by §4.2.
func sign(tx *elements.Transaction, funding HtlcFunding, witnessScript []byte, idx int, privKey *btcec.PrivateKey) ([]byte, error) {
	cache, err := elements.NewSigHashCache(tx)
	if err != nil {
		return nil, fmt.Errorf("build sighash cache: %w", err)
	}

	hash, err := elements.SegwitV0Sighash(
		tx, cache, idx, witnessScript, inputValue(funding, idx), elements.SigHashAll,
	)
	if err != nil {
		return nil, fmt.Errorf("compute sighash for input %d: %w", idx, err)
	}

	sig := ecdsa.Sign(privKey, hash[:])
	der := sig.Serialize()
	return append(der, byte(elements.SigHashAll)), nil
}

// SignClaim signs both inputs of a claim transaction built by BuildClaimTx
// and attaches the five-element witness stack
// [signature, claimer_pubkey, preimage, 0x01, witness_script] to each,
// where the trailing 0x01 selects the HTLC's IF branch.
func SignClaim(
	tx *elements.Transaction,
	funding HtlcFunding,
	witnessScript []byte,
	claimerKey *btcec.PrivateKey,
	preimage [32]byte,
) error {
	if len(tx.Inputs) != 2 {
		return fmt.Errorf("claim tx must have exactly 2 inputs, got %d", len(tx.Inputs))
	}
	pubKey := claimerKey.PubKey().SerializeCompressed()

	for idx := range tx.Inputs {
		sig, err := sign(tx, funding, witnessScript, idx, claimerKey)
		if err != nil {
			return err
		}
		tx.Inputs[idx].Witness = [][]byte{
			sig,
			pubKey,
			preimage[:],
			{0x01},
			witnessScript,
		}
	}
	return nil
}

// SignRefund signs both inputs of a refund transaction built by
// BuildRefundTx and attaches the four-element witness stack
// [signature, refunder_pubkey, <empty>, witness_script] to each; the empty
// push in the preimage slot selects the ELSE branch.
func SignRefund(
	tx *elements.Transaction,
	funding HtlcFunding,
	witnessScript []byte,
	refunderKey *btcec.PrivateKey,
) error {
	if len(tx.Inputs) != 2 {
		return fmt.Errorf("refund tx must have exactly 2 inputs, got %d", len(tx.Inputs))
	}
	pubKey := refunderKey.PubKey().SerializeCompressed()

	for idx := range tx.Inputs {
		sig, err := sign(tx, funding, witnessScript, idx, refunderKey)
		if err != nil {
			return err
		}
		tx.Inputs[idx].Witness = [][]byte{
			sig,
			pubKey,
			{},
			witnessScript,
		}
	}
	return nil
}
