// Package htlctx builds and signs the claim and refund transactions that
// spend an HTLC's two funding outputs.
package htlctx

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/htlcscript"
)

// HtlcFunding describes where the two HTLC outputs live and what they're
// worth, independent of claim vs. refund.
type HtlcFunding struct {
	FundingTxID    chainhash.Hash
	AssetVout      uint32
	LBTCVout       uint32
	AssetID        elements.AssetID
	AssetAmount    uint64
	PolicyAsset    elements.AssetID
	FeeSubsidySats uint64
}

// Validate checks the invariants that must hold regardless of claim or
// refund: the two outputs must be distinct, and the asset amount must be
// positive. The fee is checked against the subsidy when the transaction is
// built, not here.
func (f HtlcFunding) Validate() error {
	if f.AssetVout == f.LBTCVout {
		return fmt.Errorf("asset_vout and lbtc_vout must be distinct")
	}
	if f.AssetAmount == 0 {
		return fmt.Errorf("asset amount must be positive")
	}
	return nil
}

// buildLayout assembles the common two-input, three-output skeleton shared
// by claim and refund: inputs spend (asset_vout, lbtc_vout) of funding_txid
// in that order; outputs pay the asset amount and the fee-subsidy remainder
// to recipientScript, followed by the explicit fee output.
func buildLayout(
	witnessScript []byte,
	funding HtlcFunding,
	recipientScript []byte,
	feeSats uint64,
	sequence, lockTime uint32,
) (*elements.Transaction, error) {

	if err := funding.Validate(); err != nil {
		return nil, err
	}
	if feeSats >= funding.FeeSubsidySats {
		return nil, fmt.Errorf("%w: fee %d sats must be less than fee subsidy %d sats",
			ErrInvalidFee, feeSats, funding.FeeSubsidySats)
	}

	tx := &elements.Transaction{
		Version:  2,
		LockTime: lockTime,
		Inputs: []elements.TxIn{
			{
				PrevOut:  elements.OutPoint{Hash: funding.FundingTxID, Index: funding.AssetVout},
				Sequence: sequence,
			},
			{
				PrevOut:  elements.OutPoint{Hash: funding.FundingTxID, Index: funding.LBTCVout},
				Sequence: sequence,
			},
		},
		Outputs: []elements.TxOut{
			{
				Asset:        funding.AssetID,
				Value:        funding.AssetAmount,
				ScriptPubKey: recipientScript,
			},
			{
				Asset:        funding.PolicyAsset,
				Value:        funding.FeeSubsidySats - feeSats,
				ScriptPubKey: recipientScript,
			},
			elements.NewFeeOutput(funding.PolicyAsset, feeSats),
		},
	}

	_ = witnessScript // witness is attached by the signer, not the builder.
	return tx, nil
}

// ErrInvalidFee is returned when the requested spend fee would not leave a
// positive remainder of the fee subsidy.
var ErrInvalidFee = fmt.Errorf("invalid fee")

// sequenceClaimNoLocktime signals that the input carries no locktime
// constraint (claim path).
const sequenceClaimNoLocktime = 0xffffffff

// sequenceEnableLockTimeNoRBF enables nSequence-gated locktime without
// signalling BIP125 replace-by-fee (refund path).
const sequenceEnableLockTimeNoRBF = 0xfffffffe

// BuildClaimTx builds the unsigned claim transaction: lock_time=0,
// sequence=MAX on both inputs, paying both outputs to claimerScript.
func BuildClaimTx(witnessScript []byte, funding HtlcFunding, claimerScript []byte, feeSats uint64) (*elements.Transaction, error) {
	return buildLayout(witnessScript, funding, claimerScript, feeSats, sequenceClaimNoLocktime, 0)
}

// BuildRefundTx builds the unsigned refund transaction: lock_time set to
// the HTLC's refund_lock_height, sequence enabling locktime without RBF,
// paying both outputs to refunderScript.
func BuildRefundTx(witnessScript []byte, funding HtlcFunding, refunderScript []byte, feeSats uint64, refundLockHeight uint32) (*elements.Transaction, error) {
	return buildLayout(witnessScript, funding, refunderScript, feeSats, sequenceEnableLockTimeNoRBF, refundLockHeight)
}

// WitnessScriptFor rebuilds and validates the witness script used to fund
// this HTLC, ensuring the caller is about to sign against the script that
// actually matches the funded P2WSH output.
func WitnessScriptFor(spec htlcscript.HtlcSpec, fundingP2WSHScript []byte, params elements.AddressParams) ([]byte, error) {
	script, err := htlcscript.BuildWitnessScript(spec)
	if err != nil {
		return nil, err
	}
	addr, err := elements.P2WSHAddress(script, params)
	if err != nil {
		return nil, err
	}
	pkScript, err := payToWitnessScriptHash(addr.ScriptAddress())
	if err != nil {
		return nil, err
	}
	if fundingP2WSHScript != nil && string(pkScript) != string(fundingP2WSHScript) {
		return nil, fmt.Errorf("witness script does not match funded output's script_pubkey")
	}
	return script, nil
}

func payToWitnessScriptHash(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != 32 {
		return nil, fmt.Errorf("script hash must be 32 bytes")
	}
	out := make([]byte, 0, 34)
	out = append(out, 0x00, 0x20)
	out = append(out, scriptHash...)
	return out, nil
}
