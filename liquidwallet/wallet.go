// Package liquidwallet defines the Liquid wallet surface this system
// consumes: address derivation, chain tip, funding-transaction construction
// and broadcast, and confirmation queries. The real wallet (UTXO selection,
// PSET construction, blinding, chain backend) is an external collaborator;
// only the interface and an in-memory fake for tests live here.
package liquidwallet

import (
	"context"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

// FundingResult is returned by BuildAndBroadcastFunding: the broadcast
// transaction and the vouts of its two HTLC outputs.
type FundingResult struct {
	Tx        *elements.Transaction
	TxID      [32]byte
	AssetVout uint32
	LBTCVout  uint32
}

// Wallet is the Liquid wallet operations the swap service depends on.
type Wallet interface {
	// AddressAt returns the P2WPKH address (and its script_pubkey) at the
	// given BIP32 index.
	AddressAt(ctx context.Context, index uint32) (address string, scriptPubKey []byte, err error)

	// TipHeight returns the wallet's view of the current chain tip.
	TipHeight(ctx context.Context) (uint32, error)

	// PolicyAsset returns the native fee asset id of the chain this
	// wallet is connected to.
	PolicyAsset() elements.AssetID

	// AddressParams returns the network's address encoding parameters.
	AddressParams() elements.AddressParams

	// BuildAndBroadcastFunding constructs, signs and broadcasts a
	// transaction with two explicit outputs to htlcP2WSHScript: one of
	// (assetID, assetAmount) and one of (wallet.PolicyAsset(),
	// feeSubsidySats), returning the identified vouts.
	BuildAndBroadcastFunding(
		ctx context.Context,
		htlcP2WSHScript []byte,
		assetID elements.AssetID,
		assetAmount uint64,
		feeSubsidySats uint64,
	) (*FundingResult, error)

	// TxConfirmationsForScript returns the confirmation count of a
	// transaction whose output matches scriptPubKey, or (0, false) if the
	// wallet has not observed that output at all.
	TxConfirmationsForScript(ctx context.Context, scriptPubKey []byte, txid [32]byte) (confs uint32, found bool, err error)

	// BroadcastTransaction submits tx to the network, returning its txid.
	BroadcastTransaction(ctx context.Context, tx *elements.Transaction) ([32]byte, error)

	// GetTransaction fetches a previously broadcast transaction by txid.
	GetTransaction(ctx context.Context, txid [32]byte) (*elements.Transaction, error)
}
