package liquidwallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

// Fake is an in-memory Wallet used by tests. It derives deterministic
// scriptPubKeys for each address index and requires a test to explicitly
// advance the tip and mark transactions confirmed; nothing confirms on its
// own, mirroring how a real chain backend only reports what's actually
// been mined.
type Fake struct {
	mu sync.Mutex

	Params      elements.AddressParams
	Policy      elements.AssetID
	Height      uint32
	broadcast   map[[32]byte]*elements.Transaction
	confsByTxID map[[32]byte]uint32

	// BuildErr, if set, makes BuildAndBroadcastFunding fail.
	BuildErr error
}

// NewFake builds an empty Fake wallet.
func NewFake(params elements.AddressParams, policy elements.AssetID) *Fake {
	return &Fake{
		Params:      params,
		Policy:      policy,
		broadcast:   make(map[[32]byte]*elements.Transaction),
		confsByTxID: make(map[[32]byte]uint32),
	}
}

func (f *Fake) AddressAt(_ context.Context, index uint32) (string, []byte, error) {
	var hash [20]byte
	hash[0] = byte(index)
	hash[1] = byte(index >> 8)
	addr, err := elements.P2WPKHAddress(hash[:], f.Params)
	if err != nil {
		return "", nil, err
	}
	return addr.EncodeAddress(), elements.ScriptPubKeyFor(addr), nil
}

func (f *Fake) TipHeight(context.Context) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Height, nil
}

// SetHeight lets a test advance the simulated chain tip.
func (f *Fake) SetHeight(h uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Height = h
}

func (f *Fake) PolicyAsset() elements.AssetID { return f.Policy }

func (f *Fake) AddressParams() elements.AddressParams { return f.Params }

func (f *Fake) BuildAndBroadcastFunding(
	_ context.Context,
	htlcP2WSHScript []byte,
	assetID elements.AssetID,
	assetAmount uint64,
	feeSubsidySats uint64,
) (*FundingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.BuildErr != nil {
		return nil, f.BuildErr
	}

	tx := &elements.Transaction{
		Version: 2,
		Inputs: []elements.TxIn{
			{PrevOut: elements.OutPoint{Index: 0}, Sequence: 0xffffffff},
		},
		Outputs: []elements.TxOut{
			{Asset: assetID, Value: assetAmount, ScriptPubKey: htlcP2WSHScript},
			{Asset: f.Policy, Value: feeSubsidySats, ScriptPubKey: htlcP2WSHScript},
		},
	}

	txidHash, err := tx.TxID()
	if err != nil {
		return nil, fmt.Errorf("compute funding txid: %w", err)
	}
	txid := [32]byte(txidHash)
	f.broadcast[txid] = tx
	f.confsByTxID[txid] = 0

	return &FundingResult{
		Tx:        tx,
		TxID:      txid,
		AssetVout: 0,
		LBTCVout:  1,
	}, nil
}

// SetConfirmations lets a test mark a broadcast transaction as having n
// confirmations.
func (f *Fake) SetConfirmations(txid [32]byte, n uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confsByTxID[txid] = n
}

func (f *Fake) TxConfirmationsForScript(_ context.Context, scriptPubKey []byte, txid [32]byte) (uint32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx, ok := f.broadcast[txid]
	if !ok {
		return 0, false, nil
	}
	found := false
	for _, out := range tx.Outputs {
		if string(out.ScriptPubKey) == string(scriptPubKey) {
			found = true
			break
		}
	}
	if !found {
		return 0, false, nil
	}
	return f.confsByTxID[txid], true, nil
}

func (f *Fake) BroadcastTransaction(_ context.Context, tx *elements.Transaction) ([32]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	txidHash, err := tx.TxID()
	if err != nil {
		return [32]byte{}, err
	}
	txid := [32]byte(txidHash)
	f.broadcast[txid] = tx
	if _, ok := f.confsByTxID[txid]; !ok {
		f.confsByTxID[txid] = 0
	}
	return txid, nil
}

func (f *Fake) GetTransaction(_ context.Context, txid [32]byte) (*elements.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx, ok := f.broadcast[txid]
	if !ok {
		return nil, fmt.Errorf("unknown txid %s", chainhash.Hash(txid))
	}
	return tx, nil
}

var _ Wallet = (*Fake)(nil)
