package elements

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTxOutExplicitRoundTrip(t *testing.T) {
	asset := AssetID{1, 2, 3}
	out := TxOut{Asset: asset, Value: 1000, ScriptPubKey: []byte{0x00, 0x14, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}}
	require.False(t, out.IsFee())

	fee := NewFeeOutput(asset, 500)
	require.True(t, fee.IsFee())
}

func TestTransactionTxIDDeterministic(t *testing.T) {
	tx := &Transaction{
		Version: 2,
		Inputs: []TxIn{
			{PrevOut: OutPoint{Index: 0}, Sequence: 0xffffffff},
			{PrevOut: OutPoint{Index: 1}, Sequence: 0xffffffff},
		},
		Outputs: []TxOut{
			{Asset: AssetID{9}, Value: 1000, ScriptPubKey: []byte{0x00, 0x20}},
			NewFeeOutput(AssetID{9}, 500),
		},
	}

	id1, err := tx.TxID()
	require.NoError(t, err)
	id2, err := tx.TxID()
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	// Adding a witness must not change the txid (segwit malleability fix).
	tx.Inputs[0].Witness = [][]byte{{1, 2, 3}}
	id3, err := tx.TxID()
	require.NoError(t, err)
	require.Equal(t, id1, id3)
}

func TestSegwitV0SighashChangesWithValue(t *testing.T) {
	tx := &Transaction{
		Version: 2,
		Inputs: []TxIn{
			{PrevOut: OutPoint{Index: 0}, Sequence: 0xffffffff},
		},
		Outputs: []TxOut{
			{Asset: AssetID{1}, Value: 1000, ScriptPubKey: []byte{0x00, 0x20}},
		},
	}
	cache, err := NewSigHashCache(tx)
	require.NoError(t, err)

	scriptCode := []byte{0x51}
	h1, err := SegwitV0Sighash(tx, cache, 0, scriptCode, 1000, SigHashAll)
	require.NoError(t, err)
	h2, err := SegwitV0Sighash(tx, cache, 0, scriptCode, 2000, SigHashAll)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
