package elements

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// SigHashAll is the only sighash type this module signs with.
const SigHashAll uint32 = 0x00000001

// SigHashCache memoizes the three digests shared by every input of a
// transaction, mirroring the BIP143 sighash-cache idiom btcsuite/btcd's
// txscript.TxSigHashes uses for Bitcoin. Elements extends the Bitcoin
// preimage with a hashIssuances field; since this module never issues or
// reissues assets that digest is always the zero hash.
type SigHashCache struct {
	hashPrevouts  chainhash.Hash
	hashSequence  chainhash.Hash
	hashIssuances chainhash.Hash
	hashOutputs   chainhash.Hash
}

// NewSigHashCache precomputes the shared digests for tx.
func NewSigHashCache(tx *Transaction) (*SigHashCache, error) {
	var prevouts, sequences bytes.Buffer
	for _, in := range tx.Inputs {
		if err := writeOutPoint(&prevouts, in.PrevOut); err != nil {
			return nil, err
		}
		if err := binary.Write(&sequences, binary.LittleEndian, in.Sequence); err != nil {
			return nil, err
		}
	}

	var outputs bytes.Buffer
	for _, out := range tx.Outputs {
		if err := writeTxOut(&outputs, out); err != nil {
			return nil, err
		}
	}

	return &SigHashCache{
		hashPrevouts:  chainhash.DoubleHashH(prevouts.Bytes()),
		hashSequence:  chainhash.DoubleHashH(sequences.Bytes()),
		hashIssuances: ZeroHash,
		hashOutputs:   chainhash.DoubleHashH(outputs.Bytes()),
	}, nil
}

// SegwitV0Sighash computes the BIP143-style digest for input idx, extended
// with the Elements hashIssuances field, signing the explicit value of the
// output being spent (inputValue) under scriptCode.
func SegwitV0Sighash(
	tx *Transaction,
	cache *SigHashCache,
	idx int,
	scriptCode []byte,
	inputValue uint64,
	hashType uint32,
) (chainhash.Hash, error) {

	if idx < 0 || idx >= len(tx.Inputs) {
		return chainhash.Hash{}, fmt.Errorf("input index %d out of range", idx)
	}
	in := tx.Inputs[idx]

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, tx.Version); err != nil {
		return chainhash.Hash{}, err
	}
	buf.Write(cache.hashPrevouts[:])
	buf.Write(cache.hashSequence[:])
	buf.Write(cache.hashIssuances[:])

	if err := writeOutPoint(&buf, in.PrevOut); err != nil {
		return chainhash.Hash{}, err
	}
	if err := writeVarBytes(&buf, scriptCode); err != nil {
		return chainhash.Hash{}, err
	}
	if err := writeExplicitValue(&buf, inputValue); err != nil {
		return chainhash.Hash{}, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, in.Sequence); err != nil {
		return chainhash.Hash{}, err
	}

	buf.Write(cache.hashOutputs[:])

	if err := binary.Write(&buf, binary.LittleEndian, tx.LockTime); err != nil {
		return chainhash.Hash{}, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, hashType); err != nil {
		return chainhash.Hash{}, err
	}

	return chainhash.DoubleHashH(buf.Bytes()), nil
}
