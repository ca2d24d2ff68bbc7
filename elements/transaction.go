package elements

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	explicitPrefix byte = 0x01
	nullPrefix     byte = 0x00
)

// OutPoint references a specific output of a previously confirmed
// transaction.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// TxIn is a transaction input spending a single prior output. This module
// never deals with pegins or issuances, so only the fields needed to spend
// a plain HTLC output are modeled.
type TxIn struct {
	PrevOut  OutPoint
	Sequence uint32
	Witness  [][]byte
}

// TxOut is an explicit (never confidential) output: the asset id and value
// are sent in the clear. A fee output is represented by an empty
// ScriptPubKey, matching the chain's convention that fee outputs carry no
// spending script.
type TxOut struct {
	Asset       AssetID
	Value       uint64
	ScriptPubKey []byte
}

// IsFee reports whether this output is the transaction's explicit fee
// output.
func (o TxOut) IsFee() bool {
	return len(o.ScriptPubKey) == 0
}

// NewFeeOutput builds the explicit fee output for the given asset and
// amount.
func NewFeeOutput(asset AssetID, amount uint64) TxOut {
	return TxOut{Asset: asset, Value: amount}
}

// Transaction is a minimal Elements-style transaction: version, a fixed set
// of plain (non-confidential) inputs and explicit outputs, and a locktime.
// Segwit witnesses are carried per-input.
type Transaction struct {
	Version  uint32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// Copy returns a deep copy, used by the builder so successive signing steps
// never mutate a caller's transaction in place.
func (tx *Transaction) Copy() *Transaction {
	out := &Transaction{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Inputs:   make([]TxIn, len(tx.Inputs)),
		Outputs:  make([]TxOut, len(tx.Outputs)),
	}
	for i, in := range tx.Inputs {
		cp := in
		if in.Witness != nil {
			cp.Witness = make([][]byte, len(in.Witness))
			copy(cp.Witness, in.Witness)
		}
		out.Inputs[i] = cp
	}
	copy(out.Outputs, tx.Outputs)
	return out
}

func writeOutPoint(w io.Writer, op OutPoint) error {
	if _, err := w.Write(op.Hash[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, op.Index)
}

func writeExplicitAsset(w io.Writer, a AssetID) error {
	if _, err := w.Write([]byte{explicitPrefix}); err != nil {
		return err
	}
	_, err := w.Write(a[:])
	return err
}

func writeExplicitValue(w io.Writer, v uint64) error {
	if _, err := w.Write([]byte{explicitPrefix}); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, v)
}

func writeNullNonce(w io.Writer) error {
	_, err := w.Write([]byte{nullPrefix})
	return err
}

func writeVarBytes(w io.Writer, b []byte) error {
	if err := wire.WriteVarInt(w, 0, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeTxOut(w io.Writer, out TxOut) error {
	if err := writeExplicitAsset(w, out.Asset); err != nil {
		return err
	}
	if err := writeExplicitValue(w, out.Value); err != nil {
		return err
	}
	if err := writeNullNonce(w); err != nil {
		return err
	}
	return writeVarBytes(w, out.ScriptPubKey)
}

// SerializeNoWitness writes the portion of the transaction that is hashed
// for txid computation: no witness data is included, matching SegWit's
// wtxid/txid split.
func (tx *Transaction) SerializeNoWitness(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, tx.Version); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Inputs))); err != nil {
		return err
	}
	for _, in := range tx.Inputs {
		if err := writeOutPoint(w, in.PrevOut); err != nil {
			return err
		}
		// No scriptSig: every spend here is native SegWit v0.
		if err := writeVarBytes(w, nil); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.Sequence); err != nil {
			return err
		}
	}
	if err := wire.WriteVarInt(w, 0, uint64(len(tx.Outputs))); err != nil {
		return err
	}
	for _, out := range tx.Outputs {
		if err := writeTxOut(w, out); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, tx.LockTime)
}

// Serialize writes the full wire encoding including witness data.
func (tx *Transaction) Serialize(w io.Writer) error {
	if err := tx.SerializeNoWitness(w); err != nil {
		return err
	}
	for _, in := range tx.Inputs {
		if err := wire.WriteVarInt(w, 0, uint64(len(in.Witness))); err != nil {
			return err
		}
		for _, item := range in.Witness {
			if err := writeVarBytes(w, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Bytes returns the full wire encoding.
func (tx *Transaction) Bytes() []byte {
	var buf bytes.Buffer
	// Serialize cannot fail writing into a bytes.Buffer.
	_ = tx.Serialize(&buf)
	return buf.Bytes()
}

// TxID is the double-SHA256 of the non-witness serialization, byte-reversed
// for conventional display, matching Bitcoin/Elements txid semantics.
func (tx *Transaction) TxID() (chainhash.Hash, error) {
	var buf bytes.Buffer
	if err := tx.SerializeNoWitness(&buf); err != nil {
		return chainhash.Hash{}, fmt.Errorf("serialize for txid: %w", err)
	}
	return chainhash.DoubleHashH(buf.Bytes()), nil
}
