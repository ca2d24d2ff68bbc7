package htlcscript

import (
	"github.com/btcsuite/btcd/txscript"
)

// BuildWitnessScript emits the canonical HTLC witness script:
//
//	OP_IF
//	  OP_SIZE <32> OP_EQUALVERIFY
//	  OP_SHA256 <payment_hash> OP_EQUALVERIFY
//	  OP_DUP OP_HASH160 <claimer_pkh> OP_EQUALVERIFY OP_CHECKSIG
//	OP_ELSE
//	  <refund_lock_height> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	  OP_DUP OP_HASH160 <refunder_pkh> OP_EQUALVERIFY OP_CHECKSIG
//	OP_ENDIF
//
// txscript.ScriptBuilder always emits minimal pushes, including
// opcode-encoded small integers (OP_1..OP_16, OP_1NEGATE) via AddInt64,
// satisfying the minimal-encoding requirement without extra bookkeeping.
func BuildWitnessScript(spec HtlcSpec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_IF)
	b.AddOp(txscript.OP_SIZE)
	b.AddInt64(32)
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_SHA256)
	b.AddData(spec.PaymentHash[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(spec.ClaimerPKH[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_CHECKSIG)
	b.AddOp(txscript.OP_ELSE)
	b.AddInt64(int64(spec.RefundLockHeight))
	b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	b.AddOp(txscript.OP_DROP)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(spec.RefunderPKH[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_CHECKSIG)
	b.AddOp(txscript.OP_ENDIF)

	return b.Script()
}
