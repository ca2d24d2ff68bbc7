package htlcscript

import (
	"errors"
	"fmt"
)

// MalformedScript is returned for any deviation from the exact expected
// instruction sequence: wrong opcode, wrong push length, truncated script,
// non-minimal encoding, trailing data, or an out-of-range locktime. No
// partial HtlcSpec is ever returned alongside this error.
var MalformedScript = errors.New("malformed htlc witness script")

type malformedErr struct {
	reason string
}

func (e *malformedErr) Error() string { return fmt.Sprintf("%s: %s", MalformedScript, e.reason) }
func (e *malformedErr) Unwrap() error { return MalformedScript }

func fail(reason string, args ...any) error {
	return &malformedErr{reason: fmt.Sprintf(reason, args...)}
}

// cursor walks the raw script bytes instruction by instruction. It never
// interprets the script; it only tokenizes it strictly enough to recognize
// opcodes and minimally-encoded data pushes, rejecting anything else.
type cursor struct {
	script []byte
	pos    int
}

// next returns the next opcode byte and, if it was a data push, the pushed
// bytes. It enforces that direct-push opcodes (0x01..0x4b) are used, which
// is the only push form this script ever needs (all pushes are <= 32
// bytes); OP_PUSHDATA1/2/4 are therefore always rejected as non-minimal.
func (c *cursor) next() (op byte, data []byte, err error) {
	if c.pos >= len(c.script) {
		return 0, nil, fail("unexpected end of script")
	}
	op = c.script[c.pos]
	c.pos++

	switch {
	case op == 0x00: // OP_0: empty push.
		return op, []byte{}, nil
	case op >= 0x01 && op <= 0x4b: // direct push of op bytes.
		n := int(op)
		if c.pos+n > len(c.script) {
			return 0, nil, fail("push of %d bytes overruns script", n)
		}
		data = c.script[c.pos : c.pos+n]
		c.pos += n
		return op, data, nil
	default:
		return op, nil, nil
	}
}

func (c *cursor) expectOp(want byte, name string) error {
	op, data, err := c.next()
	if err != nil {
		return err
	}
	if data != nil || op != want {
		return fail("expected %s (0x%02x), got 0x%02x", name, want, op)
	}
	return nil
}

// expectPush requires the next instruction be a direct-push opcode of
// exactly n bytes, returning the pushed data.
func (c *cursor) expectPush(n int) ([]byte, error) {
	op, data, err := c.next()
	if err != nil {
		return nil, err
	}
	if data == nil || op != byte(n) {
		return nil, fail("expected a %d-byte push, got opcode 0x%02x", n, op)
	}
	return data, nil
}

// Opcode values referenced directly; these are stable byte-level constants
// of the Bitcoin/Elements script interpreter.
const (
	opIf                   = 0x63
	opElse                 = 0x67
	opEndIf                = 0x68
	opSize                 = 0x82
	opEqualVerify          = 0x88
	opSha256               = 0xa8
	opDup                  = 0x76
	opHash160              = 0xa9
	opCheckSig             = 0xac
	opCheckLockTimeVerify  = 0xb1
	opDrop                 = 0x75
	op1Negate              = 0x4f
	op1                    = 0x51
	op16                   = 0x60
)

// expectScriptNum parses the minimal script-number encoding produced by
// txscript.ScriptBuilder.AddInt64: OP_0, OP_1NEGATE, OP_1..OP_16, or a
// direct push of 1..8 bytes. It returns the decoded unsigned magnitude,
// rejecting negative encodings (refund_lock_height is never negative) and
// non-minimal pushes.
func (c *cursor) expectScriptNum() (uint32, error) {
	op, data, err := c.next()
	if err != nil {
		return 0, err
	}

	switch {
	case op == 0x00:
		return 0, nil
	case op == op1Negate:
		return 0, fail("negative locktime not permitted")
	case op >= op1 && op <= op16:
		return uint32(op - op1 + 1), nil
	case data != nil:
		n, err := decodeScriptNum(data)
		if err != nil {
			return 0, err
		}
		if len(data) == 1 && n >= -1 && n <= 16 {
			return 0, fail("non-minimally encoded script number %d", n)
		}
		if n < 0 {
			return 0, fail("negative locktime not permitted")
		}
		if n > int64(^uint32(0)) {
			return 0, fail("locktime %d exceeds uint32 range", n)
		}
		return uint32(n), nil
	default:
		return 0, fail("expected a script number, got opcode 0x%02x", op)
	}
}

// decodeScriptNum decodes a 0..8 byte little-endian script number with a
// sign bit in the high bit of the last byte, requiring minimal encoding
// (no unnecessary trailing zero byte beyond what's needed to clear the sign
// bit of a value whose top byte would otherwise look negative).
func decodeScriptNum(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > 8 {
		return 0, fail("script number longer than 8 bytes")
	}

	last := b[len(b)-1]
	negative := last&0x80 != 0

	// Minimality: the most significant byte may only be 0x00 (or 0x80 when
	// negative) if dropping it would leave the remaining top bit set,
	// i.e. it exists solely to disambiguate sign.
	if len(b) > 1 {
		top := last &^ 0x80
		if top == 0 {
			prevTop := b[len(b)-2] & 0x80
			if prevTop == 0 {
				return 0, fail("non-minimally encoded script number")
			}
		}
	}

	var magnitude int64
	for i := len(b) - 1; i >= 0; i-- {
		v := b[i]
		if i == len(b)-1 {
			v &^= 0x80
		}
		magnitude = magnitude<<8 | int64(v)
	}

	if negative {
		return -magnitude, nil
	}
	return magnitude, nil
}

// ParseWitnessScript is the exact inverse of BuildWitnessScript: it walks
// the instruction sequence in strict order and fails on any deviation,
// including trailing bytes after the final OP_ENDIF.
func ParseWitnessScript(script []byte) (HtlcSpec, error) {
	c := &cursor{script: script}

	if err := c.expectOp(opIf, "OP_IF"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opSize, "OP_SIZE"); err != nil {
		return HtlcSpec{}, err
	}
	sizeArg, err := c.expectScriptNum()
	if err != nil {
		return HtlcSpec{}, err
	}
	if sizeArg != 32 {
		return HtlcSpec{}, fail("OP_SIZE argument must be 32, got %d", sizeArg)
	}
	if err := c.expectOp(opEqualVerify, "OP_EQUALVERIFY"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opSha256, "OP_SHA256"); err != nil {
		return HtlcSpec{}, err
	}
	paymentHash, err := c.expectPush(32)
	if err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opEqualVerify, "OP_EQUALVERIFY"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opDup, "OP_DUP"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opHash160, "OP_HASH160"); err != nil {
		return HtlcSpec{}, err
	}
	claimerPKH, err := c.expectPush(20)
	if err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opEqualVerify, "OP_EQUALVERIFY"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opCheckSig, "OP_CHECKSIG"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opElse, "OP_ELSE"); err != nil {
		return HtlcSpec{}, err
	}
	refundLockHeight, err := c.expectScriptNum()
	if err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opCheckLockTimeVerify, "OP_CHECKLOCKTIMEVERIFY"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opDrop, "OP_DROP"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opDup, "OP_DUP"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opHash160, "OP_HASH160"); err != nil {
		return HtlcSpec{}, err
	}
	refunderPKH, err := c.expectPush(20)
	if err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opEqualVerify, "OP_EQUALVERIFY"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opCheckSig, "OP_CHECKSIG"); err != nil {
		return HtlcSpec{}, err
	}
	if err := c.expectOp(opEndIf, "OP_ENDIF"); err != nil {
		return HtlcSpec{}, err
	}

	if c.pos != len(c.script) {
		return HtlcSpec{}, fail("trailing data after OP_ENDIF")
	}

	spec := HtlcSpec{RefundLockHeight: refundLockHeight}
	copy(spec.PaymentHash[:], paymentHash)
	copy(spec.ClaimerPKH[:], claimerPKH)
	copy(spec.RefunderPKH[:], refunderPKH)
	return spec, nil
}
