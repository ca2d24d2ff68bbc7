// Package htlcscript builds and parses the two-branch HTLC witness script
// that binds a payment hash, a claimer pubkey hash, a refunder pubkey hash
// and a CLTV locktime, and derives its P2WSH address.
package htlcscript

import (
	"fmt"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

// HtlcSpec is the in-memory description of an HTLC witness script. It never
// touches the store or the wire directly; callers emit it to bytes or parse
// bytes into it.
type HtlcSpec struct {
	PaymentHash     [32]byte
	ClaimerPKH      [20]byte
	RefunderPKH     [20]byte
	RefundLockHeight uint32
}

// Validate checks field shapes that are always required regardless of where
// the spec came from.
func (s HtlcSpec) Validate() error {
	if s.PaymentHash == ([32]byte{}) {
		return fmt.Errorf("payment hash must not be all-zero")
	}
	if s.ClaimerPKH == ([20]byte{}) {
		return fmt.Errorf("claimer pubkey hash must not be all-zero")
	}
	if s.RefunderPKH == ([20]byte{}) {
		return fmt.Errorf("refunder pubkey hash must not be all-zero")
	}
	return nil
}

// P2WSHAddress derives the HTLC's pay-to-witness-script-hash address under
// params.
func (s HtlcSpec) P2WSHAddress(params elements.AddressParams) (string, []byte, error) {
	script, err := BuildWitnessScript(s)
	if err != nil {
		return "", nil, err
	}
	addr, err := elements.P2WSHAddress(script, params)
	if err != nil {
		return "", nil, err
	}
	return addr.EncodeAddress(), script, nil
}
