// Package invoice extracts the fields this system cares about from a
// BOLT11 invoice string: payment hash, millisatoshi amount and expiry.
package invoice

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

// Invoice is the decoded subset of a BOLT11 invoice this system acts on.
type Invoice struct {
	PaymentHash [32]byte
	AmountMsat  uint64
	HasAmount   bool
	Description string
	Expiry      time.Time
	Timestamp   time.Time
}

// Decode parses a BOLT11 invoice string under the given network.
func Decode(bolt11 string, netParams *chaincfg.Params) (*Invoice, error) {
	inv, err := zpay32.Decode(bolt11, netParams)
	if err != nil {
		return nil, fmt.Errorf("decode bolt11 invoice: %w", err)
	}
	if inv.PaymentHash == nil {
		return nil, fmt.Errorf("bolt11 invoice missing payment hash")
	}

	out := &Invoice{
		PaymentHash: *inv.PaymentHash,
		Timestamp:   inv.Timestamp,
		Expiry:      inv.Timestamp.Add(inv.Expiry()),
	}
	if inv.MilliSat != nil {
		out.HasAmount = true
		out.AmountMsat = uint64(*inv.MilliSat)
	}
	if inv.Description != nil {
		out.Description = *inv.Description
	}
	return out, nil
}

// PaymentHash returns just the payment hash of a BOLT11 string.
func PaymentHash(bolt11 string, netParams *chaincfg.Params) ([32]byte, error) {
	inv, err := Decode(bolt11, netParams)
	if err != nil {
		return [32]byte{}, err
	}
	return inv.PaymentHash, nil
}

// AmountMsat returns the invoice's amount in millisatoshis, and whether one
// was encoded at all (zero-amount invoices are legal BOLT11).
func AmountMsat(bolt11 string, netParams *chaincfg.Params) (uint64, bool, error) {
	inv, err := Decode(bolt11, netParams)
	if err != nil {
		return 0, false, err
	}
	return inv.AmountMsat, inv.HasAmount, nil
}

// IsExpired reports whether bolt11 has passed its expiry relative to now.
// An invoice without an expiry field uses the BOLT11 default of one hour
// after its timestamp.
func IsExpired(bolt11 string, netParams *chaincfg.Params, now time.Time) (bool, error) {
	inv, err := Decode(bolt11, netParams)
	if err != nil {
		return false, err
	}
	if inv.Expiry.IsZero() {
		return false, nil
	}
	return now.After(inv.Expiry), nil
}
