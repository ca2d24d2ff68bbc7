// Package lnclient defines the Lightning node surface this system consumes:
// creating an invoice, paying one, and observing the resulting preimage.
// The real node is an external collaborator; only the interface and an
// in-memory fake for tests live here.
package lnclient

import (
	"context"
	"time"
)

// Client is the Lightning node operations the swap service depends on.
type Client interface {
	// CreateInvoice asks the node to generate a BOLT11 invoice for
	// amountMsat with the given memo and expiry.
	CreateInvoice(ctx context.Context, amountMsat uint64, description string, expirySecs uint32) (bolt11 string, err error)

	// PayInvoice dispatches payment of bolt11 and returns an
	// implementation-defined payment id used to poll for its outcome.
	PayInvoice(ctx context.Context, bolt11 string) (paymentID string, err error)

	// WaitPreimage polls until the payment identified by paymentID
	// succeeds and its preimage is observable, or timeout elapses.
	WaitPreimage(ctx context.Context, paymentID string, timeout time.Duration) ([32]byte, error)
}
