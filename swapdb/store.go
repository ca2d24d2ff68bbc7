// Package swapdb declares the durable record store the swap service
// depends on: key-addressed persistence of quotes and swaps (§6). The
// reference implementation lives in swapdb/sqlitestore.
package swapdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/lightninglabs/ln-liquid-swap/swap"
)

// ErrNotFound is returned by Get* methods when no row matches the id.
var ErrNotFound = swap.NewError(swap.KindNotFound, "not found")

// Store is the durable record store the swap service depends on. All
// writes must be atomic from the caller's point of view (§5: "no torn
// writes"); status updates on a single swap are serialized by the
// implementation.
type Store interface {
	InsertQuote(ctx context.Context, q *swap.Quote) error
	GetQuote(ctx context.Context, id uuid.UUID) (*swap.Quote, error)

	// SetQuoteSwapID links a quote to the swap created from it. It must
	// fail if the quote row does not exist, and must be usable to
	// implement at-most-once linking (a second call with the same
	// swapID is idempotent; a second call with a different swapID is a
	// caller error).
	SetQuoteSwapID(ctx context.Context, quoteID, swapID uuid.UUID) error

	InsertSwap(ctx context.Context, s *swap.Swap) error
	GetSwap(ctx context.Context, id uuid.UUID) (*swap.Swap, error)

	// UpdateSwapStatus performs a single atomic status transition.
	UpdateSwapStatus(ctx context.Context, swapID uuid.UUID, status swap.SwapStatus) error

	// UpsertSwapPayment persists the LN payment outcome together with
	// the status transition to Paid, atomically.
	UpsertSwapPayment(ctx context.Context, swapID uuid.UUID, lnPaymentID string, preimage [32]byte, status swap.SwapStatus) error

	// UpsertSwapClaim persists the claim transaction id together with
	// the status transition to Claimed, atomically.
	UpsertSwapClaim(ctx context.Context, swapID uuid.UUID, claimTxID [32]byte, status swap.SwapStatus) error

	// ListSwapsByStatus returns every swap whose status is one of
	// statuses, used by the refund watcher to find work and by the
	// key-rotation startup check.
	ListSwapsByStatus(ctx context.Context, statuses ...swap.SwapStatus) ([]*swap.Swap, error)

	// IncrementRefundAttempt bumps and returns a swap's refund attempt
	// counter, used to back off rebroadcasts after a failure.
	IncrementRefundAttempt(ctx context.Context, swapID uuid.UUID) (uint32, error)

	// Close releases any resources held by the store.
	Close() error
}
