package swap

import (
	"fmt"
	"math/bits"

	"github.com/google/uuid"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

// SwapStatus is the swap's position in the §4.4 state graph. Values are
// persisted as the lowercase kebab strings in String()/ParseSwapStatus;
// any addition must update both, and an unrecognized stored string must be
// a hard decode-time error, never silently mapped to a default.
type SwapStatus int

const (
	StatusCreated SwapStatus = iota
	StatusFunded
	StatusPaid
	StatusClaimed
	StatusRefunded
	StatusFailed
)

func (s SwapStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusFunded:
		return "funded"
	case StatusPaid:
		return "paid"
	case StatusClaimed:
		return "claimed"
	case StatusRefunded:
		return "refunded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseSwapStatus decodes the persisted string form, failing hard on any
// value it doesn't recognize.
func ParseSwapStatus(s string) (SwapStatus, error) {
	switch s {
	case "created":
		return StatusCreated, nil
	case "funded":
		return StatusFunded, nil
	case "paid":
		return StatusPaid, nil
	case "claimed":
		return StatusClaimed, nil
	case "refunded":
		return StatusRefunded, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("unknown swap status %q", s)
	}
}

// IsTerminalForWatcher reports whether the refund watcher must leave a swap
// in this status alone.
func (s SwapStatus) IsTerminalForWatcher() bool {
	switch s {
	case StatusPaid, StatusClaimed, StatusRefunded, StatusFailed:
		return true
	default:
		return false
	}
}

// Quote is an offer snapshot for a specific amount (§3).
type Quote struct {
	QuoteID         uuid.UUID
	OfferID         [32]byte
	Direction       Direction
	AssetID         elements.AssetID
	AssetAmount     uint64
	MinFundingConfs uint32
	TotalPriceMsat  uint64
	SwapID          *uuid.UUID
}

// NewQuote validates inputs and computes TotalPriceMsat with an overflow
// check, refusing to silently wrap on pathologically large amounts.
func NewQuote(offer Offer, direction Direction, assetAmount uint64, minFundingConfs uint32) (*Quote, error) {
	if assetAmount == 0 {
		return nil, NewError(KindInvalidArgument, "asset_amount must be positive")
	}
	if offer.PriceMsatPerAssetUnit == 0 {
		return nil, NewError(KindInternal, "offer has zero price_msat_per_asset_unit")
	}
	if minFundingConfs > offer.MaxMinFundingConfs {
		return nil, NewError(KindInvalidArgument,
			"min_funding_confs %d exceeds configured ceiling %d", minFundingConfs, offer.MaxMinFundingConfs)
	}
	if !offer.SupportsDirection(direction) {
		return nil, NewError(KindFailedPrecondition, "direction %s is not supported", direction)
	}

	hi, total := bits.Mul64(assetAmount, offer.PriceMsatPerAssetUnit)
	if hi != 0 {
		return nil, NewError(KindInvalidArgument, "asset_amount too large: total_price_msat would overflow")
	}

	return &Quote{
		QuoteID:         uuid.New(),
		OfferID:         offer.ID(),
		Direction:       direction,
		AssetID:         offer.AssetID,
		AssetAmount:     assetAmount,
		MinFundingConfs: minFundingConfs,
		TotalPriceMsat:  total,
	}, nil
}

// Swap is a running instance of the protocol (§3).
type Swap struct {
	SwapID             uuid.UUID
	QuoteID            uuid.UUID
	Direction          Direction
	Bolt11Invoice      string
	PaymentHash        [32]byte
	AssetID            elements.AssetID
	AssetAmount        uint64
	TotalPriceMsat     uint64
	BuyerLiquidAddress string
	FeeSubsidySats     uint64
	RefundLockHeight   uint32
	P2WSHAddress       string
	WitnessScript      []byte
	FundingTxID        [32]byte
	AssetVout          uint32
	LBTCVout           uint32
	MinFundingConfs    uint32
	LNPaymentID        string
	LNPreimage         *[32]byte
	ClaimTxID          *[32]byte
	Status             SwapStatus
	RefundAttemptCount uint32
}

// CanTransitionTo reports whether the §4.4 graph allows moving from s to
// next.
func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	switch s {
	case StatusCreated:
		return next == StatusFunded || next == StatusRefunded || next == StatusFailed
	case StatusFunded:
		return next == StatusPaid || next == StatusRefunded || next == StatusFailed
	case StatusPaid:
		return next == StatusClaimed || next == StatusFailed
	default:
		return false
	}
}
