package swap

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

// Direction identifies which leg of the swap each party pays.
type Direction int

const (
	// DirectionLNToLiquid: buyer pays LN, seller funds the asset leg,
	// buyer claims it, seller can refund.
	DirectionLNToLiquid Direction = iota
	// DirectionLiquidToLN: seller pays LN, buyer funds the asset leg,
	// seller claims it, buyer can refund.
	DirectionLiquidToLN
)

func (d Direction) String() string {
	switch d {
	case DirectionLNToLiquid:
		return "ln_to_liquid"
	case DirectionLiquidToLN:
		return "liquid_to_ln"
	default:
		return "unknown"
	}
}

// ParseDirection decodes the wire/store string form of a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "ln_to_liquid":
		return DirectionLNToLiquid, nil
	case "liquid_to_ln":
		return DirectionLiquidToLN, nil
	default:
		return 0, fmt.Errorf("unknown swap direction %q", s)
	}
}

// Role is a party's function within a single swap.
type Role int

const (
	RoleLNPayer Role = iota
	RoleLNPayee
	RoleLiquidFunder
	RoleLiquidClaimer
	RoleLiquidRefunder
)

// Party is which of the two swap counterparties plays a Role.
type Party int

const (
	PartyBuyer Party = iota
	PartySeller
)

func (p Party) String() string {
	if p == PartyBuyer {
		return "buyer"
	}
	return "seller"
}

// roleTable encodes the fixed assignment from §4.4: for each direction and
// role, which party plays it.
var roleTable = map[Direction]map[Role]Party{
	DirectionLNToLiquid: {
		RoleLNPayer:         PartyBuyer,
		RoleLNPayee:         PartySeller,
		RoleLiquidFunder:    PartySeller,
		RoleLiquidClaimer:   PartyBuyer,
		RoleLiquidRefunder:  PartySeller,
	},
	DirectionLiquidToLN: {
		RoleLNPayer:         PartySeller,
		RoleLNPayee:         PartyBuyer,
		RoleLiquidFunder:    PartyBuyer,
		RoleLiquidClaimer:   PartySeller,
		RoleLiquidRefunder:  PartyBuyer,
	},
}

// PartyForRole returns which party plays role under direction.
func PartyForRole(direction Direction, role Role) Party {
	return roleTable[direction][role]
}

// Offer is the static, config-derived pricing and policy surface a seller
// publishes. It is never stored directly; it is recomputed from config and
// hashed to detect operator-side changes between quoting and swap
// creation (S4).
type Offer struct {
	AssetID                elements.AssetID
	SupportedDirections    []Direction
	PriceMsatPerAssetUnit  uint64
	FeeSubsidySats         uint64
	RefundDeltaBlocks      uint32
	InvoiceExpirySecs      uint32
	MaxMinFundingConfs     uint32
}

// Validate checks the invariants an Offer must hold regardless of where its
// fields came from.
func (o Offer) Validate() error {
	if o.AssetID.IsZero() {
		return fmt.Errorf("asset_id is required")
	}
	if len(o.SupportedDirections) == 0 {
		return fmt.Errorf("at least one supported direction is required")
	}
	if o.PriceMsatPerAssetUnit == 0 {
		return fmt.Errorf("price_msat_per_asset_unit must be nonzero")
	}
	return nil
}

// SupportsDirection reports whether d is one of the offer's configured
// directions.
func (o Offer) SupportsDirection(d Direction) bool {
	for _, supported := range o.SupportedDirections {
		if supported == d {
			return true
		}
	}
	return false
}

// ID computes offer_id = SHA-256(canonical-encoded Offer): any field
// change yields a new id, which CreateSwap uses to detect a price/policy
// change since the quote was taken (S4).
func (o Offer) ID() [32]byte {
	h := sha256.New()
	h.Write(o.AssetID[:])
	for _, d := range o.SupportedDirections {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(d))
		h.Write(b[:])
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], o.PriceMsatPerAssetUnit)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], o.FeeSubsidySats)
	h.Write(buf[:])
	var buf4 [4]byte
	binary.BigEndian.PutUint32(buf4[:], o.RefundDeltaBlocks)
	h.Write(buf4[:])
	binary.BigEndian.PutUint32(buf4[:], o.InvoiceExpirySecs)
	h.Write(buf4[:])
	binary.BigEndian.PutUint32(buf4[:], o.MaxMinFundingConfs)
	h.Write(buf4[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
