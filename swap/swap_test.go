package swap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

func testOffer() Offer {
	return Offer{
		AssetID:               elements.AssetID{1},
		SupportedDirections:   []Direction{DirectionLNToLiquid, DirectionLiquidToLN},
		PriceMsatPerAssetUnit: 1000,
		FeeSubsidySats:        10_000,
		RefundDeltaBlocks:     20,
		InvoiceExpirySecs:     3600,
		MaxMinFundingConfs:    6,
	}
}

func TestOfferIDChangesWithAnyField(t *testing.T) {
	o1 := testOffer()
	o2 := testOffer()
	require.Equal(t, o1.ID(), o2.ID())

	o2.PriceMsatPerAssetUnit++
	require.NotEqual(t, o1.ID(), o2.ID())
}

func TestNewQuoteComputesTotalPrice(t *testing.T) {
	offer := testOffer()
	q, err := NewQuote(offer, DirectionLNToLiquid, 1000, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, q.TotalPriceMsat)
	require.Equal(t, offer.ID(), q.OfferID)
}

func TestNewQuoteRejectsOverflow(t *testing.T) {
	offer := testOffer()
	offer.PriceMsatPerAssetUnit = ^uint64(0)
	_, err := NewQuote(offer, DirectionLNToLiquid, 2, 1)
	require.Error(t, err)

	var swapErr *Error
	require.ErrorAs(t, err, &swapErr)
	require.Equal(t, KindInvalidArgument, swapErr.Kind)
}

func TestNewQuoteRejectsTooManyConfs(t *testing.T) {
	offer := testOffer()
	_, err := NewQuote(offer, DirectionLNToLiquid, 100, offer.MaxMinFundingConfs+1)
	require.Error(t, err)
}

func TestNewQuoteRejectsUnsupportedDirection(t *testing.T) {
	offer := testOffer()
	offer.SupportedDirections = []Direction{DirectionLNToLiquid}
	_, err := NewQuote(offer, DirectionLiquidToLN, 100, 1)
	require.Error(t, err)
}

func TestRoleTableLNToLiquid(t *testing.T) {
	require.Equal(t, PartyBuyer, PartyForRole(DirectionLNToLiquid, RoleLNPayer))
	require.Equal(t, PartySeller, PartyForRole(DirectionLNToLiquid, RoleLNPayee))
	require.Equal(t, PartySeller, PartyForRole(DirectionLNToLiquid, RoleLiquidFunder))
	require.Equal(t, PartyBuyer, PartyForRole(DirectionLNToLiquid, RoleLiquidClaimer))
	require.Equal(t, PartySeller, PartyForRole(DirectionLNToLiquid, RoleLiquidRefunder))
}

func TestRoleTableLiquidToLN(t *testing.T) {
	require.Equal(t, PartySeller, PartyForRole(DirectionLiquidToLN, RoleLNPayer))
	require.Equal(t, PartyBuyer, PartyForRole(DirectionLiquidToLN, RoleLNPayee))
	require.Equal(t, PartyBuyer, PartyForRole(DirectionLiquidToLN, RoleLiquidFunder))
	require.Equal(t, PartySeller, PartyForRole(DirectionLiquidToLN, RoleLiquidClaimer))
	require.Equal(t, PartyBuyer, PartyForRole(DirectionLiquidToLN, RoleLiquidRefunder))
}

func TestSwapStatusRoundTrip(t *testing.T) {
	for _, s := range []SwapStatus{
		StatusCreated, StatusFunded, StatusPaid, StatusClaimed, StatusRefunded, StatusFailed,
	} {
		parsed, err := ParseSwapStatus(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}
}

func TestParseSwapStatusUnknownIsHardError(t *testing.T) {
	_, err := ParseSwapStatus("bogus")
	require.Error(t, err)
}

func TestStatusTransitionGraph(t *testing.T) {
	require.True(t, StatusCreated.CanTransitionTo(StatusFunded))
	require.True(t, StatusFunded.CanTransitionTo(StatusPaid))
	require.True(t, StatusPaid.CanTransitionTo(StatusClaimed))
	require.True(t, StatusCreated.CanTransitionTo(StatusRefunded))
	require.True(t, StatusFunded.CanTransitionTo(StatusRefunded))
	require.False(t, StatusClaimed.CanTransitionTo(StatusRefunded))
	require.False(t, StatusPaid.CanTransitionTo(StatusFunded))
}

func TestWatcherTerminalStatuses(t *testing.T) {
	require.False(t, StatusCreated.IsTerminalForWatcher())
	require.False(t, StatusFunded.IsTerminalForWatcher())
	require.True(t, StatusPaid.IsTerminalForWatcher())
	require.True(t, StatusClaimed.IsTerminalForWatcher())
	require.True(t, StatusRefunded.IsTerminalForWatcher())
	require.True(t, StatusFailed.IsTerminalForWatcher())
}
