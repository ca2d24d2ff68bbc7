// Package swaprpc exposes the §6 RPC surface: six unary request/response
// operations mirroring swapservice.Service, authenticated by a bearer
// token in the "authorization" header. See DESIGN.md for why this is a
// plain JSON-over-HTTP surface rather than the teacher's gRPC/protobuf
// stack: spec.md §6 only requires a unary, auth-bearing request/response
// interface, and hand-authoring .pb.go files that can never be run
// through protoc in this environment is the riskier path.
package swaprpc

import (
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/swap"
)

// CreateQuoteRequest is the wire form of swapservice.Service.CreateQuote's
// arguments.
type CreateQuoteRequest struct {
	Direction       string `json:"direction"`
	AssetID         string `json:"asset_id"`
	AssetAmount     uint64 `json:"asset_amount,string"`
	MinFundingConfs uint32 `json:"min_funding_confs"`
}

// GetQuoteRequest identifies a quote to fetch.
type GetQuoteRequest struct {
	QuoteID string `json:"quote_id"`
}

// QuoteResponse is the wire form of swap.Quote.
type QuoteResponse struct {
	QuoteID         string  `json:"quote_id"`
	OfferID         string  `json:"offer_id"`
	Direction       string  `json:"direction"`
	AssetID         string  `json:"asset_id"`
	AssetAmount     uint64  `json:"asset_amount,string"`
	MinFundingConfs uint32  `json:"min_funding_confs"`
	TotalPriceMsat  uint64  `json:"total_price_msat,string"`
	SwapID          *string `json:"swap_id,omitempty"`
}

func quoteToWire(q *swap.Quote) *QuoteResponse {
	resp := &QuoteResponse{
		QuoteID:         q.QuoteID.String(),
		OfferID:         hex.EncodeToString(q.OfferID[:]),
		Direction:       q.Direction.String(),
		AssetID:         q.AssetID.String(),
		AssetAmount:     q.AssetAmount,
		MinFundingConfs: q.MinFundingConfs,
		TotalPriceMsat:  q.TotalPriceMsat,
	}
	if q.SwapID != nil {
		id := q.SwapID.String()
		resp.SwapID = &id
	}
	return resp
}

// CreateSwapRequest is the wire form of swapservice.Service.CreateSwap's
// arguments.
type CreateSwapRequest struct {
	QuoteID            string `json:"quote_id"`
	BuyerLiquidAddress string `json:"buyer_liquid_address"`
	BuyerBolt11Invoice string `json:"buyer_bolt11_invoice,omitempty"`
}

// GetSwapRequest identifies a swap to fetch.
type GetSwapRequest struct {
	SwapID string `json:"swap_id"`
}

// CreateLightningPaymentRequest identifies the swap whose invoice should be
// paid.
type CreateLightningPaymentRequest struct {
	SwapID string `json:"swap_id"`
}

// CreateAssetClaimRequest identifies the swap to claim and an optional fee
// override.
type CreateAssetClaimRequest struct {
	SwapID       string  `json:"swap_id"`
	ClaimFeeSats *uint64 `json:"claim_fee_sats,omitempty"`
}

// SwapResponse is the wire form of swap.Swap.
type SwapResponse struct {
	SwapID             string  `json:"swap_id"`
	QuoteID            string  `json:"quote_id"`
	Direction          string  `json:"direction"`
	Bolt11Invoice      string  `json:"bolt11_invoice"`
	PaymentHash        string  `json:"payment_hash"`
	AssetID            string  `json:"asset_id"`
	AssetAmount        uint64  `json:"asset_amount,string"`
	TotalPriceMsat     uint64  `json:"total_price_msat,string"`
	BuyerLiquidAddress string  `json:"buyer_liquid_address"`
	FeeSubsidySats     uint64  `json:"fee_subsidy_sats,string"`
	RefundLockHeight   uint32  `json:"refund_lock_height"`
	P2WSHAddress       string  `json:"p2wsh_address"`
	WitnessScript      string  `json:"witness_script"`
	FundingTxID        string  `json:"funding_txid"`
	AssetVout          uint32  `json:"asset_vout"`
	LBTCVout           uint32  `json:"lbtc_vout"`
	MinFundingConfs    uint32  `json:"min_funding_confs"`
	LNPaymentID        string  `json:"ln_payment_id,omitempty"`
	LNPreimage         string  `json:"ln_preimage,omitempty"`
	ClaimTxID          string  `json:"claim_txid,omitempty"`
	Status             string  `json:"status"`
	RefundAttemptCount uint32  `json:"refund_attempt_count"`
}

func swapToWire(sw *swap.Swap) *SwapResponse {
	resp := &SwapResponse{
		SwapID:             sw.SwapID.String(),
		QuoteID:            sw.QuoteID.String(),
		Direction:          sw.Direction.String(),
		Bolt11Invoice:      sw.Bolt11Invoice,
		PaymentHash:        hex.EncodeToString(sw.PaymentHash[:]),
		AssetID:            sw.AssetID.String(),
		AssetAmount:        sw.AssetAmount,
		TotalPriceMsat:     sw.TotalPriceMsat,
		BuyerLiquidAddress: sw.BuyerLiquidAddress,
		FeeSubsidySats:     sw.FeeSubsidySats,
		RefundLockHeight:   sw.RefundLockHeight,
		P2WSHAddress:       sw.P2WSHAddress,
		WitnessScript:      hex.EncodeToString(sw.WitnessScript),
		FundingTxID:        hex.EncodeToString(sw.FundingTxID[:]),
		AssetVout:          sw.AssetVout,
		LBTCVout:           sw.LBTCVout,
		MinFundingConfs:    sw.MinFundingConfs,
		LNPaymentID:        sw.LNPaymentID,
		Status:             sw.Status.String(),
		RefundAttemptCount: sw.RefundAttemptCount,
	}
	if sw.LNPreimage != nil {
		resp.LNPreimage = hex.EncodeToString(sw.LNPreimage[:])
	}
	if sw.ClaimTxID != nil {
		resp.ClaimTxID = hex.EncodeToString(sw.ClaimTxID[:])
	}
	return resp
}

// ErrorResponse is the wire form of a failed request: a stable error code
// plus a short message, per spec.md §7 ("no stack traces leak to the
// wire").
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func parseAssetID(s string) (elements.AssetID, error) {
	return elements.AssetIDFromHex(s)
}

func parseDirection(s string) (swap.Direction, error) {
	return swap.ParseDirection(s)
}
