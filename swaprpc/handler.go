package swaprpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lightninglabs/ln-liquid-swap/swap"
	"github.com/lightninglabs/ln-liquid-swap/swapservice"
)

// Handler is an http.Handler exposing the six §4.4 operations as unary
// JSON-over-HTTP endpoints under a fixed path prefix:
//
//	POST /v1/quotes              -> CreateQuote
//	GET  /v1/quotes/{quote_id}    -> GetQuote
//	POST /v1/swaps               -> CreateSwap
//	GET  /v1/swaps/{swap_id}      -> GetSwap
//	POST /v1/swaps/{swap_id}/pay  -> CreateLightningPayment
//	POST /v1/swaps/{swap_id}/claim -> CreateAssetClaim
type Handler struct {
	svc *swapservice.Service
	mux *http.ServeMux
}

// New builds a Handler wired to svc.
func New(svc *swapservice.Service) *Handler {
	h := &Handler{svc: svc, mux: http.NewServeMux()}
	h.mux.HandleFunc("/v1/quotes", h.handleQuotesCollection)
	h.mux.HandleFunc("/v1/quotes/", h.handleQuoteByID)
	h.mux.HandleFunc("/v1/swaps", h.handleSwapsCollection)
	h.mux.HandleFunc("/v1/swaps/", h.handleSwapByIDOrAction)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// bearerToken extracts the token from "authorization: Bearer <token>",
// returning "" if the header is missing or malformed (treated the same as
// a missing token by Service.authenticate, which fails Unauthenticated).
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

func (h *Handler) handleQuotesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "method not allowed"))
		return
	}

	var req CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid request body: %s", err))
		return
	}

	direction, err := parseDirection(req.Direction)
	if err != nil {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid direction: %s", err))
		return
	}
	assetID, err := parseAssetID(req.AssetID)
	if err != nil {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid asset_id: %s", err))
		return
	}

	q, err := h.svc.CreateQuote(r.Context(), bearerToken(r), direction, assetID, req.AssetAmount, req.MinFundingConfs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteToWire(q))
}

func (h *Handler) handleQuoteByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "method not allowed"))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/quotes/")
	quoteID, err := parseUUID(id)
	if err != nil {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid quote_id: %s", err))
		return
	}

	q, err := h.svc.GetQuote(r.Context(), bearerToken(r), quoteID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteToWire(q))
}

func (h *Handler) handleSwapsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "method not allowed"))
		return
	}

	var req CreateSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid request body: %s", err))
		return
	}

	quoteID, err := parseUUID(req.QuoteID)
	if err != nil {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid quote_id: %s", err))
		return
	}

	sw, err := h.svc.CreateSwap(r.Context(), bearerToken(r), quoteID, req.BuyerLiquidAddress, req.BuyerBolt11Invoice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swapToWire(sw))
}

// handleSwapByIDOrAction dispatches GET /v1/swaps/{id}, POST
// /v1/swaps/{id}/pay and POST /v1/swaps/{id}/claim — the only three
// sub-resources under the swaps collection.
func (h *Handler) handleSwapByIDOrAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/swaps/")
	parts := strings.SplitN(rest, "/", 2)

	swapID, err := parseUUID(parts[0])
	if err != nil {
		writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid swap_id: %s", err))
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getSwap(w, r, swapID)
	case len(parts) == 2 && parts[1] == "pay" && r.Method == http.MethodPost:
		h.createLightningPayment(w, r, swapID)
	case len(parts) == 2 && parts[1] == "claim" && r.Method == http.MethodPost:
		h.createAssetClaim(w, r, swapID)
	default:
		writeError(w, swap.NewError(swap.KindInvalidArgument, "unknown route"))
	}
}

func (h *Handler) getSwap(w http.ResponseWriter, r *http.Request, swapID uuid.UUID) {
	sw, err := h.svc.GetSwap(r.Context(), bearerToken(r), swapID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swapToWire(sw))
}

func (h *Handler) createLightningPayment(w http.ResponseWriter, r *http.Request, swapID uuid.UUID) {
	sw, err := h.svc.CreateLightningPayment(r.Context(), bearerToken(r), swapID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swapToWire(sw))
}

func (h *Handler) createAssetClaim(w http.ResponseWriter, r *http.Request, swapID uuid.UUID) {
	var req CreateAssetClaimRequest
	if r.Body != nil {
		// An empty body is valid (claim_fee_sats is optional); only a
		// malformed non-empty body is an error.
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, swap.NewError(swap.KindInvalidArgument, "invalid request body: %s", err))
			return
		}
	}

	sw, err := h.svc.CreateAssetClaim(r.Context(), bearerToken(r), swapID, req.ClaimFeeSats)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, swapToWire(sw))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a swap.Error's Kind onto an HTTP status and writes the
// stable error code + short message; no stack trace ever reaches the wire
// (spec.md §7).
func writeError(w http.ResponseWriter, err error) {
	var swapErr *swap.Error
	if !errors.As(err, &swapErr) {
		swapErr = swap.NewError(swap.KindInternal, "%s", err)
	}

	writeJSON(w, statusForKind(swapErr.Kind), ErrorResponse{
		Code:    swapErr.Kind.String(),
		Message: swapErr.Message,
	})
}

func statusForKind(kind swap.Kind) int {
	switch kind {
	case swap.KindInvalidArgument, swap.KindPreimageMismatch:
		return http.StatusBadRequest
	case swap.KindFailedPrecondition:
		return http.StatusConflict
	case swap.KindNotFound:
		return http.StatusNotFound
	case swap.KindUnauthenticated:
		return http.StatusUnauthorized
	case swap.KindPermissionDenied:
		return http.StatusForbidden
	case swap.KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
