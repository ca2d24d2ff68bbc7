// Package swapservice implements the §4.4 swap state machine and the six
// RPC operations: validating requests, orchestrating
// quote→swap→fund→pay→claim, enforcing role-based authorization,
// persisting records, and deriving the keys and transactions that move
// value across both ledgers.
package swapservice

import (
	"fmt"
	"time"

	"github.com/lightninglabs/ln-liquid-swap/swap"
)

// Default timing constants from spec.md §5.
const (
	DefaultFundingConfirmationTimeout = 300 * time.Second
	DefaultPaymentTimeout             = 60 * time.Second
	DefaultPaymentPollInterval        = 200 * time.Millisecond
	DefaultClaimFeeSats               = 500
)

// Config configures a Service.
type Config struct {
	// Offer is the static, config-derived pricing and policy surface this
	// service quotes from.
	Offer swap.Offer

	// SellerToken and BuyerToken are the bearer tokens that authenticate
	// the two counterparties. Both must be non-empty and distinct.
	SellerToken string
	BuyerToken  string

	// BuyerKeyIndex and SellerKeyIndex are the fixed BIP32 indices each
	// party's claim/refund/receive key is derived at. Rotating these
	// between funding and refund is not supported (spec.md §9); Service
	// refuses to start if a live swap's persisted pubkey hash no longer
	// matches what these indices derive, see CheckKeyRotation.
	BuyerKeyIndex  uint32
	SellerKeyIndex uint32

	// FundingConfirmationTimeout bounds CreateSwap's wait for the funding
	// transaction to reach MinFundingConfs. Zero uses
	// DefaultFundingConfirmationTimeout.
	FundingConfirmationTimeout time.Duration

	// PaymentTimeout bounds CreateLightningPayment's wait for a
	// preimage. Zero uses DefaultPaymentTimeout.
	PaymentTimeout time.Duration

	// PaymentPollInterval is accepted here, but Service does not read it:
	// CreateLightningPayment makes a single WaitPreimage call bounded by
	// PaymentTimeout, and how often that call polls is up to the
	// lnclient.Client implementation.
	PaymentPollInterval time.Duration

	// DefaultClaimFeeSats is used by CreateAssetClaim when the caller
	// does not specify claim_fee_sats. Zero uses DefaultClaimFeeSats.
	DefaultClaimFeeSats uint64

	// ConfirmationPollInterval paces CreateSwap's wait for funding
	// confirmations. Zero uses DefaultConfirmationPollInterval.
	ConfirmationPollInterval time.Duration
}

// DefaultConfirmationPollInterval is how often CreateSwap re-checks the
// funding transaction's confirmation count while waiting for
// MinFundingConfs.
const DefaultConfirmationPollInterval = 2 * time.Second

// Validate checks the invariants a Config must hold before a Service can
// be built from it.
func (c Config) Validate() error {
	if err := c.Offer.Validate(); err != nil {
		return fmt.Errorf("invalid offer: %w", err)
	}
	if c.SellerToken == "" || c.BuyerToken == "" {
		return fmt.Errorf("seller and buyer tokens must be non-empty")
	}
	if c.SellerToken == c.BuyerToken {
		return fmt.Errorf("seller and buyer tokens must be distinct")
	}
	return nil
}

func (c Config) fundingConfirmationTimeout() time.Duration {
	if c.FundingConfirmationTimeout > 0 {
		return c.FundingConfirmationTimeout
	}
	return DefaultFundingConfirmationTimeout
}

func (c Config) paymentTimeout() time.Duration {
	if c.PaymentTimeout > 0 {
		return c.PaymentTimeout
	}
	return DefaultPaymentTimeout
}

func (c Config) paymentPollInterval() time.Duration {
	if c.PaymentPollInterval > 0 {
		return c.PaymentPollInterval
	}
	return DefaultPaymentPollInterval
}

func (c Config) defaultClaimFeeSats() uint64 {
	if c.DefaultClaimFeeSats > 0 {
		return c.DefaultClaimFeeSats
	}
	return DefaultClaimFeeSats
}

func (c Config) confirmationPollInterval() time.Duration {
	if c.ConfirmationPollInterval > 0 {
		return c.ConfirmationPollInterval
	}
	return DefaultConfirmationPollInterval
}
