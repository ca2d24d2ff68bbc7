package lnclient

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

// fakeNodeKey is a fixed, non-secret private key used to sign every invoice
// a Fake mints. It exists only so CreateInvoice's output is a real,
// parseable BOLT11 string; nothing about its value matters beyond being a
// valid scalar.
var fakeNodeKey = func() *btcec.PrivateKey {
	var seed [32]byte
	seed[31] = 1
	priv, _ := btcec.PrivKeyFromBytes(seed[:])
	return priv
}()

// FakePayment is a pending or completed payment tracked by Fake.
type FakePayment struct {
	Bolt11    string
	Hash      [32]byte
	Succeeded bool
}

// Fake is an in-memory Client used by tests and local development. Paying
// an invoice immediately "succeeds" with a preimage recorded against the
// invoice's payment hash at invoice-creation time, unless the test wires a
// different preimage via SetPreimage.
type Fake struct {
	mu sync.Mutex

	// preimageByHash maps a payment hash to the preimage that will be
	// revealed when that invoice is paid.
	preimageByHash map[[32]byte][32]byte
	hashByBolt11   map[string][32]byte
	payments       map[string]*FakePayment

	// FailPay, when set, makes PayInvoice return this error instead of
	// succeeding.
	FailPay error
	// DelayPreimage, when set, makes WaitPreimage block until it elapses
	// (still bounded by the caller's timeout/context).
	DelayPreimage time.Duration

	netParams *chaincfg.Params
}

// NewFake builds an empty Fake that mints invoices for netParams. A nil
// netParams defaults to regtest, matching the other fakes in this module.
func NewFake(netParams *chaincfg.Params) *Fake {
	if netParams == nil {
		netParams = &chaincfg.RegressionNetParams
	}
	return &Fake{
		preimageByHash: make(map[[32]byte][32]byte),
		hashByBolt11:   make(map[string][32]byte),
		payments:       make(map[string]*FakePayment),
		netParams:      netParams,
	}
}

// CreateInvoice generates a random preimage and returns a real,
// zpay32-encoded BOLT11 string signed by a fixed test node key, so callers
// that immediately re-decode their own invoice (as CreateSwap's
// ln_to_liquid path does) see the same behavior a live lnd node would give.
func (f *Fake) CreateInvoice(_ context.Context, amountMsat uint64, description string, expirySecs uint32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var preimage [32]byte
	if _, err := rand.Read(preimage[:]); err != nil {
		return "", fmt.Errorf("generate preimage: %w", err)
	}
	hash := sha256.Sum256(preimage[:])

	inv, err := zpay32.NewInvoice(
		f.netParams, hash, time.Now(),
		zpay32.Description(description),
		zpay32.Amount(lnwire.MilliSatoshi(amountMsat)),
		zpay32.Expiry(time.Duration(expirySecs)*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("build fake invoice: %w", err)
	}

	bolt11, err := inv.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			return ecdsa.SignCompact(fakeNodeKey, msg, true), nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode fake invoice: %w", err)
	}

	f.preimageByHash[hash] = preimage
	f.hashByBolt11[bolt11] = hash

	return bolt11, nil
}

// SetPreimage lets a test wire a specific preimage for a payment hash
// (e.g. one extracted from a real BOLT11 string built by another party) so
// that paying that invoice through this Fake reveals it.
func (f *Fake) SetPreimage(bolt11 string, hash, preimage [32]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preimageByHash[hash] = preimage
	f.hashByBolt11[bolt11] = hash
}

// PayInvoice immediately marks bolt11 as paid and returns a payment id.
func (f *Fake) PayInvoice(_ context.Context, bolt11 string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailPay != nil {
		return "", f.FailPay
	}

	hash, ok := f.hashByBolt11[bolt11]
	if !ok {
		return "", fmt.Errorf("fake ln client does not know invoice %q; call SetPreimage first", bolt11)
	}

	id := fmt.Sprintf("payment:%s", bolt11)
	f.payments[id] = &FakePayment{Bolt11: bolt11, Hash: hash, Succeeded: true}
	return id, nil
}

// WaitPreimage returns the preimage recorded for the payment's invoice hash
// at CreateInvoice/SetPreimage time.
func (f *Fake) WaitPreimage(ctx context.Context, paymentID string, timeout time.Duration) ([32]byte, error) {
	if f.DelayPreimage > 0 {
		select {
		case <-time.After(f.DelayPreimage):
		case <-ctx.Done():
			return [32]byte{}, ctx.Err()
		case <-time.After(timeout):
			return [32]byte{}, fmt.Errorf("timeout waiting for preimage: payment_id=%s", paymentID)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	payment, ok := f.payments[paymentID]
	if !ok || !payment.Succeeded {
		return [32]byte{}, fmt.Errorf("timeout waiting for preimage: payment_id=%s", paymentID)
	}

	preimage, ok := f.preimageByHash[payment.Hash]
	if !ok {
		return [32]byte{}, fmt.Errorf("no preimage known for payment_id=%s", paymentID)
	}
	return preimage, nil
}

var _ Client = (*Fake)(nil)
