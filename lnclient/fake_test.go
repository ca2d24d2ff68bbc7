package lnclient

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/ln-liquid-swap/invoice"
)

func TestFakeCreateInvoiceIsRealBolt11(t *testing.T) {
	fake := NewFake(&chaincfg.RegressionNetParams)

	bolt11, err := fake.CreateInvoice(context.Background(), 1_000_000, "swap:abc", 3600)
	require.NoError(t, err)

	decoded, err := invoice.Decode(bolt11, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	require.True(t, decoded.HasAmount)
	require.Equal(t, uint64(1_000_000), decoded.AmountMsat)
	require.Equal(t, "swap:abc", decoded.Description)
}

func TestFakePayInvoiceRevealsPreimage(t *testing.T) {
	fake := NewFake(nil)
	ctx := context.Background()

	bolt11, err := fake.CreateInvoice(ctx, 1_000_000, "swap:abc", 3600)
	require.NoError(t, err)

	paymentID, err := fake.PayInvoice(ctx, bolt11)
	require.NoError(t, err)

	preimage, err := fake.WaitPreimage(ctx, paymentID, time.Second)
	require.NoError(t, err)

	decoded, err := invoice.Decode(bolt11, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	hash := sha256.Sum256(preimage[:])
	require.Equal(t, decoded.PaymentHash, hash)
}

func TestFakePayInvoiceUnknownFails(t *testing.T) {
	fake := NewFake(nil)
	_, err := fake.PayInvoice(context.Background(), "nonexistent")
	require.Error(t, err)
}

func TestFakeFailPay(t *testing.T) {
	fake := NewFake(nil)
	fake.FailPay = context.DeadlineExceeded
	bolt11, err := fake.CreateInvoice(context.Background(), 1000, "x", 60)
	require.NoError(t, err)

	_, err = fake.PayInvoice(context.Background(), bolt11)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
