package invoice

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("not-a-real-invoice", &chaincfg.RegressionNetParams)
	require.Error(t, err)
}

func TestPaymentHashPropagatesDecodeError(t *testing.T) {
	_, err := PaymentHash("not-a-real-invoice", &chaincfg.RegressionNetParams)
	require.Error(t, err)
}

func TestAmountMsatPropagatesDecodeError(t *testing.T) {
	_, _, err := AmountMsat("not-a-real-invoice", &chaincfg.RegressionNetParams)
	require.Error(t, err)
}

func TestIsExpiredPropagatesDecodeError(t *testing.T) {
	_, err := IsExpired("not-a-real-invoice", &chaincfg.RegressionNetParams, time.Now())
	require.Error(t, err)
}
