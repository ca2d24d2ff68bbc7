package htlctx

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/htlcscript"
)

func testFunding() HtlcFunding {
	return HtlcFunding{
		AssetVout:      0,
		LBTCVout:       1,
		AssetID:        elements.AssetID{1},
		AssetAmount:    1000,
		PolicyAsset:    elements.AssetID{2},
		FeeSubsidySats: 10_000,
	}
}

func TestBuildClaimTxFeeArithmetic(t *testing.T) {
	funding := testFunding()
	recipient := []byte{0x00, 0x14, 1, 2, 3}

	tx, err := BuildClaimTx(nil, funding, recipient, 500)
	require.NoError(t, err)

	require.Equal(t, funding.AssetAmount, tx.Outputs[0].Value)
	require.Equal(t, funding.FeeSubsidySats-500, tx.Outputs[1].Value)
	require.Equal(t, uint64(500), tx.Outputs[2].Value)
	require.True(t, tx.Outputs[2].IsFee())
	require.Equal(t, funding.FeeSubsidySats, tx.Outputs[1].Value+tx.Outputs[2].Value)

	require.EqualValues(t, 0, tx.LockTime)
	for _, in := range tx.Inputs {
		require.EqualValues(t, sequenceClaimNoLocktime, in.Sequence)
	}
}

func TestBuildRefundTxLocktime(t *testing.T) {
	funding := testFunding()
	recipient := []byte{0x00, 0x14, 9, 9, 9}

	tx, err := BuildRefundTx(nil, funding, recipient, 500, 800_000)
	require.NoError(t, err)

	require.EqualValues(t, 800_000, tx.LockTime)
	for _, in := range tx.Inputs {
		require.EqualValues(t, sequenceEnableLockTimeNoRBF, in.Sequence)
	}
}

func TestBuildTxRejectsFeeNotBelowSubsidy(t *testing.T) {
	funding := testFunding()
	_, err := BuildClaimTx(nil, funding, []byte{0x00, 0x14}, funding.FeeSubsidySats)
	require.ErrorIs(t, err, ErrInvalidFee)
}

func TestSignClaimWitnessShape(t *testing.T) {
	funding := testFunding()
	recipient := []byte{0x00, 0x14, 1, 2, 3}
	tx, err := BuildClaimTx(nil, funding, recipient, 500)
	require.NoError(t, err)

	spec := htlcscript.HtlcSpec{RefundLockHeight: 100}
	preimage := sha256.Sum256([]byte("secret"))
	hash := sha256.Sum256(preimage[:])
	spec.PaymentHash = hash
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubHash := [20]byte{1, 2, 3}
	spec.ClaimerPKH = pubHash
	spec.RefunderPKH = [20]byte{9, 9, 9}

	script, err := htlcscriptBuild(spec)
	require.NoError(t, err)

	require.NoError(t, SignClaim(tx, funding, script, key, preimage))
	for _, in := range tx.Inputs {
		require.Len(t, in.Witness, 5)
		require.Equal(t, []byte{0x01}, in.Witness[3])
		require.Equal(t, script, in.Witness[4])
		require.Equal(t, preimage[:], in.Witness[2])
	}
}

func TestSignRefundWitnessShape(t *testing.T) {
	funding := testFunding()
	recipient := []byte{0x00, 0x14, 9, 9, 9}
	tx, err := BuildRefundTx(nil, funding, recipient, 500, 800_000)
	require.NoError(t, err)

	spec := htlcscript.HtlcSpec{
		RefundLockHeight: 800_000,
		PaymentHash:      sha256.Sum256([]byte("x")),
		ClaimerPKH:       [20]byte{1},
		RefunderPKH:      [20]byte{2},
	}
	script, err := htlcscriptBuild(spec)
	require.NoError(t, err)

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	require.NoError(t, SignRefund(tx, funding, script, key))

	for _, in := range tx.Inputs {
		require.Len(t, in.Witness, 4)
		require.Empty(t, in.Witness[2])
		require.Equal(t, script, in.Witness[3])
	}
}

func htlcscriptBuild(spec htlcscript.HtlcSpec) ([]byte, error) {
	return htlcscript.BuildWitnessScript(spec)
}
