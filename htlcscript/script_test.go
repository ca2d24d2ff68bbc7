package htlcscript

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/ln-liquid-swap/elements"
)

func testSpec() HtlcSpec {
	var s HtlcSpec
	for i := range s.PaymentHash {
		s.PaymentHash[i] = byte(i + 1)
	}
	for i := range s.ClaimerPKH {
		s.ClaimerPKH[i] = byte(i + 100)
	}
	for i := range s.RefunderPKH {
		s.RefunderPKH[i] = byte(i + 200)
	}
	s.RefundLockHeight = 800_000
	return s
}

func TestWitnessScriptRoundTrip(t *testing.T) {
	spec := testSpec()

	script, err := BuildWitnessScript(spec)
	require.NoError(t, err)

	got, err := ParseWitnessScript(script)
	require.NoError(t, err)
	require.Equal(t, spec, got)
}

func TestWitnessScriptRoundTripSmallLockHeight(t *testing.T) {
	spec := testSpec()
	for _, h := range []uint32{0, 1, 16, 17, 255, 256} {
		spec.RefundLockHeight = h
		script, err := BuildWitnessScript(spec)
		require.NoError(t, err)
		got, err := ParseWitnessScript(script)
		require.NoError(t, err)
		require.Equal(t, h, got.RefundLockHeight, "lock height %d", h)
	}
}

func TestWitnessScriptMutationBreaksParse(t *testing.T) {
	spec := testSpec()
	script, err := BuildWitnessScript(spec)
	require.NoError(t, err)

	mutated := append([]byte(nil), script...)
	// Flip a byte inside the payment hash push.
	mutated[7] ^= 0xff

	got, err := ParseWitnessScript(mutated)
	require.NoError(t, err)
	require.NotEqual(t, spec.PaymentHash, got.PaymentHash)
}

func TestWitnessScriptTrailingDataRejected(t *testing.T) {
	spec := testSpec()
	script, err := BuildWitnessScript(spec)
	require.NoError(t, err)

	script = append(script, 0x51)
	_, err = ParseWitnessScript(script)
	require.ErrorIs(t, err, MalformedScript)
}

func TestP2WSHAddress(t *testing.T) {
	spec := testSpec()
	addr1, script1, err := spec.P2WSHAddress(elements.RegtestParams)
	require.NoError(t, err)
	require.NotEmpty(t, addr1)

	pwshAddr, err := elements.P2WSHAddress(script1, elements.RegtestParams)
	require.NoError(t, err)
	require.Equal(t, addr1, pwshAddr.EncodeAddress())
}
