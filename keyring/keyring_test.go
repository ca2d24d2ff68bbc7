package keyring

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/keychain"
	"github.com/stretchr/testify/require"
)

func testKeyRing(t *testing.T) *KeyRing {
	t.Helper()
	kr, err := New(&Config{
		NetParams: &chaincfg.RegressionNetParams,
		Seed:      make([]byte, 32),
	})
	require.NoError(t, err)
	return kr
}

func TestDeriveKeyDeterministic(t *testing.T) {
	kr := testKeyRing(t)
	loc := keychain.KeyLocator{Family: KeyFamilyBuyer, Index: 0}

	k1, err := kr.DeriveKey(loc)
	require.NoError(t, err)
	k2, err := kr.DeriveKey(loc)
	require.NoError(t, err)
	require.Equal(t, k1.Serialize(), k2.Serialize())
}

func TestDeriveKeyDistinctPerFamilyAndIndex(t *testing.T) {
	kr := testKeyRing(t)

	buyer0, err := kr.DeriveKey(keychain.KeyLocator{Family: KeyFamilyBuyer, Index: 0})
	require.NoError(t, err)
	seller0, err := kr.DeriveKey(keychain.KeyLocator{Family: KeyFamilySeller, Index: 0})
	require.NoError(t, err)
	buyer1, err := kr.DeriveKey(keychain.KeyLocator{Family: KeyFamilyBuyer, Index: 1})
	require.NoError(t, err)

	require.NotEqual(t, buyer0.Serialize(), seller0.Serialize())
	require.NotEqual(t, buyer0.Serialize(), buyer1.Serialize())
}

func TestPubKeyHash160Length(t *testing.T) {
	kr := testKeyRing(t)
	hash, err := kr.PubKeyHash160(keychain.KeyLocator{Family: KeyFamilyBuyer, Index: 0})
	require.NoError(t, err)
	require.Len(t, hash, 20)
}
