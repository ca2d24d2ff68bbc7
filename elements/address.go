package elements

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// AddressParams selects the bech32 human-readable prefix used for SegWit v0
// addresses on a given network. Liquid-style chains reuse BIP173 segwit
// encoding with their own HRPs instead of Bitcoin's "bc"/"tb"/"bcrt".
type AddressParams struct {
	Name            string
	Bech32HRPSegwit string
}

var (
	// MainNetParams is the production Liquid network.
	MainNetParams = AddressParams{Name: "liquidv1", Bech32HRPSegwit: "ex"}
	// TestNetParams is the public Liquid testnet.
	TestNetParams = AddressParams{Name: "liquidtestnet", Bech32HRPSegwit: "tex"}
	// RegtestParams is a local elements regtest chain.
	RegtestParams = AddressParams{Name: "elementsregtest", Bech32HRPSegwit: "ert"}
)

func (p AddressParams) chainCfgParams() *chaincfg.Params {
	return &chaincfg.Params{Bech32HRPSegwit: p.Bech32HRPSegwit}
}

// P2WSHAddress derives the SegWit v0 pay-to-witness-script-hash address of
// the given witness script under params.
func P2WSHAddress(witnessScript []byte, params AddressParams) (*btcutil.AddressWitnessScriptHash, error) {
	h := sha256.Sum256(witnessScript)
	addr, err := btcutil.NewAddressWitnessScriptHash(h[:], params.chainCfgParams())
	if err != nil {
		return nil, fmt.Errorf("derive p2wsh address: %w", err)
	}
	return addr, nil
}

// P2WPKHAddress derives the SegWit v0 pay-to-witness-pubkey-hash address for
// a 20-byte pubkey hash under params.
func P2WPKHAddress(pubKeyHash160 []byte, params AddressParams) (*btcutil.AddressWitnessPubKeyHash, error) {
	if len(pubKeyHash160) != 20 {
		return nil, fmt.Errorf("pubkey hash must be 20 bytes, got %d", len(pubKeyHash160))
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash160, params.chainCfgParams())
	if err != nil {
		return nil, fmt.Errorf("derive p2wpkh address: %w", err)
	}
	return addr, nil
}

// DecodeAddress parses a bech32 SegWit address string, failing unless it
// matches params' HRP and is a P2WSH or P2WPKH program.
func DecodeAddress(s string, params AddressParams) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(s, params.chainCfgParams())
	if err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	switch addr.(type) {
	case *btcutil.AddressWitnessScriptHash, *btcutil.AddressWitnessPubKeyHash:
		return addr, nil
	default:
		return nil, fmt.Errorf("unsupported address type %T", addr)
	}
}

// ScriptPubKeyFor returns the SegWit v0 script_pubkey (0x00 <push of the
// witness program>) for any address this package derives or decodes, be it
// a P2WSH or P2WPKH program.
func ScriptPubKeyFor(addr btcutil.Address) []byte {
	program := addr.ScriptAddress()
	out := make([]byte, 0, 2+len(program))
	out = append(out, 0x00, byte(len(program)))
	return append(out, program...)
}

// PubKeyHash160FromP2WPKHScript extracts the 20-byte pubkey hash from a
// script_pubkey that must have the exact form 0x00 0x14 <20 bytes>.
func PubKeyHash160FromP2WPKHScript(script []byte) ([]byte, error) {
	if len(script) != 22 || script[0] != 0x00 || script[1] != 0x14 {
		return nil, fmt.Errorf("not a p2wpkh script_pubkey")
	}
	out := make([]byte, 20)
	copy(out, script[2:])
	return out, nil
}
