package swapservice

import (
	"github.com/lightningnetwork/lnd/keychain"

	"github.com/lightninglabs/ln-liquid-swap/liquidwallet"
	"github.com/lightninglabs/ln-liquid-swap/swap"
)

// RefunderWallet implements refundwatcher.Resolver: it returns the wallet
// belonging to the party this swap's direction designates as
// liquid_refunder (§4.4 role table).
func (s *Service) RefunderWallet(sw *swap.Swap) liquidwallet.Wallet {
	party := swap.PartyForRole(sw.Direction, swap.RoleLiquidRefunder)
	return s.walletFor(party)
}

// RefunderKeyLocator implements refundwatcher.Resolver: it returns the
// configured BIP32 locator the refunder signs and derives its receive
// address with.
func (s *Service) RefunderKeyLocator(sw *swap.Swap) keychain.KeyLocator {
	party := swap.PartyForRole(sw.Direction, swap.RoleLiquidRefunder)
	return s.keyLocator(party)
}
