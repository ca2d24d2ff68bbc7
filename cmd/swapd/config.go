package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/swap"
)

const (
	defaultListenAddr = "127.0.0.1:8420"
	defaultDBPath     = "swapd.db"
)

// offerConfig is the flat, flag-friendly mirror of swap.Offer. A daemon
// only ever quotes one offer, set at startup; spec.md §9 leaves updating an
// offer without a restart as an open question this reference
// implementation does not resolve.
type offerConfig struct {
	AssetID               string `long:"asset-id" description:"hex asset id this offer quotes" required:"true"`
	PriceMsatPerAssetUnit uint64 `long:"price-msat-per-unit" description:"millisatoshis charged per asset unit" required:"true"`
	FeeSubsidySats        uint64 `long:"fee-subsidy-sats" description:"L-BTC fee subsidy attached to every funding transaction" default:"1000"`
	RefundDeltaBlocks     uint32 `long:"refund-delta-blocks" description:"blocks after the tip height at swap creation before a refund is valid" default:"144"`
	InvoiceExpirySecs     uint32 `long:"invoice-expiry-secs" description:"BOLT11 invoice expiry this offer issues" default:"3600"`
	MaxMinFundingConfs    uint32 `long:"max-min-funding-confs" description:"largest min_funding_confs a quote may request" default:"6"`
	Directions            string `long:"directions" description:"comma-separated supported directions (ln_to_liquid,liquid_to_ln)" default:"ln_to_liquid,liquid_to_ln"`
}

func (o offerConfig) parse() (swap.Offer, error) {
	assetID, err := elements.AssetIDFromHex(o.AssetID)
	if err != nil {
		return swap.Offer{}, fmt.Errorf("asset-id: %w", err)
	}

	directions, err := parseDirections(o.Directions)
	if err != nil {
		return swap.Offer{}, err
	}

	return swap.Offer{
		AssetID:               assetID,
		SupportedDirections:   directions,
		PriceMsatPerAssetUnit: o.PriceMsatPerAssetUnit,
		FeeSubsidySats:        o.FeeSubsidySats,
		RefundDeltaBlocks:     o.RefundDeltaBlocks,
		InvoiceExpirySecs:     o.InvoiceExpirySecs,
		MaxMinFundingConfs:    o.MaxMinFundingConfs,
	}, nil
}

// config is the top-level swapd configuration, parsed from command-line
// flags by jessevdk/go-flags.
type config struct {
	ListenAddr string `long:"listenaddr" description:"address the JSON RPC surface listens on" default:"127.0.0.1:8420"`
	DBPath     string `long:"dbpath" description:"path to the sqlite swap database" default:"swapd.db"`
	LogLevel   string `long:"loglevel" description:"btclog level: trace, debug, info, warn, error, critical, off" default:"info"`

	Network string `long:"network" description:"liquid network: regtest, testnet, mainnet" default:"regtest"`

	Seed          string `long:"seed" description:"hex-encoded 32+ byte key ring seed" required:"true"`
	SellerToken   string `long:"sellertoken" description:"bearer token authenticating the seller" required:"true"`
	BuyerToken    string `long:"buyertoken" description:"bearer token authenticating the buyer" required:"true"`
	PolicyAssetID string `long:"policy-asset-id" description:"hex asset id of the chain's native fee asset (e.g. L-BTC)" required:"true"`

	BuyerKeyIndex  uint32 `long:"buyerkeyindex" description:"BIP32 index the buyer's receive/claim/refund key is derived at" default:"0"`
	SellerKeyIndex uint32 `long:"sellerkeyindex" description:"BIP32 index the seller's receive/claim/refund key is derived at" default:"1"`

	RefundWatcherIntervalSecs uint32 `long:"refundwatcherintervalsecs" description:"refund watcher poll cadence in seconds" default:"5"`

	Offer offerConfig `group:"offer" namespace:"offer"`
}

// loadConfig parses command-line flags into a config. No config file is
// read: every setting comes from its flag or the flag's default.
func loadConfig() (*config, error) {
	cfg := &config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	return cfg, nil
}
