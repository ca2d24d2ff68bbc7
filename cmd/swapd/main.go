// Command swapd runs the swap operator daemon: it quotes a single offer,
// drives the quote/swap/pay/claim state machine over a JSON HTTP surface,
// and refunds any HTLC whose locktime elapses unclaimed.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btclog"

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/keyring"
	"github.com/lightninglabs/ln-liquid-swap/lnclient"
	"github.com/lightninglabs/ln-liquid-swap/liquidwallet"
	"github.com/lightninglabs/ln-liquid-swap/refundwatcher"
	"github.com/lightninglabs/ln-liquid-swap/swap"
	"github.com/lightninglabs/ln-liquid-swap/swapdb/sqlitestore"
	"github.com/lightninglabs/ln-liquid-swap/swaprpc"
	"github.com/lightninglabs/ln-liquid-swap/swapservice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swapd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBackend := btclog.NewBackend(os.Stdout)
	level, ok := btclog.LevelFromString(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("loglevel: unknown level %q", cfg.LogLevel)
	}

	rootLog := logBackend.Logger("SWPD")
	rootLog.SetLevel(level)

	svcLog := logBackend.Logger("SWSV")
	svcLog.SetLevel(level)
	swapservice.UseLogger(svcLog)

	watcherLog := logBackend.Logger("REFW")
	watcherLog.SetLevel(level)
	refundwatcher.UseLogger(watcherLog)

	lnNetParams, addrParams, err := networkParams(cfg.Network)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}

	offer, err := cfg.Offer.parse()
	if err != nil {
		return fmt.Errorf("offer: %w", err)
	}

	seed, err := hex.DecodeString(cfg.Seed)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	kr, err := keyring.New(&keyring.Config{NetParams: lnNetParams, Seed: seed})
	if err != nil {
		return fmt.Errorf("build key ring: %w", err)
	}

	store, err := sqlitestore.Open(sqlitestore.Config{DSN: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	rootLog.Infof("store opened: %s", cfg.DBPath)

	// No production Elements-node or lnd-gRPC client lives in this
	// module (see DESIGN.md): both counterparties' wallets and LN nodes
	// are the in-memory fakes, seeded from the same chain params a real
	// backend would report. Swapping in a real liquidwallet.Wallet/
	// lnclient.Client is wiring-only; the rest of the daemon is unchanged.
	policyAsset, err := elements.AssetIDFromHex(cfg.PolicyAssetID)
	if err != nil {
		return fmt.Errorf("policy-asset-id: %w", err)
	}
	sellerWallet := liquidwallet.NewFake(addrParams, policyAsset)
	buyerWallet := liquidwallet.NewFake(addrParams, policyAsset)
	sellerWallet.SetHeight(1)
	buyerWallet.SetHeight(1)

	sellerLN := lnclient.NewFake(lnNetParams)
	buyerLN := sellerLN

	svcCfg := swapservice.Config{
		Offer:          offer,
		SellerToken:    cfg.SellerToken,
		BuyerToken:     cfg.BuyerToken,
		BuyerKeyIndex:  cfg.BuyerKeyIndex,
		SellerKeyIndex: cfg.SellerKeyIndex,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := swapservice.New(ctx, svcCfg, swapservice.Deps{
		KeyRing:      kr,
		LNNetParams:  lnNetParams,
		SellerWallet: sellerWallet,
		BuyerWallet:  buyerWallet,
		SellerLN:     sellerLN,
		BuyerLN:      buyerLN,
		Store:        store,
	})
	if err != nil {
		return fmt.Errorf("build swap service: %w", err)
	}
	rootLog.Info("swap service started, key rotation check passed")

	watcher := refundwatcher.New(refundwatcher.Config{
		Store:    store,
		KeyRing:  kr,
		Resolver: svc,
		Interval: time.Duration(cfg.RefundWatcherIntervalSecs) * time.Second,
	})
	watcher.Start()
	defer watcher.Stop()
	rootLog.Infof("refund watcher started, interval=%ds", cfg.RefundWatcherIntervalSecs)

	handler := swaprpc.New(svc)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		rootLog.Infof("JSON RPC listening on %s", cfg.ListenAddr)
		serveErrCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigCh:
		rootLog.Infof("received %s, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		rootLog.Errorf("error during http shutdown: %v", err)
	}

	rootLog.Info("goodbye")
	return nil
}

func networkParams(network string) (*chaincfg.Params, elements.AddressParams, error) {
	switch strings.ToLower(network) {
	case "regtest":
		return &chaincfg.RegressionNetParams, elements.RegtestParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, elements.TestNetParams, nil
	case "mainnet":
		return &chaincfg.MainNetParams, elements.MainNetParams, nil
	default:
		return nil, elements.AddressParams{}, fmt.Errorf("unknown network %q", network)
	}
}

func parseDirections(s string) ([]swap.Direction, error) {
	parts := strings.Split(s, ",")
	directions := make([]swap.Direction, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d, err := swap.ParseDirection(p)
		if err != nil {
			return nil, fmt.Errorf("directions: %w", err)
		}
		directions = append(directions, d)
	}
	if len(directions) == 0 {
		return nil, fmt.Errorf("directions: at least one direction is required")
	}
	return directions, nil
}
