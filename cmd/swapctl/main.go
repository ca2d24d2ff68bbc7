// Command swapctl is a thin, scriptable client for swapd's JSON RPC
// surface: one subcommand per §6 operation, each printing its response as
// pretty-printed JSON.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/lightninglabs/ln-liquid-swap/swaprpc"
)

type globalOpts struct {
	BaseURL   string `long:"baseurl" description:"swapd JSON RPC base URL" default:"http://127.0.0.1:8420"`
	AuthToken string `long:"authtoken" description:"bearer token for this party" required:"true"`
}

type createQuoteCmd struct {
	Direction       string `long:"direction" description:"ln_to_liquid or liquid_to_ln" required:"true"`
	AssetID         string `long:"asset-id" description:"hex asset id" required:"true"`
	AssetAmount     uint64 `long:"asset-amount" required:"true"`
	MinFundingConfs uint32 `long:"min-funding-confs" default:"1"`
}

func (c *createQuoteCmd) Execute(_ []string) error {
	return postAndPrint("/v1/quotes", swaprpc.CreateQuoteRequest{
		Direction:       c.Direction,
		AssetID:         c.AssetID,
		AssetAmount:     c.AssetAmount,
		MinFundingConfs: c.MinFundingConfs,
	})
}

type getQuoteCmd struct {
	QuoteID string `long:"quote-id" required:"true"`
}

func (c *getQuoteCmd) Execute(_ []string) error {
	return getAndPrint("/v1/quotes/" + c.QuoteID)
}

type createSwapCmd struct {
	QuoteID            string `long:"quote-id" required:"true"`
	BuyerLiquidAddress string `long:"buyer-liquid-address" required:"true"`
	BuyerBolt11Invoice string `long:"buyer-bolt11-invoice"`
}

func (c *createSwapCmd) Execute(_ []string) error {
	return postAndPrint("/v1/swaps", swaprpc.CreateSwapRequest{
		QuoteID:            c.QuoteID,
		BuyerLiquidAddress: c.BuyerLiquidAddress,
		BuyerBolt11Invoice: c.BuyerBolt11Invoice,
	})
}

type getSwapCmd struct {
	SwapID string `long:"swap-id" required:"true"`
}

func (c *getSwapCmd) Execute(_ []string) error {
	return getAndPrint("/v1/swaps/" + c.SwapID)
}

type createLightningPaymentCmd struct {
	SwapID string `long:"swap-id" required:"true"`
}

func (c *createLightningPaymentCmd) Execute(_ []string) error {
	return postAndPrint(fmt.Sprintf("/v1/swaps/%s/pay", c.SwapID), nil)
}

type createAssetClaimCmd struct {
	SwapID       string  `long:"swap-id" required:"true"`
	ClaimFeeSats *uint64 `long:"claim-fee-sats"`
}

func (c *createAssetClaimCmd) Execute(_ []string) error {
	return postAndPrint(fmt.Sprintf("/v1/swaps/%s/claim", c.SwapID), swaprpc.CreateAssetClaimRequest{
		SwapID:       c.SwapID,
		ClaimFeeSats: c.ClaimFeeSats,
	})
}

var opts globalOpts

var httpClient = &http.Client{Timeout: 30 * time.Second}

func main() {
	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.AddCommand("create-quote", "create a quote", "", &createQuoteCmd{}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("get-quote", "fetch a quote", "", &getQuoteCmd{}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("create-swap", "fund a swap against a quote", "", &createSwapCmd{}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("get-swap", "fetch a swap", "", &getSwapCmd{}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("create-lightning-payment", "pay a swap's invoice", "", &createLightningPaymentCmd{}); err != nil {
		panic(err)
	}
	if _, err := parser.AddCommand("create-asset-claim", "claim a swap's funded asset leg", "", &createAssetClaimCmd{}); err != nil {
		panic(err)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "swapctl:", err)
		os.Exit(1)
	}
}

func postAndPrint(path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(http.MethodPost, opts.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return doAndPrint(req)
}

func getAndPrint(path string) error {
	req, err := http.NewRequest(http.MethodGet, opts.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return doAndPrint(req)
}

func doAndPrint(req *http.Request) error {
	req.Header.Set("authorization", "Bearer "+opts.AuthToken)
	if req.Body != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Not JSON; print as-is rather than failing the whole command.
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(pretty.String())

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return nil
}
