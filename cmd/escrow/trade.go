package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var (
	tradeIDFlag = &cli.Uint64Flag{
		Name:     "trade_id",
		Usage:    "the id of the trade",
		Required: true,
	}

	createTradeFlags = []cli.Flag{
		&cli.StringFlag{
			Name:     "bidder_nft_address",
			Usage:    "the collection of the NFT offered by the bidder",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "bidder_nft_id",
			Usage: "the id of the NFT offered by the bidder",
		},
		&cli.StringFlag{
			Name:     "asker_nft_address",
			Usage:    "the collection of the NFT offered by the asker",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "asker_nft_id",
			Usage: "the id of the NFT offered by the asker",
		},
		&cli.Int64Flag{
			Name:  "duration",
			Usage: "the number of seconds after which the trade expires",
			Value: 600,
		},
		&cli.Uint64Flag{
			Name:  "price",
			Usage: "the amount of currency paid by the bidder on top of its NFT",
		},
	}
)

var createbid = cli.Command{
	Name:   "createbid",
	Usage:  "create a trade where the configured caller is the bidder",
	Flags:  createTradeFlags,
	Action: createBidAction,
}

var createask = cli.Command{
	Name:   "createask",
	Usage:  "create a trade where the configured caller is the asker",
	Flags:  createTradeFlags,
	Action: createAskAction,
}

var stake = cli.Command{
	Name:  "stake",
	Usage: "move one of the trade's NFTs into escrow",
	Flags: []cli.Flag{
		tradeIDFlag,
		&cli.Uint64Flag{
			Name:  "nft_id",
			Usage: "the id of the NFT to stake",
		},
		&cli.StringFlag{
			Name:  "nft_address",
			Usage: "the collection of the NFT, only required if both NFTs share the same id",
		},
	},
	Action: stakeAction,
}

var pay = cli.Command{
	Name:  "pay",
	Usage: "pay the price of the trade as bidder",
	Flags: []cli.Flag{
		tradeIDFlag,
		&cli.Uint64Flag{
			Name:  "amount",
			Usage: "the amount of currency to pay, must match the price",
		},
	},
	Action: payAction,
}

var settle = cli.Command{
	Name:   "settle",
	Usage:  "settle a trade whose NFTs are staked and price is paid",
	Flags:  []cli.Flag{tradeIDFlag},
	Action: settleAction,
}

var reclaim = cli.Command{
	Name:   "reclaim",
	Usage:  "get back what was staked into an expired trade",
	Flags:  []cli.Flag{tradeIDFlag},
	Action: reclaimAction,
}

var trade = cli.Command{
	Name:   "trade",
	Usage:  "get info about a trade",
	Flags:  []cli.Flag{tradeIDFlag},
	Action: tradeAction,
}

var trades = cli.Command{
	Name:  "trades",
	Usage: "list the trades, optionally filtered by participant",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "address",
			Usage: "the address of the participant to filter trades by",
		},
	},
	Action: tradesAction,
}

func createBidAction(ctx *cli.Context) error {
	return createTrade(ctx, "/v1/trades/bid")
}

func createAskAction(ctx *cli.Context) error {
	return createTrade(ctx, "/v1/trades/ask")
}

func createTrade(ctx *cli.Context, path string) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post(path, map[string]interface{}{
		"bidder_nft_address": ctx.String("bidder_nft_address"),
		"bidder_nft_id":      ctx.Uint64("bidder_nft_id"),
		"asker_nft_address":  ctx.String("asker_nft_address"),
		"asker_nft_id":       ctx.Uint64("asker_nft_id"),
		"duration":           ctx.Int64("duration"),
		"price":              ctx.Uint64("price"),
	}, true)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func stakeAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post(tradePath(ctx, "stake"), map[string]interface{}{
		"nft_id":      ctx.Uint64("nft_id"),
		"nft_address": ctx.String("nft_address"),
	}, true)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func payAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post(tradePath(ctx, "pay"), map[string]interface{}{
		"amount": ctx.Uint64("amount"),
	}, true)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func settleAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post(tradePath(ctx, "settle"), nil, false)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func reclaimAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post(tradePath(ctx, "reclaim"), nil, true)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func tradeAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.get(tradePath(ctx, ""))
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func tradesAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	path := "/v1/trades"
	if address := ctx.String("address"); address != "" {
		path += "?address=" + url.QueryEscape(address)
	}
	reply, err := client.get(path)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func tradePath(ctx *cli.Context, action string) string {
	path := fmt.Sprintf("/v1/trades/%d", ctx.Uint64("trade_id"))
	if action != "" {
		path += "/" + action
	}
	return path
}
