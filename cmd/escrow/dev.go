package main

import (
	"github.com/urfave/cli/v2"
)

var mint = cli.Command{
	Name:  "mint",
	Usage: "mint an NFT on a daemon running with the dev faucet enabled",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "nft_address",
			Usage:    "the collection of the NFT",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "nft_id",
			Usage: "the id of the NFT",
		},
		&cli.StringFlag{
			Name:     "owner",
			Usage:    "the address receiving the NFT",
			Required: true,
		},
	},
	Action: mintAction,
}

var fund = cli.Command{
	Name:  "fund",
	Usage: "fund an address on a daemon running with the dev faucet enabled",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "address",
			Usage:    "the address to fund",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "amount",
			Usage: "the amount of currency to credit",
		},
	},
	Action: fundAction,
}

func mintAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post("/v1/dev/nfts", map[string]interface{}{
		"nft_address": ctx.String("nft_address"),
		"nft_id":      ctx.Uint64("nft_id"),
		"owner":       ctx.String("owner"),
	}, false)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func fundAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post("/v1/dev/balances", map[string]interface{}{
		"address": ctx.String("address"),
		"amount":  ctx.Uint64("amount"),
	}, false)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
