package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"
)

var addwebhook = cli.Command{
	Name:  "addwebhook",
	Usage: "add a webhook registered for some event",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "the endpoint where to notify the webhook",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "secret",
			Usage: "the eventual secret to authenticate requests",
			Value: "",
		},
		&cli.StringFlag{
			Name: "event",
			Usage: "the event for which the webhook gets notified: BID_CREATED, " +
				"ASK_CREATED, NFT_STAKED, AMOUNT_PAID, TRADE_SETTLED, " +
				"STAKE_RECLAIMED or * for all",
		},
	},
	Action: addWebhookAction,
}

var removewebhook = cli.Command{
	Name:  "removewebhook",
	Usage: "remove some webhook",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "id",
			Usage: "the id of the webhook to remove",
		},
	},
	Action: removeWebhookAction,
}

var listwebhooks = cli.Command{
	Name:  "listwebhooks",
	Usage: "list all webhooks registered for some event",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "event",
			Usage: "the event to filter hooks by",
		},
	},
	Action: listWebhooksAction,
}

func addWebhookAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	reply, err := client.post("/v1/webhooks", map[string]string{
		"event":    ctx.String("event"),
		"endpoint": ctx.String("endpoint"),
		"secret":   ctx.String("secret"),
	}, false)
	if err != nil {
		return err
	}

	res := struct {
		ID string `json:"id"`
	}{}
	if err := json.Unmarshal(reply, &res); err != nil {
		return err
	}

	fmt.Fprintln(out, "hook id:", res.ID)
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	id := ctx.String("id")
	if id == "" {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	if _, err := client.delete("/v1/webhooks/" + url.PathEscape(id)); err != nil {
		return err
	}

	fmt.Fprintln(out, "hook removed")
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	path := "/v1/webhooks"
	if event := ctx.String("event"); event != "" {
		path += "?event=" + url.QueryEscape(event)
	}
	reply, err := client.get(path)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
