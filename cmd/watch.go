package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli"

	"github.com/tunsel/tunsel/common"
	"github.com/tunsel/tunsel/pkg/client"
)

func watchEvents(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Watching session events, press Ctrl-C to stop")
	err = c.Listen(sigCtx, client.EventHandlers{
		OnConnect: func(n common.EventNotification) {
			printEvent("connect", n)
		},
		OnDisconnect: func(n common.EventNotification) {
			printEvent("disconnect", n)
		},
	})
	if err != nil {
		return printErr(err)
	}
	return nil
}

func printEvent(kind string, n common.EventNotification) {
	at := time.UnixMilli(n.At).Local().Format("15:04:05")
	if n.Profile != "" {
		fmt.Printf("%s  %-10s %s\n", at, kind, n.Profile)
		return
	}
	fmt.Printf("%s  %s\n", at, kind)
}
