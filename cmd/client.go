package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/tunsel/tunsel/common"
	"github.com/tunsel/tunsel/pkg/client"
)

var clientFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "addr",
		Usage:  "daemon address (host:port)",
		EnvVar: common.ListenAddrEnv,
		Value:  common.DefaultListenAddr,
	},
	cli.StringFlag{
		Name:   "secret",
		Usage:  "daemon auth token",
		EnvVar: common.SecretEnv,
	},
}

// newClient builds a daemon client from the shared connection flags.
func newClient(ctx *cli.Context) (*client.Client, error) {
	secret := ctx.String("secret")
	if secret == "" {
		return nil, fmt.Errorf("no auth secret configured, set --secret or %s", common.SecretEnv)
	}
	return client.NewClient(ctx.String("addr"), secret), nil
}

func printErr(err error) error {
	fmt.Fprintf(os.Stderr, "tunsel: %s\n", err.Error())
	return nil
}
