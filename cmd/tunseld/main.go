package main

import (
	"fmt"
	"os"

	"github.com/tunsel/tunsel/cmd"
)

func main() {
	// The daemon binary is the daemon subcommand with its own name, so
	// service managers can run it without arguments.
	args := append([]string{os.Args[0], "daemon"}, os.Args[1:]...)
	if err := cmd.Execute(args); err != nil {
		fmt.Printf("tunseld: %s\n", err.Error())
		os.Exit(1)
	}
}
