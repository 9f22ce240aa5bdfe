package main

import (
	"fmt"
	"os"

	"github.com/tunsel/tunsel/cmd"
)

func main() {
	if err := cmd.Execute(os.Args); err != nil {
		fmt.Printf("tunsel: %s\n", err.Error())
		os.Exit(1)
	}
}
