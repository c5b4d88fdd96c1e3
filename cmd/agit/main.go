package main

import (
	"fmt"
	"os"

	"github.com/danielpatrickdp/agit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agit:", err)
		os.Exit(1)
	}
}
