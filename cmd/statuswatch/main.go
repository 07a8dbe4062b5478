package main

import (
	"fmt"
	"os"

	"github.com/monocle-dev/statuswatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "statuswatch: %v\n", err)
		os.Exit(1)
	}
}
