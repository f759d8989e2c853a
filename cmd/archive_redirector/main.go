package main

import (
	"fmt"
	"os"

	"github.com/dgnsrekt/archive_redirector/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
