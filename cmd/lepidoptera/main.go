// Command lepidoptera runs the butterfly scoring service.
package main

import (
	"fmt"
	"os"

	"github.com/jacentio/lepidoptera/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
