package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/crawlee-cloud/crawlee-cloud/cmd/crawlee-cli/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "crawlee-cli crashed: %v\n", r)
			if os.Getenv("CRAWLEE_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
