package main

import (
	"fmt"
	"os"

	"aicore/internal/deploy"
)

func main() {
	if err := deploy.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
