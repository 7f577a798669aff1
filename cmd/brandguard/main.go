// Package main is the BrandGuard CLI entry point.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
