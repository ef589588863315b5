// Package main provides the fleetctl binary entry point.
// Fleetctl is the terminal client for the dispatch backend: it manages
// the authenticated session, the fleet collections, and the on-vehicle
// location reporting agent.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
