// Package main provides the sift command line client.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sift error:", err)
		os.Exit(1)
	}
}
