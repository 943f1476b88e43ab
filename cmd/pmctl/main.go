// Command pmctl is the command-line client for the projecthub API.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
