// Command cloudify is the reference CLI for the cloudify library: it
// provisions a function module, invokes a named target, and tears
// everything back down, or drives CleanupResources standalone from a saved
// manifest.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
