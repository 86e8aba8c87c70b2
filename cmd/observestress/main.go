// Command observestress hammers the observation package with concurrent
// mutations while sessions are being installed, and reports double fires,
// missed fires and leaked registrations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
