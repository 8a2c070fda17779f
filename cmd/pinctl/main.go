// Command pinctl manages the stored map points without the window: it
// lists and searches them and moves them in and out of exchange files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
