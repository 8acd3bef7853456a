// Command keswan-export renders one report from the configured backend to a
// file, or publishes it to the shared spreadsheet.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
