// Command veclust clusters lines of text with k-means and manages the
// resulting models.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
