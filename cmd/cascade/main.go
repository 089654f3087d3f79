// Command cascade maintains a live hierarchical view over a directory of
// markdown planning records, propagating statuses and progress up the tree.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
