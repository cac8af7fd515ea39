// Command jactl queries a JSON:API backend from the shell and prints the
// documents with their relationships resolved.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
