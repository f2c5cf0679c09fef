// Command flatfile parses fixed-width files into JSON, YAML or CBOR and
// generates fixed-width files from JSON or YAML, using schema definitions
// read by package schemafile.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
