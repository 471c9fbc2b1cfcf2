package main

import "os"

// main is the entry point for heif2jpeg. Execute (root.go) owns command
// parsing, configuration loading and the conversion run; it returns the
// shell exit code.
func main() {
	os.Exit(Execute())
}
