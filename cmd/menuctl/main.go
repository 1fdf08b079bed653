// Command menuctl is a terminal client for the menuforge API. The tree
// subcommands edit a local JSON file without a server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		os.Exit(1)
	}
}
