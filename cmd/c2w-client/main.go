// Command c2w-client is a console implementation of the c2w chat client:
// it drives an internal/clientsession.Session from stdin commands and
// prints server-driven view updates to stdout (spec.md §4.4).
package main

import (
	"os"

	"github.com/alxayo/c2w/internal/logger"
)

func main() {
	logger.Init()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
