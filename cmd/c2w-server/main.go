// Command c2w-server runs the c2w chat server: admission, room routing,
// and chat fan-out over either a UDP or TCP transport (spec.md §4.5).
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
