// Command amaranth is the CLI front end for the knowledge-base store:
// append-only entries organized by topic, searched via a BM25 index, and
// compressed into LLM-friendly briefings. Grounded on the teacher's
// cmd/tk/main.go entrypoint.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/amaranth-kb/amaranth/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	code := cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, os.Environ(), sigCh)
	os.Exit(code)
}
