// Command fhirstore queries FHIR R4 NDJSON datasets from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/fhirstore/cli"
)

// Set via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, cli.Options{Version: version}, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fhirstore:", err)
		os.Exit(1)
	}
}
