// Command toolbridge inspects and calls tool workers listed in a TOML
// registry file.
//
//	toolbridge status
//	toolbridge tools mariadb
//	toolbridge call pinecone describe-index-stats --args '{"name":"chatbot"}'
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
