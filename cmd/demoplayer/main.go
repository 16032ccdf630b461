package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmlt/demoplayer/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return cli.NewRootCommand().ExecuteContext(context.Background())
}
