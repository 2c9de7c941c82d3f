package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// An interrupted run exits with the conventional signal code and
		// stays quiet; everything else is a real failure worth printing.
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "reelcat:", err)
		os.Exit(1)
	}
}
