// Package cli holds the small pieces of argument-parsing and process
// plumbing shared by this module's four single-purpose driver binaries
// (hoilc, coilvm, coildbg, coil_dump), the same way the teacher's
// internal/maincmd centralizes it for its one multi-command binary.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

// Context returns a background context that is cancelled on SIGINT, the way
// every driver here starts its work.
func Context() context.Context {
	return mainer.CancelOnSignal(context.Background(), os.Interrupt)
}

// PrintError writes err to stdio.Stderr if non-nil and returns it unchanged,
// so callers can write "return cli.PrintError(stdio, err)".
func PrintError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

// OutputPath derives the default output path for a driver that writes a
// sibling file next to its input, replacing input's extension with ext
// (e.g. ".coil"). Used by hoilc when -o is not given.
func OutputPath(input, ext string) string {
	trimmed := input
	for i := len(input) - 1; i >= 0 && input[i] != '/'; i-- {
		if input[i] == '.' {
			trimmed = input[:i]
			break
		}
	}
	return trimmed + ext
}
