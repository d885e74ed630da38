// Package coilvmcmd implements the coilvm driver: loads a streaming COIL
// program and runs it to completion.
package coilvmcmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/hoil-lang/hoil/coil/stream"
	"github.com/hoil-lang/hoil/coil/vm"
	"github.com/hoil-lang/hoil/internal/cli"
)

const binName = "coilvm"

var longUsage = fmt.Sprintf(`usage: %s -b [-s] program.coil
       %[1]s -h|--help

Runs a streaming-format COIL program to completion.

Valid flag options are:
       -b --binary               Binary mode: read program.coil as the
                                  streaming instruction format. Required;
                                  the sectioned module format produced by
                                  hoilc is not executable by this VM (the
                                  two COIL encodings do not interoperate).
       -s --stats                Print VM statistics after the run.
       -h --help                 Show this help and exit.
       -v --version               Print version and exit.
`, binName)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Binary  bool `flag:"b,binary"`
	Stats   bool `flag:"s,stats"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return errors.New("exactly one program file must be provided")
	}
	if !c.Binary {
		return errors.New("-b is required: this VM only executes the streaming instruction format")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n", err)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	code, err := Run(cli.Context(), stdio, c.args[0], c.Stats)
	if err != nil {
		cli.PrintError(stdio, err)
		return mainer.ExitCode(code)
	}
	return mainer.ExitCode(code)
}

// Run loads the streaming program at path and executes it, returning its
// exit code.
func Run(ctx context.Context, stdio mainer.Stdio, path string, printStats bool) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 1, err
	}
	records, err := stream.DecodeAll(raw)
	if err != nil {
		return 1, err
	}

	s := vm.New(records)
	s.Stdout = stdio.Stdout
	if err := s.CollectLabels(); err != nil {
		return 1, err
	}
	code, err := s.Run(ctx)
	if printStats {
		fmt.Fprint(stdio.Stdout, s.Statistics())
	}
	return code, err
}
