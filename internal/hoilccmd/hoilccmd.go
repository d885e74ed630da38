// Package hoilccmd implements the hoilc driver: parse, check and lower one
// HOIL source file, writing the resulting sectioned COIL module to disk.
package hoilccmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/hoil-lang/hoil/coil/binary"
	"github.com/hoil-lang/hoil/internal/cli"
	"github.com/hoil-lang/hoil/lang/checker"
	"github.com/hoil-lang/hoil/lang/codegen"
	"github.com/hoil-lang/hoil/lang/parser"
	"github.com/hoil-lang/hoil/lang/scanner"
	"github.com/hoil-lang/hoil/lang/token"
)

const binName = "hoilc"

var longUsage = fmt.Sprintf(`usage: %s [-o out.coil] [-v] input.hoil
       %[1]s -h|--help

Compiles a HOIL source file to a sectioned COIL module.

Valid flag options are:
       -o --out                  Output path (default: input with its
                                  extension replaced by .coil).
       -h --help                 Show this help and exit.
       -v --version               Print version and exit.
`, binName)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool   `flag:"h,help"`
	Version bool   `flag:"v,version"`
	Out     string `flag:"o,out"`

	args []string
}

func (c *Cmd) SetArgs(args []string)         { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return errors.New("exactly one input file must be provided")
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

	out := c.Out
	if out == "" {
		out = cli.OutputPath(c.args[0], ".coil")
	}
	if err := Compile(cli.Context(), stdio, c.args[0], out); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// Compile runs the full pipeline: parse, check, generate, write. It prints
// its own errors to stdio.Stderr before returning them.
func Compile(ctx context.Context, stdio mainer.Stdio, input, output string) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return cli.PrintError(stdio, err)
	}

	fs := token.NewFileSet()
	mod, err := parser.Parse(fs, input, src)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}

	res, err := checker.Check(fs, mod)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}

	built, err := codegen.Generate(mod, res)
	if err != nil {
		return cli.PrintError(stdio, err)
	}

	if err := os.WriteFile(output, binary.Write(built), 0o644); err != nil {
		return cli.PrintError(stdio, err)
	}
	return nil
}
