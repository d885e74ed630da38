// Package coildumpcmd implements the coil_dump driver: prints a sectioned
// COIL module's header, section table, and full disassembly.
package coildumpcmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/hoil-lang/hoil/coil/binary"
	"github.com/hoil-lang/hoil/internal/cli"
)

const binName = "coil_dump"

var longUsage = fmt.Sprintf(`usage: %s program.coil
       %[1]s -h|--help

Prints a sectioned COIL module's header, section table, and disassembly.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version               Print version and exit.
`, binName)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 1 {
		return errors.New("exactly one module file must be provided")
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

	if err := Dump(context.Background(), stdio, c.args[0]); err != nil {
		cli.PrintError(stdio, err)
		return mainer.Failure
	}
	return mainer.Success
}

// Dump reads the module at path and prints its header, section table, and
// disassembly to stdio.Stdout.
func Dump(ctx context.Context, stdio mainer.Stdio, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	hdr, sections, err := binary.ReadHeader(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdio.Stdout, "magic: %#08x\nversion: %#08x\nsection count: %d\nflags: %#08x\n",
		hdr.Magic, hdr.Version, hdr.SectionCount, hdr.Flags)
	fmt.Fprintln(stdio.Stdout, "sections:")
	for _, s := range sections {
		fmt.Fprintf(stdio.Stdout, "  %-12s offset=%-8d size=%d\n", s.Type, s.Offset, s.Size)
	}

	m, err := binary.Read(raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdio.Stdout)
	fmt.Fprint(stdio.Stdout, binary.Disassemble(m))
	return nil
}
