// Package debugger implements an interactive, breakpoint-capable REPL
// wrapped around a coil/vm.State: at a breakpoint or in single-step mode,
// each iteration displays the next record and stops for commands;
// otherwise it executes the instruction and continues.
package debugger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hoil-lang/hoil/coil/stream"
	"github.com/hoil-lang/hoil/coil/vm"
)

// MaxBreakpoints is the maximum number of simultaneously armed breakpoints.
const MaxBreakpoints = 16

// Debugger drives a vm.State through an interactive command loop read from
// Stdin, echoing instruction traces and command output to Stdout.
type Debugger struct {
	State *vm.State
	Stdin io.Reader
	Stdout io.Writer

	breakpoints []int
	stepping    bool
	scanner     *bufio.Scanner
}

// New returns a Debugger ready to Run state, which must already have been
// constructed via vm.New.
func New(state *vm.State, stdin io.Reader, stdout io.Writer) *Debugger {
	return &Debugger{
		State:   state,
		Stdin:   stdin,
		Stdout:  stdout,
		stepping: true,
	}
}

// Run collects labels and drives the REPL until the program terminates or
// the user quits. It returns the VM's exit code. A fatal instruction error
// does not end the session: it is printed, and the REPL reopens once more
// so the user can inspect memory and stack before quitting.
func (d *Debugger) Run(ctx context.Context) (int, error) {
	if err := d.State.CollectLabels(); err != nil {
		return 0, err
	}
	d.scanner = bufio.NewScanner(d.Stdin)
	fmt.Fprintln(d.Stdout, "coildbg: type 'help' for a command list")

	for {
		if err := ctx.Err(); err != nil {
			return d.State.ExitCode, err
		}

		done := !d.State.Running || d.State.PC >= len(d.State.Program)
		atBP := !done && d.atBreakpoint(d.State.PC)

		switch {
		case done:
			fmt.Fprintf(d.Stdout, "program terminated, exit code %d\n", d.State.ExitCode)
		case d.stepping, atBP:
			if atBP && !d.stepping {
				fmt.Fprintf(d.Stdout, "Breakpoint hit at position %d\n", d.State.PC)
			}
			fmt.Fprintln(d.Stdout, d.formatRecord(d.State.PC))
		}

		if done || d.stepping || atBP {
			if quit := d.commandLoop(); quit || done {
				return d.State.ExitCode, nil
			}
		}

		if err := d.State.Step(); err != nil {
			fmt.Fprintln(d.Stdout, err)
			d.stepping = true
		}
	}
}

func (d *Debugger) atBreakpoint(pos int) bool {
	for _, bp := range d.breakpoints {
		if bp == pos {
			return true
		}
	}
	return false
}

// commandLoop prompts for and dispatches commands until one of step,
// continue, or quit is issued, returning true only for quit (including on
// EOF from Stdin).
func (d *Debugger) commandLoop() (quit bool) {
	for {
		fmt.Fprint(d.Stdout, "(coildbg) ")
		if !d.scanner.Scan() {
			return true
		}
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			line = "step"
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		switch cmd {
		case "help", "h":
			d.printHelp()
		case "step", "s":
			return false
		case "continue", "c", "run", "r":
			d.stepping = false
			return false
		case "break", "b":
			d.addBreakpoint(args)
		case "delete":
			d.deleteBreakpoint(args)
		case "list", "l":
			d.listLabels()
		case "breakpoints", "bp":
			d.listBreakpoints()
		case "memory", "mem":
			d.dumpMemory(args)
		case "stack":
			d.dumpStack()
		case "goto":
			d.gotoPos(args)
		case "info", "i":
			d.printInfo()
		case "quit", "q":
			return true
		default:
			fmt.Fprintf(d.Stdout, "unknown command %q, type 'help'\n", cmd)
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Fprint(d.Stdout, `commands:
  help, h                show this text
  step, s                execute one record and stop
  continue, c, run, r    run until a breakpoint or the program ends
  break, b <pos>         set a breakpoint at program position <pos>
  delete <idx>           remove breakpoint number <idx> (see 'breakpoints')
  list, l                list every known label and its position
  breakpoints, bp        list armed breakpoints
  memory, mem <addr> [len]
                         dump <len> (default 64) bytes of static memory
  stack                  dump the data stack
  goto <pos|label>       move the program counter without executing
  info, i                print VM statistics
  quit, q                end the debugging session
`)
}

func (d *Debugger) addBreakpoint(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(d.Stdout, "usage: break <pos>")
		return
	}
	pos, err := d.resolvePos(args[0])
	if err != nil {
		fmt.Fprintln(d.Stdout, err)
		return
	}
	if d.atBreakpoint(pos) {
		fmt.Fprintf(d.Stdout, "breakpoint already set at %d\n", pos)
		return
	}
	if len(d.breakpoints) >= MaxBreakpoints {
		fmt.Fprintf(d.Stdout, "cannot set breakpoint: limit of %d reached\n", MaxBreakpoints)
		return
	}
	d.breakpoints = append(d.breakpoints, pos)
	fmt.Fprintf(d.Stdout, "breakpoint %d set at %d\n", len(d.breakpoints)-1, pos)
}

func (d *Debugger) deleteBreakpoint(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(d.Stdout, "usage: delete <idx>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= len(d.breakpoints) {
		fmt.Fprintf(d.Stdout, "no such breakpoint %q\n", args[0])
		return
	}
	d.breakpoints = append(d.breakpoints[:idx], d.breakpoints[idx+1:]...)
	fmt.Fprintf(d.Stdout, "breakpoint %d removed\n", idx)
}

func (d *Debugger) listBreakpoints() {
	if len(d.breakpoints) == 0 {
		fmt.Fprintln(d.Stdout, "no breakpoints set")
		return
	}
	for i, bp := range d.breakpoints {
		fmt.Fprintf(d.Stdout, "  %d: position %d\n", i, bp)
	}
}

func (d *Debugger) listLabels() {
	labels := d.State.Labels()
	if len(labels) == 0 {
		fmt.Fprintln(d.Stdout, "no labels defined")
		return
	}
	for id, pos := range labels {
		fmt.Fprintf(d.Stdout, "  label %d -> position %d\n", id, pos)
	}
}

func (d *Debugger) dumpMemory(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(d.Stdout, "usage: memory <addr> [len]")
		return
	}
	addr, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil {
		fmt.Fprintln(d.Stdout, "invalid address:", err)
		return
	}
	length := 64
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(d.Stdout, "invalid length:", err)
			return
		}
		length = n
	}
	end := int(addr) + length
	if end > vm.StaticMemorySize {
		end = vm.StaticMemorySize
	}
	dumpHex(d.Stdout, d.State.Memory[addr:end], int(addr))
}

func (d *Debugger) dumpStack() {
	fmt.Fprintf(d.Stdout, "stack used: %d/%d bytes\n", d.State.StackUsed, vm.StackSize)
	dumpHex(d.Stdout, d.State.Stack[:d.State.StackUsed], 0)
}

func (d *Debugger) gotoPos(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(d.Stdout, "usage: goto <pos|label>")
		return
	}
	pos, err := d.resolvePos(args[0])
	if err != nil {
		fmt.Fprintln(d.Stdout, err)
		return
	}
	if pos < 0 || pos > len(d.State.Program) {
		fmt.Fprintf(d.Stdout, "position %d is out of range\n", pos)
		return
	}
	d.State.PC = pos
}

func (d *Debugger) printInfo() {
	fmt.Fprint(d.Stdout, d.State.Statistics())
}

// resolvePos accepts either a decimal program position or a label id
// prefixed with 'L' (e.g. "L3"), resolved through the VM's label table.
func (d *Debugger) resolvePos(s string) (int, error) {
	if len(s) > 1 && (s[0] == 'L' || s[0] == 'l') {
		id, err := strconv.ParseUint(s[1:], 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid label %q", s)
		}
		return d.State.FindLabel(uint16(id))
	}
	pos, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return pos, nil
}

// formatRecord renders the record at program position pos, annotated with
// its label name if one is defined there.
func (d *Debugger) formatRecord(pos int) string {
	r := d.State.Program[pos]
	label := ""
	if id, ok := d.State.LabelAt(pos); ok {
		label = fmt.Sprintf(" L%d:", id)
	}
	switch r.Op {
	case stream.OpLabelDef:
		return fmt.Sprintf("%04d:%s %s %d", pos, label, r.Op, r.VarAddress)
	default:
		return fmt.Sprintf("%04d:%s %s type=%s var=%d imm=%#x", pos, label, r.Op, r.Type, r.VarAddress, r.ImmValue)
	}
}

func dumpHex(w io.Writer, b []byte, base int) {
	const width = 16
	for i := 0; i < len(b); i += width {
		end := i + width
		if end > len(b) {
			end = len(b)
		}
		row := b[i:end]
		fmt.Fprintf(w, "%08x  ", base+i)
		for j := 0; j < width; j++ {
			if j < len(row) {
				fmt.Fprintf(w, "%02x ", row[j])
			} else {
				fmt.Fprint(w, "   ")
			}
		}
		fmt.Fprint(w, " |")
		for _, c := range row {
			if c >= 0x20 && c < 0x7f {
				fmt.Fprintf(w, "%c", c)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
}
