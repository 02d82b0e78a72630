// 16 Feb 2026

// Package exttool runs one external program and decides whether it
// worked. The alignment and tree tools share the same three ways of
// failing: the binary is not there, the binary ran and said no, or
// the binary said yes but its output file never appeared. All three
// come back as an *Error so a caller can print one sensible message
// with the tool's name, exit code and whatever it wrote to stderr.
package exttool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// How much captured stderr we are willing to show. Tree builders can
// be very chatty on a bad day.
const maxStderr = 4 * 1024

// Error is what a failed invocation looks like from outside.
// ExitCode is -1 when the process never started.
type Error struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Tool
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" exited with status %d", e.ExitCode)
	} else {
		msg += " failed"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += "\nstderr:\n" + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// A Cmd says what to run and where the result should end up.
// If StdoutTo is set, the program's standard output is written there.
// This is how mafft and FastTree deliver their results. If OutFile is
// set, that file must exist and be non-empty after the run. A tool
// like clustalo has both unset StdoutTo and a named OutFile; raxml
// has OutFile pointing at the file it invents from its -n argument.
type Cmd struct {
	Prog     string
	Args     []string
	Dir      string // working directory, "" for inherit
	StdoutTo string
	OutFile  string
}

// Run executes the command and checks the contract described on Cmd.
// vbsty 1 prints the command line before running it. The context is
// the only way to put a time limit on a tool; with a background
// context a hung tool hangs us, which matches how these pipelines
// have always behaved.
func Run(ctx context.Context, c Cmd, vbsty int) error {
	if vbsty > 0 {
		fmt.Fprintln(os.Stderr, "running:", c.Prog, strings.Join(c.Args, " "))
	}
	cmd := exec.CommandContext(ctx, c.Prog, c.Args...)
	cmd.Dir = c.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var fOut *os.File
	if c.StdoutTo != "" {
		var err error
		if fOut, err = os.Create(c.StdoutTo); err != nil {
			return &Error{Tool: c.Prog, ExitCode: -1, Err: err}
		}
		cmd.Stdout = fOut
	}

	err := cmd.Run()
	if fOut != nil {
		if cerr := fOut.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		e := &Error{Tool: c.Prog, ExitCode: -1, Stderr: trim(stderr.String()), Err: err}
		var xerr *exec.ExitError
		if errors.As(err, &xerr) {
			e.ExitCode = xerr.ExitCode()
			e.Err = nil
		}
		if ctx.Err() != nil {
			e.Err = ctx.Err()
		}
		return e
	}

	for _, out := range []string{c.StdoutTo, c.OutFile} {
		if out == "" {
			continue
		}
		fi, err := os.Stat(out)
		if err != nil || fi.Size() == 0 {
			return &Error{
				Tool: c.Prog, ExitCode: 0, Stderr: trim(stderr.String()),
				Err: fmt.Errorf("tool reported success but produced no output in %s", out),
			}
		}
	}
	return nil
}

func trim(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[:maxStderr] + "\n[...trimmed]"
	}
	return s
}
