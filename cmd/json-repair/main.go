// Command json-repair repairs malformed JSON and checks strict JSON.
//
// Commands:
//
//	json-repair repair [--output FILE] [--overwrite] [--max-depth N] [file|-]
//	    Repair input from file (or stdin) and write it to stdout, to FILE,
//	    or back to the input file.
//
//	json-repair check [--quiet] [file|-]
//	    Verify that input is strictly valid RFC 8259 JSON.
//
//	json-repair batch [--config FILE] [--workers N] [--suffix S] [--overwrite] PATTERN...
//	    Repair every file matching the doublestar patterns.
//
//	json-repair serve [--config FILE] [--addr ADDR]
//	    Serve the repair API over HTTP.
//
//	json-repair repl
//	    Repair lines interactively.
//
// Exit codes:
//
//	0  success
//	2  invalid input or usage
//	10 internal error
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lattice-substrate/json-repair/jrerr"
)

const (
	exitSuccess  = 0
	exitInvalid  = 2
	exitInternal = 10
)

const usage = "usage: json-repair <repair|check|batch|serve|repl> [options] [file|-]"

// signalContext is replaced in tests.
var signalContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		if err := writeLine(stderr, usage); err != nil {
			return exitInternal
		}
		return exitInvalid
	}

	switch args[0] {
	case "repair":
		return cmdRepair(args[1:], stdin, stdout, stderr)
	case "check":
		return cmdCheck(args[1:], stdin, stderr)
	case "batch":
		return cmdBatch(args[1:], stdout, stderr)
	case "serve":
		return cmdServe(args[1:], stderr)
	case "repl":
		return cmdRepl(args[1:], stdout, stderr)
	case "--help", "-h", "help":
		if err := writeLine(stderr, usage); err != nil {
			return exitInternal
		}
		return exitSuccess
	default:
		if err := writef(stderr, "unknown command: %s\n", args[0]); err != nil {
			return exitInternal
		}
		if err := writeLine(stderr, usage); err != nil {
			return exitInternal
		}
		return exitInvalid
	}
}

// writeClassifiedError reports err and returns the exit code of its class.
// Errors without a class are internal failures.
func writeClassifiedError(stderr io.Writer, err error) int {
	code := exitInternal
	var je *jrerr.Error
	if errors.As(err, &je) {
		code = je.Class.ExitCode()
	}
	if werr := writef(stderr, "error: %v\n", err); werr != nil {
		return exitInternal
	}
	return code
}

// usageErrorf reports a command line mistake as a CLI_USAGE error.
func usageErrorf(stderr io.Writer, format string, args ...any) int {
	return writeClassifiedError(stderr, jrerr.Newf(jrerr.CLIUsage, -1, format, args...))
}

func writeErrorAndReturn(stderr io.Writer, code int, format string, args ...any) int {
	if err := writef(stderr, format, args...); err != nil {
		return exitInternal
	}
	return code
}

func writeLines(w io.Writer, lines ...string) error {
	for _, l := range lines {
		if err := writeLine(w, l); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
