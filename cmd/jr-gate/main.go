// Command jr-gate runs the repository's verification gates in order and
// stops at the first failure.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
)

type gateStep struct {
	label string
	args  []string
	quick bool // also runs under --quick
}

type commandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error
}

type realRunner struct{}

var gateSteps = []gateStep{
	{label: "go vet", args: []string{"vet", "./..."}, quick: true},
	{label: "unit tests", args: []string{"test", "./...", "-count=1", "-timeout=20m"}, quick: true},
	{label: "race tests", args: []string{"test", "./...", "-race", "-count=1", "-timeout=25m"}},
	{label: "conformance", args: []string{"test", "./conformance", "-count=1", "-timeout=10m", "-v"}, quick: true},
	{label: "fuzz output validity", args: []string{"test", "./repair", "-run", "^$", "-fuzz", "^FuzzRepairOutputIsValidJSON$", "-fuzztime=30s"}},
	{label: "fuzz passthrough", args: []string{"test", "./repair", "-run", "^$", "-fuzz", "^FuzzRepairValidJSONPassesThrough$", "-fuzztime=30s"}},
	{label: "fuzz strict checker", args: []string{"test", "./jrtoken", "-run", "^$", "-fuzz", "^FuzzValidateAgreesWithEncodingJSON$", "-fuzztime=30s"}},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, realRunner{})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, runner commandRunner) int {
	quick := false
	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			if err := writeUsage(stdout); err != nil {
				return 1
			}
			return 0
		case "--quick":
			quick = true
		default:
			if err := writef(stderr, "error: unknown argument %q\n", arg); err != nil {
				return 1
			}
			if err := writeUsage(stderr); err != nil {
				return 1
			}
			return 2
		}
	}

	steps := selectSteps(quick)
	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, len(steps), step.label); err != nil {
			return 1
		}
		if err := runner.Run(ctx, "go", step.args, stdout, stderr); err != nil {
			_ = writef(stderr, "gate failed: %s: %v\n", step.label, err)
			return 1
		}
	}

	if err := writeLine(stdout, "all gates passed"); err != nil {
		return 1
	}
	return 0
}

func selectSteps(quick bool) []gateStep {
	if !quick {
		return gateSteps
	}
	steps := make([]gateStep, 0, len(gateSteps))
	for _, s := range gateSteps {
		if s.quick {
			steps = append(steps, s)
		}
	}
	return steps
}

func (realRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer, stderr io.Writer) error {
	// #nosec G204 -- command and args are fixed repository gate invocations.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}

func writeUsage(w io.Writer) error {
	if err := writeLine(w, "usage: go run ./cmd/jr-gate [--quick] [--help]"); err != nil {
		return err
	}
	return writeLine(w, "runs: vet, tests, race, conformance, fuzz smoke (--quick: vet, tests, conformance)")
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
