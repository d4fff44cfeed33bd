package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/lattice-substrate/json-repair/repair"
)

const (
	promptPrefix  = "json> "
	promptPrefix2 = "....> "
)

type replCommand struct {
	text        string
	description string
}

var replCommands = []replCommand{
	{text: ".commands", description: "Print REPL commands"},
	{text: ".reset", description: "Discard pending continuation lines"},
	{text: ".exit", description: "Exit"},
}

func cmdRepl(args []string, stdout io.Writer, stderr io.Writer) int {
	fl, positional, err := parseFlags(args, optMaxDepth)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if fl.help {
		if err := writeLines(stderr,
			"usage: json-repair repl [--max-depth N]",
			"  Repair each entered line. End a line with \\ to continue it.",
		); err != nil {
			return exitInternal
		}
		return exitSuccess
	}
	if len(positional) > 0 {
		return usageErrorf(stderr, "repl takes no arguments")
	}

	r := &repl{out: stdout, opts: &repair.Options{MaxDepth: fl.maxDepth}}
	if err := r.run(); err != nil {
		return writeClassifiedError(stderr, err)
	}
	return exitSuccess
}

type repl struct {
	out     io.Writer
	opts    *repair.Options
	pending []string
}

func (r *repl) prefix() string {
	if len(r.pending) > 0 {
		return promptPrefix2
	}
	return promptPrefix
}

func (r *repl) printInfo() {
	_, _ = fmt.Fprintln(r.out, "Enter JSON-like text to repair; end a line with \\ to continue it.")
	_, _ = fmt.Fprintln(r.out, "Write .commands to list available commands")
	_, _ = fmt.Fprintln(r.out, "Press Ctrl+D or write .exit command to exit")
}

func (r *repl) run() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)
	r.printInfo()

	for {
		str, err := line.Prompt(r.prefix())
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				r.pending = nil
				continue
			}
			return fmt.Errorf("prompt error: %w", err)
		}
		if v := strings.TrimSpace(str); v != "" {
			line.AppendHistory(v)
		}
		if r.execute(str) {
			return nil
		}
	}
}

// execute handles one input line and reports whether the REPL should exit.
func (r *repl) execute(input string) bool {
	if len(r.pending) == 0 {
		switch strings.TrimSpace(input) {
		case ".exit":
			return true
		case ".commands":
			for _, c := range replCommands {
				_, _ = fmt.Fprintf(r.out, "%-10s %s\n", c.text, c.description)
			}
			return false
		case ".reset":
			return false
		}
	} else if strings.TrimSpace(input) == ".reset" {
		r.pending = nil
		return false
	}

	if strings.HasSuffix(input, `\`) {
		r.pending = append(r.pending, strings.TrimSuffix(input, `\`))
		return false
	}

	text := strings.Join(append(r.pending, input), "\n")
	r.pending = nil
	if strings.TrimSpace(text) == "" {
		return false
	}

	out, err := repair.RepairWithOptions(text, r.opts)
	if err != nil {
		_, _ = fmt.Fprintf(r.out, "error: %v\n", err)
		return false
	}
	_, _ = fmt.Fprintln(r.out, out)
	return false
}

func complete(line string) (completions []string) {
	for _, c := range replCommands {
		if strings.HasPrefix(c.text, line) {
			completions = append(completions, c.text)
		}
	}
	return
}
