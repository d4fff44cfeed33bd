package main

import (
	"strconv"
	"strings"

	"github.com/lattice-substrate/json-repair/jrerr"
)

type flags struct {
	quiet     bool
	help      bool
	overwrite bool
	output    string
	config    string
	suffix    string
	addr      string
	maxDepth  int
	workers   int

	// set records which options appeared, by long name.
	set map[string]bool
}

// option names accepted by a command, long form.
const (
	optQuiet     = "--quiet"
	optOverwrite = "--overwrite"
	optOutput    = "--output"
	optConfig    = "--config"
	optSuffix    = "--suffix"
	optAddr      = "--addr"
	optMaxDepth  = "--max-depth"
	optWorkers   = "--workers"
)

var shortOptions = map[string]string{
	"-q": optQuiet,
	"-o": optOutput,
	"-c": optConfig,
	"-w": optWorkers,
}

func takesValue(name string) bool {
	switch name {
	case optOutput, optConfig, optSuffix, optAddr, optMaxDepth, optWorkers:
		return true
	default:
		return false
	}
}

// parseFlags extracts the options in allowed from args and returns the
// remaining positional arguments. Values may follow as the next argument
// or after "=".
func parseFlags(args []string, allowed ...string) (flags, []string, error) {
	f := flags{set: make(map[string]bool)}
	allow := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allow[a] = true
	}

	var positional []string
	consumeAsPositional := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if consumeAsPositional {
			positional = append(positional, arg)
			continue
		}

		switch arg {
		case "--help", "-h":
			f.help = true
			continue
		case "--":
			consumeAsPositional = true
			continue
		case "-":
			positional = append(positional, arg)
			continue
		}
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		if long, ok := shortOptions[name]; ok {
			name = long
		}
		if !allow[name] {
			return flags{}, nil, jrerr.Newf(jrerr.CLIUsage, -1, "unknown option: %s", arg)
		}
		if !takesValue(name) {
			if hasValue {
				return flags{}, nil, jrerr.Newf(jrerr.CLIUsage, -1, "option %s takes no value", name)
			}
			f.setBool(name)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return flags{}, nil, jrerr.Newf(jrerr.CLIUsage, -1, "option %s requires a value", name)
			}
			i++
			value = args[i]
		}
		if err := f.setValue(name, value); err != nil {
			return flags{}, nil, err
		}
	}
	return f, positional, nil
}

func (f *flags) setBool(name string) {
	f.set[name] = true
	switch name {
	case optQuiet:
		f.quiet = true
	case optOverwrite:
		f.overwrite = true
	}
}

func (f *flags) setValue(name, value string) error {
	f.set[name] = true
	switch name {
	case optOutput:
		f.output = value
	case optConfig:
		f.config = value
	case optSuffix:
		f.suffix = value
	case optAddr:
		f.addr = value
	case optMaxDepth, optWorkers:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return jrerr.Newf(jrerr.CLIUsage, -1, "option %s needs a non-negative integer, got %q", name, value)
		}
		if name == optMaxDepth {
			f.maxDepth = n
		} else {
			f.workers = n
		}
	}
	return nil
}
