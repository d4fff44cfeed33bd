package main

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/lattice-substrate/json-repair/batch"
	"github.com/lattice-substrate/json-repair/config"
	"github.com/lattice-substrate/json-repair/internal/log"
	"github.com/lattice-substrate/json-repair/jrfile"
	"github.com/lattice-substrate/json-repair/jrtoken"
	"github.com/lattice-substrate/json-repair/repair"
	"github.com/lattice-substrate/json-repair/server"
)

func cmdRepair(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	fl, positional, err := parseFlags(args, optOutput, optOverwrite, optMaxDepth)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if fl.help {
		if err := writeRepairHelp(stderr); err != nil {
			return exitInternal
		}
		return exitSuccess
	}
	if exitCode, ok := ensureSingleInput(positional, stderr); ok {
		return exitCode
	}

	fromStdin := len(positional) == 0 || positional[0] == "-"
	if fl.overwrite && fromStdin {
		return usageErrorf(stderr, "--overwrite needs an input file")
	}
	if fl.overwrite && fl.output != "" {
		return usageErrorf(stderr, "--overwrite and --output are mutually exclusive")
	}

	input, err := readInput(positional, stdin, repair.DefaultMaxInputSize)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	decoded, err := jrfile.Decode(input)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	repaired, err := repair.RepairBytes(decoded, &repair.Options{MaxDepth: fl.maxDepth})
	if err != nil {
		return writeClassifiedError(stderr, err)
	}

	switch {
	case fl.overwrite:
		err = jrfile.WriteAtomic(positional[0], jrfile.Terminate(repaired))
	case fl.output != "":
		err = jrfile.WriteAtomic(fl.output, jrfile.Terminate(repaired))
	default:
		_, err = stdout.Write(repaired)
	}
	if err != nil {
		return writeClassifiedError(stderr, fmt.Errorf("writing output: %w", err))
	}
	return exitSuccess
}

func cmdCheck(args []string, stdin io.Reader, stderr io.Writer) int {
	fl, positional, err := parseFlags(args, optQuiet)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if fl.help {
		if err := writeCheckHelp(stderr); err != nil {
			return exitInternal
		}
		return exitSuccess
	}
	if exitCode, ok := ensureSingleInput(positional, stderr); ok {
		return exitCode
	}

	input, err := readInput(positional, stdin, jrtoken.DefaultMaxInputSize)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if err := jrtoken.Validate(input); err != nil {
		return writeClassifiedError(stderr, err)
	}

	if !fl.quiet {
		if err := writeLine(stderr, "ok"); err != nil {
			return exitInternal
		}
	}
	return exitSuccess
}

func cmdBatch(args []string, stdout io.Writer, stderr io.Writer) int {
	fl, patterns, err := parseFlags(args, optConfig, optWorkers, optSuffix, optOverwrite, optMaxDepth)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if fl.help {
		if err := writeBatchHelp(stderr); err != nil {
			return exitInternal
		}
		return exitSuccess
	}
	if len(patterns) == 0 {
		return usageErrorf(stderr, "batch needs at least one pattern")
	}

	cfg, err := loadConfig(fl)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: %v\n", err)
	}
	if fl.set[optWorkers] {
		cfg.Batch.Workers = fl.workers
	}
	if fl.set[optSuffix] {
		cfg.Batch.Suffix = fl.suffix
	}
	if fl.overwrite {
		cfg.Batch.Overwrite = true
	}
	if err := config.Validate(cfg); err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: %v\n", err)
	}
	log.SetLevel(cfg.LogLevel)
	logger := log.New(stderr)

	paths, err := batch.Expand(".", patterns)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: %v\n", err)
	}
	if len(paths) == 0 {
		return usageErrorf(stderr, "no files matched")
	}

	ctx, stop := signalContext()
	defer stop()

	runner := &batch.Runner{
		Workers:   cfg.Batch.Workers,
		Suffix:    cfg.Batch.Suffix,
		Overwrite: cfg.Batch.Overwrite,
		Options:   cfg.RepairOptions(),
		Logger:    logger,
	}
	sum, runErr := runner.Run(ctx, paths)

	for _, res := range sum.Results {
		var line string
		switch {
		case res.Err != nil:
			line = fmt.Sprintf("%s %s: %v", res.Status, res.Input, res.Err)
		case res.Output != "" && res.Output != res.Input:
			line = fmt.Sprintf("%s %s -> %s", res.Status, res.Input, res.Output)
		default:
			line = fmt.Sprintf("%s %s", res.Status, res.Input)
		}
		if err := writeLine(stdout, line); err != nil {
			return exitInternal
		}
	}
	if err := writef(stdout, "%d files: %d repaired, %d unchanged, %d skipped, %d failed\n",
		len(sum.Results), sum.Repaired, sum.Unchanged, sum.Skipped, sum.Failed); err != nil {
		return exitInternal
	}

	if runErr != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: batch interrupted: %v\n", runErr)
	}
	if sum.Failed > 0 {
		return exitInvalid
	}
	return exitSuccess
}

func cmdServe(args []string, stderr io.Writer) int {
	fl, positional, err := parseFlags(args, optConfig, optAddr, optMaxDepth)
	if err != nil {
		return writeClassifiedError(stderr, err)
	}
	if fl.help {
		if err := writeServeHelp(stderr); err != nil {
			return exitInternal
		}
		return exitSuccess
	}
	if len(positional) > 0 {
		return usageErrorf(stderr, "serve takes no arguments")
	}

	cfg, err := loadConfig(fl)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: %v\n", err)
	}
	if fl.set[optAddr] {
		cfg.Server.Addr = fl.addr
	}
	if err := config.Validate(cfg); err != nil {
		return writeErrorAndReturn(stderr, exitInvalid, "error: %v\n", err)
	}
	log.SetLevel(cfg.LogLevel)
	logger := log.New(stderr)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: listen on %s: %v\n", cfg.Server.Addr, err)
	}

	srv := server.New(
		server.WithRepairOptions(cfg.RepairOptions()),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		server.WithReadTimeout(time.Duration(cfg.Server.ReadTimeout)),
		server.WithLogger(logger),
	)

	ctx, stop := signalContext()
	defer stop()

	logger.Infow("listening", "addr", ln.Addr().String())
	if err := srv.Serve(ctx, ln); err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: serve: %v\n", err)
	}
	logger.Infow("stopped")
	return exitSuccess
}

// loadConfig reads --config when given and applies --max-depth.
func loadConfig(fl flags) (*config.Config, error) {
	cfg := config.Default()
	if fl.config != "" {
		loaded, err := config.Load(fl.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if fl.set[optMaxDepth] {
		cfg.MaxDepth = fl.maxDepth
	}
	return cfg, nil
}

func readInput(positional []string, stdin io.Reader, maxInputSize int) ([]byte, error) {
	if len(positional) == 0 || positional[0] == "-" {
		data, err := jrfile.ReadBounded(stdin, maxInputSize)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}

	data, err := jrfile.ReadFile(positional[0], maxInputSize)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", positional[0], err)
	}
	return data, nil
}

func ensureSingleInput(positional []string, stderr io.Writer) (int, bool) {
	if len(positional) <= 1 {
		return 0, false
	}
	return usageErrorf(stderr, "multiple input files specified"), true
}

func writeRepairHelp(stderr io.Writer) error {
	return writeLines(stderr,
		"usage: json-repair repair [--output FILE] [--overwrite] [--max-depth N] [file|-]",
		"  Repair JSON from file (or stdin) and write it to stdout.",
		"  -o, --output FILE  Write to FILE atomically instead of stdout",
		"  --overwrite        Rewrite the input file in place",
		"  --max-depth N      Nesting depth limit (default 1000)",
	)
}

func writeCheckHelp(stderr io.Writer) error {
	return writeLines(stderr,
		"usage: json-repair check [--quiet] [file|-]",
		"  Verify that input is strictly valid RFC 8259 JSON.",
		"  -q, --quiet  Suppress success messages",
	)
}

func writeBatchHelp(stderr io.Writer) error {
	return writeLines(stderr,
		"usage: json-repair batch [--config FILE] [--workers N] [--suffix S] [--overwrite] PATTERN...",
		"  Repair every file matching the patterns (** matches any depth).",
		"  -c, --config FILE  Configuration file",
		"  -w, --workers N    Worker pool size (default: one per CPU)",
		"  --suffix S         Output name suffix replacing the extension (default .repaired.json)",
		"  --overwrite        Rewrite inputs in place",
		"  --max-depth N      Nesting depth limit (default 1000)",
	)
}

func writeServeHelp(stderr io.Writer) error {
	return writeLines(stderr,
		"usage: json-repair serve [--config FILE] [--addr ADDR]",
		"  Serve POST /v1/repair, POST /v1/check and GET /healthz.",
		"  -c, --config FILE  Configuration file",
		"  --addr ADDR        Listen address (default "+config.DefaultAddr+")",
		"  --max-depth N      Nesting depth limit (default 1000)",
	)
}
