// Package batch repairs many files concurrently.
//
// Expand turns doublestar patterns into an ordered file list; a Runner
// repairs those files on an ants worker pool and reports one Result per
// input, in input order.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/panjf2000/ants/v2"

	"github.com/lattice-substrate/json-repair/internal/log"
	"github.com/lattice-substrate/json-repair/jrfile"
	"github.com/lattice-substrate/json-repair/repair"
)

// Expand resolves patterns against root and returns the matching regular
// files. Relative patterns are matched inside root; absolute patterns are
// matched as is. Files are sorted within each pattern, and a file matched
// by several patterns is listed once, at its first match.
func Expand(root string, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := expandOne(root, pattern)
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}

func expandOne(root, pattern string) ([]string, error) {
	if filepath.IsAbs(pattern) {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
		}
		return matches, nil
	}

	slashed := strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if !doublestar.ValidatePattern(slashed) {
		return nil, fmt.Errorf("expand pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	matches, err := doublestar.Glob(os.DirFS(root), slashed, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
	}
	for i, m := range matches {
		matches[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return matches, nil
}

// OutputPath names the file a repaired copy of input is written to:
// the input's extension is replaced by suffix.
func OutputPath(input, suffix string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

// Status is the outcome for one input file.
type Status string

const (
	StatusRepaired  Status = "repaired"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result reports what happened to one input file.
type Result struct {
	Input  string
	Output string // empty when nothing was written
	Status Status
	Err    error
}

// Summary aggregates the results of one Run.
type Summary struct {
	Results   []Result
	Repaired  int
	Unchanged int
	Skipped   int
	Failed    int
}

// Runner repairs files concurrently.
type Runner struct {
	// Workers is the pool size; 0 means runtime.NumCPU().
	Workers int
	// Suffix replaces the input extension to name the output file. Inputs
	// already ending in Suffix are skipped. Ignored when Overwrite is set.
	Suffix string
	// Overwrite rewrites inputs in place instead of writing a sibling file.
	Overwrite bool
	Options   *repair.Options
	// Logger receives one line per file; nil means log.Default.
	Logger log.Logger
}

type task struct {
	idx     int
	ctx     context.Context
	path    string
	results []Result
	wg      *sync.WaitGroup
}

// Run repairs paths and returns per-file results in input order. A per-file
// failure is recorded in its Result; Run itself fails only when the pool
// cannot be created or ctx is cancelled, in which case files not yet
// submitted are reported as failed with ctx.Err().
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	if !r.Overwrite && r.Suffix == "" {
		return Summary{}, errors.New("batch: suffix is required unless overwrite is set")
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPoolWithFunc(workers, func(args any) {
		t, ok := args.(*task)
		if !ok {
			panic("batch pool args type error")
		}
		defer t.wg.Done()
		t.results[t.idx] = r.repairFile(t.ctx, t.path)
	})
	if err != nil {
		return Summary{}, fmt.Errorf("create batch pool: %w", err)
	}
	defer pool.Release()

	results := make([]Result, len(paths))
	conflicts := r.outputConflicts(paths)
	var wg sync.WaitGroup
	var runErr error
	for idx, path := range paths {
		if err, ok := conflicts[idx]; ok {
			results[idx] = Result{Input: path, Status: StatusFailed, Err: err}
			r.logger().Errorw("repair failed", "path", path, "error", err)
			continue
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			for j := idx; j < len(paths); j++ {
				results[j] = Result{Input: paths[j], Status: StatusFailed, Err: err}
			}
			break
		}
		wg.Add(1)
		t := &task{idx: idx, ctx: ctx, path: path, results: results, wg: &wg}
		if err := pool.Invoke(t); err != nil {
			wg.Done()
			results[idx] = Result{Input: path, Status: StatusFailed, Err: fmt.Errorf("submit %s: %w", path, err)}
		}
	}
	wg.Wait()

	return summarize(results), runErr
}

// outputConflicts finds inputs whose output file is already claimed by an
// earlier input, such as a.json and a.txt both naming a.repaired.json. The
// first input keeps the output; later ones fail before any work starts.
func (r *Runner) outputConflicts(paths []string) map[int]error {
	if r.Overwrite {
		return nil
	}
	claimed := make(map[string]string, len(paths))
	var conflicts map[int]error
	for idx, path := range paths {
		if strings.HasSuffix(path, r.Suffix) {
			continue
		}
		dest := OutputPath(path, r.Suffix)
		if owner, ok := claimed[dest]; ok {
			if conflicts == nil {
				conflicts = make(map[int]error)
			}
			conflicts[idx] = fmt.Errorf("output %s is already written for %s", dest, owner)
			continue
		}
		claimed[dest] = path
	}
	return conflicts
}

func summarize(results []Result) Summary {
	s := Summary{Results: results}
	for _, res := range results {
		switch res.Status {
		case StatusRepaired:
			s.Repaired++
		case StatusUnchanged:
			s.Unchanged++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}

func (r *Runner) logger() log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default
}

func (r *Runner) maxInputSize() int {
	if r.Options != nil && r.Options.MaxInputSize > 0 {
		return r.Options.MaxInputSize
	}
	return repair.DefaultMaxInputSize
}

func (r *Runner) repairFile(ctx context.Context, path string) Result {
	res := r.process(ctx, path)
	switch res.Status {
	case StatusFailed:
		r.logger().Errorw("repair failed", "path", path, "error", res.Err)
	case StatusSkipped:
		r.logger().Infow("skipped", "path", path)
	default:
		r.logger().Infow(string(res.Status), "path", path, "output", res.Output)
	}
	return res
}

func (r *Runner) process(ctx context.Context, path string) Result {
	res := Result{Input: path}
	if err := ctx.Err(); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if !r.Overwrite && strings.HasSuffix(path, r.Suffix) {
		res.Status = StatusSkipped
		return res
	}

	data, err := jrfile.ReadFile(path, r.maxInputSize())
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	decoded, err := jrfile.Decode(data)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	repaired, err := repair.RepairBytes(decoded, r.Options)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	out := jrfile.Terminate(repaired)

	res.Status = StatusRepaired
	if bytes.Equal(out, data) {
		res.Status = StatusUnchanged
	}

	dest := OutputPath(path, r.Suffix)
	if r.Overwrite {
		if res.Status == StatusUnchanged {
			return res
		}
		dest = path
	}
	if err := jrfile.WriteAtomic(dest, out); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	res.Output = dest
	return res
}
