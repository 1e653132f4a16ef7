// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sweep drives an external benchmark executable over a range
// of allocation counts.
//
// Benchmarks write their results to fixed files that every
// invocation overwrites, so runs are strictly sequential: a run's
// artifacts are read completely before the next process starts.
package sweep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// A Run is one invocation of the benchmark.
type Run struct {
	Index     int      // position in the sweep, from 0
	Value     int      // sweep value passed to the benchmark
	Artifacts []string // paths of the artifacts read after the run
}

var (
	// ErrArtifactMissing means the benchmark exited successfully
	// but did not write its artifact.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrArtifactUnreadable means the artifact exists but could
	// not be read.
	ErrArtifactUnreadable = errors.New("artifact unreadable")
)

// A ProcessError reports a benchmark process that could not be
// started or exited with a non-zero status.
type ProcessError struct {
	Run      Run
	Command  string
	ExitCode int    // -1 if the process did not start or was killed
	Stderr   string // tail of the process's standard error
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("run %d (n=%d): %s: %v", e.Run.Index, e.Run.Value, e.Command, e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// An ArtifactError reports a missing or unreadable artifact.
// errors.Is matches it against ErrArtifactMissing or
// ErrArtifactUnreadable.
type ArtifactError struct {
	Run  Run
	Path string // the artifact at fault
	Kind error
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("run %d (n=%d): %s: %v: %v", e.Run.Index, e.Run.Value, e.Path, e.Kind, e.Err)
}

func (e *ArtifactError) Is(target error) bool { return target == e.Kind }

func (e *ArtifactError) Unwrap() error { return e.Err }

// A RunError reports a failure to process a run's artifacts.
//
// If the visitor's error wraps a ParseError, errors.Is also matches
// the RunError against ErrArtifactUnreadable.
type RunError struct {
	Run Run
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %d (n=%d): %s: %v", e.Run.Index, e.Run.Value, strings.Join(e.Run.Artifacts, ", "), e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

func (e *RunError) Is(target error) bool {
	var pe *ParseError
	return target == ErrArtifactUnreadable && errors.As(e.Err, &pe)
}

// A ParseError marks a visitor failure caused by artifact content
// that could not be parsed, as opposed to content that parsed but
// did not fit the sweep.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// A VisitFunc processes the artifacts of a completed run. artifacts[i]
// is the content of run.Artifacts[i] and is owned by the visitor.
type VisitFunc func(run Run, artifacts [][]byte) error

// A Driver runs a benchmark once per sweep value.
type Driver struct {
	Command Command

	// Artifacts are the files the benchmark writes on every run.
	// Relative paths are resolved against Dir.
	Artifacts []string

	// Dir is the working directory of the benchmark. If empty,
	// the current directory is used.
	Dir string

	// Stdout receives the benchmark's standard output. If nil,
	// it is discarded.
	Stdout io.Writer

	// Progress, if non-nil, receives a progress bar.
	Progress io.Writer

	// Logger receives per-run diagnostics. If nil, slog.Default is
	// used.
	Logger *slog.Logger
}

const stderrTail = 2048

func (d *Driver) artifactPaths() []string {
	paths := make([]string, len(d.Artifacts))
	for i, a := range d.Artifacts {
		if d.Dir != "" && !filepath.IsAbs(a) {
			a = filepath.Join(d.Dir, a)
		}
		paths[i] = a
	}
	return paths
}

// Sweep runs the benchmark for each of values in order and calls visit
// with each run's artifacts. The first failure aborts the sweep and is
// returned as a *ProcessError, *ArtifactError or *RunError.
//
// Any artifact left from an earlier invocation is removed before each
// run, so a run can only be satisfied by its own output.
func (d *Driver) Sweep(ctx context.Context, values []int, visit VisitFunc) error {
	if len(d.Artifacts) == 0 {
		return errors.New("sweep: no artifacts configured")
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	var bar *progressbar.ProgressBar
	if d.Progress != nil {
		bar = progressbar.NewOptions(len(values),
			progressbar.OptionSetWriter(d.Progress),
			progressbar.OptionSetDescription(filepath.Base(d.Command.Path)),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(d.Progress) }))
	}

	log.Info("starting sweep", slog.String("command", d.Command.String()), slog.Int("runs", len(values)))
	for i, v := range values {
		run := Run{Index: i, Value: v, Artifacts: d.artifactPaths()}
		data, err := d.run(ctx, run, log)
		if err != nil {
			return err
		}
		if err := visit(run, data); err != nil {
			return &RunError{run, err}
		}
		if bar != nil {
			if err := bar.Add(1); err != nil {
				return fmt.Errorf("progress: %w", err)
			}
		}
	}
	log.Info("finished sweep", slog.String("command", d.Command.String()), slog.Int("runs", len(values)))
	return nil
}

// run invokes the benchmark once and returns its artifacts.
func (d *Driver) run(ctx context.Context, run Run, log *slog.Logger) ([][]byte, error) {
	for _, path := range run.Artifacts {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &ArtifactError{run, path, ErrArtifactUnreadable, fmt.Errorf("removing stale artifact: %w", err)}
		}
	}

	argv := d.Command.Argv(run.Value)
	cmd := exec.CommandContext(ctx, d.Command.Path, argv...)
	cmd.Dir = d.Dir
	cmd.Stdout = d.Stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	cmdline := strings.Join(append([]string{d.Command.Path}, argv...), " ")
	log.Debug("starting run", slog.Int("run", run.Index), slog.Int("value", run.Value), slog.String("command", cmdline))
	if err := cmd.Run(); err != nil {
		pe := &ProcessError{Run: run, Command: cmdline, ExitCode: -1, Err: err}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			pe.ExitCode = ee.ExitCode()
		}
		tail := stderr.Bytes()
		if len(tail) > stderrTail {
			tail = tail[len(tail)-stderrTail:]
		}
		pe.Stderr = strings.TrimSpace(string(tail))
		return nil, pe
	}

	data := make([][]byte, len(run.Artifacts))
	for i, path := range run.Artifacts {
		b, err := os.ReadFile(path)
		if err != nil {
			kind := ErrArtifactUnreadable
			if errors.Is(err, os.ErrNotExist) {
				kind = ErrArtifactMissing
			}
			return nil, &ArtifactError{run, path, kind, err}
		}
		data[i] = b
		log.Debug("read artifact", slog.Int("run", run.Index), slog.String("artifact", path), slog.Int("bytes", len(b)))
	}
	log.Debug("finished run", slog.Int("run", run.Index), slog.Int("value", run.Value))
	return data, nil
}
