// Package shell provides the shell executor adapter.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
	"go.trai.ch/zerr"
)

// listVars are search-path variables whose activated value is prepended to
// the inherited one instead of replacing it.
var listVars = []string{"PATH", "PYTHONPATH"}

// Executor implements ports.Executor using os/exec.
type Executor struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option configures an Executor.
type Option func(*Executor)

// WithStreams connects the child process to the given streams instead of the
// current process's standard streams.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// NewExecutor creates a new Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs command with env merged over the current process environment.
// When ctx carries a vertex, output is copied to it as well.
func (e *Executor) Execute(ctx context.Context, command, env []string) error {
	if len(command) == 0 {
		return domain.ErrNoCommand
	}

	name := command[0]
	cmdEnv := resolveEnvironment(os.Environ(), env)

	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, command[1:]...) //nolint:gosec // user provided command
	// exec.CommandContext sets Args[0] to the executable path.
	cmd.Args[0] = name
	cmd.Env = cmdEnv
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	if v, ok := ports.VertexFromContext(ctx); ok {
		cmd.Stdout = io.MultiWriter(e.stdout, v.Stdout())
		cmd.Stderr = io.MultiWriter(e.stderr, v.Stderr())
	}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		wrapped := zerr.With(zerr.Wrap(err, "failed to run "+name), "exit_code", exitCode)
		return errors.Join(domain.ErrCommandFailed, wrapped)
	}

	return nil
}

// ExitCode returns the exit status carried by an Execute error, or -1 when the
// command never ran to completion.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// resolveEnvironment merges the activated environment over the system one.
// Search-path variables are prepended to their inherited value.
func resolveEnvironment(sysEnv, activated []string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(activated))
	order := make([]string, 0, len(sysEnv)+len(activated))
	set := func(k, v string) {
		if _, exists := envMap[k]; !exists {
			order = append(order, k)
		}
		envMap[k] = v
	}

	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			set(k, v)
		}
	}

	for _, entry := range activated {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if inherited := envMap[k]; slices.Contains(listVars, k) && inherited != "" && v != "" {
			v = v + string(os.PathListSeparator) + inherited
		}
		set(k, v)
	}

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
