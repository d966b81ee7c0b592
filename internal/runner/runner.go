// Package runner executes external tools with a bounded lifetime.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var ErrNotInstalled = errors.New("executable not found")

// Func runs bin with args and returns its stdout. On failure the error
// carries the tail of stderr.
type Func func(ctx context.Context, bin string, args ...string) ([]byte, error)

// Exec is the default Func.
func Exec(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = 5 * time.Second
	var out, errout bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errout

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotInstalled, bin)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", bin, ctxErr)
		}
		return nil, &ExitError{Bin: bin, Err: err, Stderr: tail(errout.String(), 2000)}
	}
	return out.Bytes(), nil
}

// ExitError is a non-zero exit of an external tool.
type ExitError struct {
	Bin    string
	Err    error
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Bin, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Bin, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

// LookPath reports whether bin can be invoked.
func LookPath(bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInstalled, bin)
	}
	return path, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
