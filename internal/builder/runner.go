package builder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// ErrTimeout is returned when a command outlives its timeout and is killed.
var ErrTimeout = errors.New("command timed out")

// Output is what a finished command left behind. A non-zero ExitCode is
// a stage failure, not an error.
type Output struct {
	ExitCode int
	Text     string
}

// CommandRunner runs one external command in dir.
type CommandRunner interface {
	Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (Output, error)
}

// ExecRunner runs commands as child processes. On timeout the process
// is killed and ErrTimeout returned.
type ExecRunner struct {
	// MaxOutput bounds the captured output; the tail is kept.
	MaxOutput int
}

// Run implements CommandRunner.
func (r ExecRunner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (Output, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	limit := r.MaxOutput
	if limit <= 0 {
		limit = 16 * 1024
	}
	out := &tailBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	// Grandchildren may hold the pipes open after the kill.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return Output{ExitCode: -1, Text: out.String()}, fmt.Errorf("%s after %s: %w", name, timeout, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Output{ExitCode: exitErr.ExitCode(), Text: out.String()}, nil
	}
	if err != nil {
		return Output{ExitCode: -1, Text: out.String()}, fmt.Errorf("running %s: %w", name, err)
	}
	return Output{Text: out.String()}, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
