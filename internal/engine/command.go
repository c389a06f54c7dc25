package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/stream"
)

// CommandEngine runs an external program per request. The request is
// written to its stdin as one JSON line; the program prints agent events
// as NDJSON on stdout and exits 0 when done.
type CommandEngine struct {
	Command string
	Args    []string
	Logger  *slog.Logger
}

// Complete runs the program and returns its concatenated text output.
func (e *CommandEngine) Complete(ctx context.Context, req Request) (string, error) {
	src, err := e.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	return Collect(ctx, src)
}

// Stream starts the program and returns its event stream.
func (e *CommandEngine) Stream(ctx context.Context, req Request) (stream.Source, error) {
	if strings.TrimSpace(e.Command) == "" {
		return nil, errors.New("engine command is not configured")
	}
	logger := logging.Or(e.Logger).With("component", "engine", "app_id", req.AppID)

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.WaitDelay = 5 * time.Second
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting engine %s: %w", e.Command, err)
	}
	logger.Debug("engine started", "pid", cmd.Process.Pid, "mode", req.Mode)

	if err := encode(stdin, req); err != nil {
		cancel()
		_ = cmd.Wait()
		return nil, err
	}
	stdin.Close()

	return &commandSource{
		cmd:    cmd,
		cancel: cancel,
		dec:    newDecoder(stdout, logger),
		stderr: stderr,
		logger: logger,
	}, nil
}

type commandSource struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	dec    *decoder
	stderr *bytes.Buffer
	logger *slog.Logger

	once    sync.Once
	exitErr error
}

func (s *commandSource) Next(ctx context.Context) (stream.Event, error) {
	if err := ctx.Err(); err != nil {
		s.finish(true)
		return stream.Event{}, err
	}
	var ev stream.Event
	err := s.dec.decode(&ev)
	if err == nil {
		return ev, nil
	}
	if !errors.Is(err, io.EOF) {
		s.finish(true)
		return stream.Event{}, err
	}
	if exitErr := s.finish(false); exitErr != nil {
		return stream.Event{}, exitErr
	}
	return stream.Event{}, io.EOF
}

// finish reaps the process once and reports a non-zero exit. With kill
// set the process is stopped first.
func (s *commandSource) finish(kill bool) error {
	s.once.Do(func() {
		if kill {
			s.cancel()
		}
		defer s.cancel()
		if err := s.cmd.Wait(); err != nil {
			msg := strings.TrimSpace(s.stderr.String())
			if len(msg) > 500 {
				msg = msg[len(msg)-500:]
			}
			s.exitErr = fmt.Errorf("engine exited: %w: %s", err, msg)
			s.logger.Warn("engine failed", "error", err, "stderr", msg)
		}
	})
	return s.exitErr
}
