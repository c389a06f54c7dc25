package builder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ROTl24/ai-web-generator/internal/logging"
	"github.com/ROTl24/ai-web-generator/internal/progress"
)

// fakeRunner records npm invocations. "run build" creates dist/ unless
// buildExit or buildErr says otherwise.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []string
	gate      chan struct{}
	buildExit int
	buildErr  error
	skipDist  bool
}

func (f *fakeRunner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (Output, error) {
	cmd := strings.Join(args, " ")
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if cmd != "run build" {
		return Output{}, nil
	}
	if f.buildErr != nil {
		return Output{ExitCode: -1}, f.buildErr
	}
	if f.buildExit != 0 {
		return Output{ExitCode: f.buildExit, Text: "line1\nerror TS2304: Cannot find name 'x'\n"}, nil
	}
	if !f.skipDist {
		if err := os.MkdirAll(filepath.Join(dir, OutputDir), 0o755); err != nil {
			return Output{}, err
		}
	}
	return Output{}, nil
}

func (f *fakeRunner) count(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}

func newProject(t *testing.T, withDeps bool) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"name":"demo"}`), 0o644))
	if withDeps {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, DependenciesDir), 0o755))
	}
	return dir
}

func newTestOrchestrator(t *testing.T, r CommandRunner) *Orchestrator {
	t.Helper()
	o := New(Options{Runner: r, Logger: logging.Discard()})
	t.Cleanup(o.Close)
	return o
}

func TestBuild_Success(t *testing.T) {
	r := &fakeRunner{}
	o := newTestOrchestrator(t, r)
	dir := newProject(t, false)

	res, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, 1, r.count("install"))
	assert.Equal(t, 1, r.count("run build"))

	last, ok := o.Latest(dir)
	require.True(t, ok)
	assert.Equal(t, progress.StatusSuccess, last.Status)
	assert.Equal(t, 100, last.Percent)
}

func TestBuild_SkipsInstallWhenDependenciesPresent(t *testing.T) {
	r := &fakeRunner{}
	o := newTestOrchestrator(t, r)
	dir := newProject(t, true)

	ch, cancel, err := o.Watch(dir)
	require.NoError(t, err)
	defer cancel()

	res, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 0, r.count("install"))

	var steps []string
	for e := range ch {
		steps = append(steps, e.Step)
	}
	assert.Equal(t, []string{"waiting", "prepare", "install", "build", "verify", "done"}, steps)
}

func TestBuild_ConcurrentCallsShareOneExecution(t *testing.T) {
	r := &fakeRunner{gate: make(chan struct{})}
	o := newTestOrchestrator(t, r)
	dir := newProject(t, true)

	first := o.BuildAsync(dir)
	second := o.BuildAsync(filepath.Join(dir, ".", "sub", ".."))
	assert.Same(t, first, second)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := o.Build(context.Background(), dir)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	require.Eventually(t, func() bool { return r.count("run build") == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, o.InFlight(dir))
	close(r.gate)
	wg.Wait()

	assert.Equal(t, 1, r.count("run build"))
	assert.Equal(t, results[0], results[1])
	assert.True(t, results[0].Success)
}

func TestBuild_RegistryClearedAfterCompletion(t *testing.T) {
	r := &fakeRunner{buildExit: 2}
	o := newTestOrchestrator(t, r)
	dir := newProject(t, true)

	res, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, o.InFlight(dir), "failed build must leave the registry")

	r.mu.Lock()
	r.buildExit = 0
	r.mu.Unlock()

	res, err = o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, r.count("run build"), "second call starts a fresh build")
	assert.False(t, o.InFlight(dir))
}

func TestBuild_NonZeroExitIsReportedNotRaised(t *testing.T) {
	o := newTestOrchestrator(t, &fakeRunner{buildExit: 2})
	dir := newProject(t, true)

	res, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "npm run build exited with code 2")
	assert.Contains(t, res.Message, "TS2304")

	last, _ := o.Latest(dir)
	assert.Equal(t, progress.StatusFailed, last.Status)
	assert.Equal(t, "failed", last.Step)
}

func TestBuild_Timeout(t *testing.T) {
	o := newTestOrchestrator(t, &fakeRunner{buildErr: ErrTimeout})
	dir := newProject(t, true)

	res, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "timed out")
}

func TestBuild_MissingManifest(t *testing.T) {
	r := &fakeRunner{}
	o := newTestOrchestrator(t, r)
	dir := t.TempDir()

	res, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "package.json not found")
	assert.Empty(t, r.calls)
}

func TestBuild_MissingDirectory(t *testing.T) {
	o := newTestOrchestrator(t, &fakeRunner{})
	res, err := o.Build(context.Background(), filepath.Join(t.TempDir(), "gone"))
	require.NoError(t, err)
	assert.Contains(t, res.Message, "does not exist")
}

func TestBuild_MissingOutput(t *testing.T) {
	o := newTestOrchestrator(t, &fakeRunner{skipDist: true})
	dir := newProject(t, true)

	res, err := o.Build(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "dist/ was not produced")
}

func TestWatch_LateSubscriberSeesTerminalEvent(t *testing.T) {
	o := newTestOrchestrator(t, &fakeRunner{})
	dir := newProject(t, true)

	_, err := o.Build(context.Background(), dir)
	require.NoError(t, err)

	ch, cancel, err := o.Watch(dir)
	require.NoError(t, err)
	defer cancel()

	select {
	case e, ok := <-ch:
		require.True(t, ok)
		assert.Equal(t, progress.StatusSuccess, e.Status)
	case <-time.After(time.Second):
		t.Fatal("late subscriber received nothing")
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	r := &fakeRunner{gate: make(chan struct{})}
	o := newTestOrchestrator(t, r)
	dir := newProject(t, true)

	task := o.BuildAsync(dir)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The build keeps going after the waiter gives up; let it finish
	// before the project dir is removed.
	close(r.gate)
	<-task.Done()
}

// --- ExecRunner ---

func TestExecRunner_ExitCodeAndTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := ExecRunner{}

	out, err := r.Run(context.Background(), t.TempDir(), time.Second, "sh", "-c", "echo boom; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.Contains(t, out.Text, "boom")

	start := time.Now()
	_, err = r.Run(context.Background(), t.TempDir(), 100*time.Millisecond, "sleep", "5")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("def"))
	assert.Equal(t, "cdef", b.String())
}

func TestCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	a, err := CanonicalPath(dir)
	require.NoError(t, err)
	b, err := CanonicalPath(filepath.Join(dir, "x", ".."))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = CanonicalPath("  ")
	assert.Error(t, err)
}
