package uci

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Transport is the line-oriented channel to a running engine process. The
// session never spawns processes directly; it depends only on this
// interface, so tests can substitute a fake transport (see session_test.go).
type Transport interface {
	// Start spawns the engine and begins a background line reader. Must be
	// called exactly once, before any WriteLine.
	Start() error

	// WriteLine sends one command line to the engine. The terminator is
	// added by the implementation. Writes are serialized internally, but
	// callers that need several commands to stay glued together (they
	// never do, in this driver) must still take the session's own write
	// lock.
	WriteLine(line string) error

	// Lines returns the channel of decoded stdout lines, stripped of their
	// trailing newline. Closed by the reader goroutine when the engine
	// process exits, whether because Dispose tore it down or because it
	// crashed on its own — a closed channel means the engine is gone either
	// way. Callers that also need an explicit shutdown signal (Dispose may
	// be in progress without the process having exited yet) select on their
	// own signal alongside this channel, the way Session.consumeLoop does.
	Lines() <-chan string

	// Dispose terminates the process, stops the reader, and releases file
	// handles. Safe to call more than once; only the first call has effect.
	Dispose() error
}

// ProcessTransport spawns the configured engine binary and exposes its
// stdin/stdout as a Transport. Grounded on the teacher's pkg/uci/engine.go
// (exec.Cmd + StdinPipe/StdoutPipe + bufio.Scanner) and the pack's
// Tecu23-eng-server UCIEngine readLoop/quitChan shape.
type ProcessTransport struct {
	path string
	args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	lines    chan string
	quit     chan struct{}
	disposed sync.Once
	started  bool
}

// NewProcessTransport returns a Transport that will spawn path with args
// when Start is called.
func NewProcessTransport(path string, args ...string) *ProcessTransport {
	return &ProcessTransport{
		path:  path,
		args:  args,
		lines: make(chan string, 256),
		quit:  make(chan struct{}),
	}
}

func (t *ProcessTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("uci: transport already started")
	}

	cmd := exec.Command(t.path, t.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("uci: stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("uci: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("uci: start engine %q: %w", t.path, err)
	}

	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.started = true

	logrus.WithField("path", t.path).Info("uci: engine process started")

	go t.readLoop()

	return nil
}

func (t *ProcessTransport) readLoop() {
	// t.lines has exactly one writer: this goroutine. Closing it here on
	// every exit path, including the engine dying on its own, lets
	// Session.consumeLoop tell an EOF apart from a line with a single
	// channel read instead of polling the process separately.
	defer close(t.lines)

	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		select {
		case t.lines <- line:
		case <-t.quit:
			return
		}
	}
}

func (t *ProcessTransport) WriteLine(line string) error {
	t.mu.Lock()
	stdin := t.stdin
	started := t.started
	t.mu.Unlock()

	if !started {
		return fmt.Errorf("uci: transport not started")
	}

	select {
	case <-t.quit:
		return fmt.Errorf("%w: transport disposed", ErrTerminated)
	default:
	}

	if _, err := io.WriteString(stdin, line+"\n"); err != nil {
		return fmt.Errorf("uci: write line: %w", err)
	}
	return nil
}

func (t *ProcessTransport) Lines() <-chan string {
	return t.lines
}

func (t *ProcessTransport) Dispose() error {
	t.disposed.Do(func() {
		close(t.quit)

		t.mu.Lock()
		cmd := t.cmd
		stdin := t.stdin
		t.mu.Unlock()

		if stdin != nil {
			_ = stdin.Close()
		}
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait() // reap; the process is gone either way after Kill
		}

		logrus.WithField("path", t.path).Info("uci: engine process disposed")
	})
	return nil
}
