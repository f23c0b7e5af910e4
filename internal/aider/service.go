// Package aider manages a long-lived aider subprocess across multiple
// logical operations: lifecycle, a serialized command queue, output
// correlation, timeout enforcement and a time-bounded repo-map cache.
//
// The subprocess has a single input/output stream, so at most one
// command is ever in flight; the dispatch loop pops the next command
// only after the current one settles or times out. Under Go's
// concurrency model that serialization needs an explicit queue and
// mutex, which this package provides.
package aider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultCommandTimeout = 30 * time.Second
	defaultStartupTimeout = 10 * time.Second
	defaultMapTTL         = 60 * time.Second
)

var (
	// ErrTerminated marks commands failed because the subprocess died.
	// Every queued and in-flight command fails with it atomically.
	ErrTerminated = errors.New("aider process terminated")

	// ErrTimeout marks a command that saw no completion marker within
	// the timeout window. Only that command fails; the queue continues.
	ErrTimeout = errors.New("aider command timed out")
)

// State is the service lifecycle state.
type State int

const (
	Stopped State = iota
	Starting
	Ready
	Dispatching
	Terminating
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Dispatching:
		return "dispatching"
	case Terminating:
		return "terminating"
	}
	return "unknown"
}

// Config controls the subprocess and its timeouts.
type Config struct {
	Command        string   // Binary name or path (default "aider")
	Args           []string // Extra arguments
	Model          string   // Passed as --model when set
	WorkDir        string
	CommandTimeout time.Duration
	StartupTimeout time.Duration
	MapTTL         time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Command == "" {
		out.Command = "aider"
	}
	if out.CommandTimeout <= 0 {
		out.CommandTimeout = defaultCommandTimeout
	}
	if out.StartupTimeout <= 0 {
		out.StartupTimeout = defaultStartupTimeout
	}
	if out.MapTTL <= 0 {
		out.MapTTL = defaultMapTTL
	}
	return out
}

// command is one queued instruction. It settles exactly once
// (fulfilled, failed, timed out or terminated) and is then discarded,
// never reused or retried.
type command struct {
	id          int64
	instruction string
	files       []string

	output strings.Builder

	settleOnce sync.Once
	done       chan struct{}
	result     string
	err        error
}

func (c *command) settle(result string, err error) {
	c.settleOnce.Do(func() {
		c.result = result
		c.err = err
		close(c.done)
	})
}

// run holds the per-process state recreated on every start, so a
// stopped service can be started again cleanly.
type run struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	wake   chan struct{}
	exited chan struct{}
	ready  chan struct{}

	readers   sync.WaitGroup
	exitOnce  sync.Once
	readyOnce sync.Once
}

// Service owns one aider subprocess. Construct it explicitly and pass
// it to whatever needs it; teardown is Stop, tied to the owner's
// lifetime.
type Service struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	state    State
	queue    []*command
	inflight *command
	run      *run

	mapValue string
	mapAt    time.Time

	idCounter atomic.Int64
}

// NewService creates an orchestrator for the configured subprocess.
// Nothing is launched until Start or the first Execute.
func NewService(cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg.withDefaults(), log: log}
}

// State reports the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the subprocess and waits for it to become ready: a
// readiness marker in its output, or the startup timeout elapsing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		return nil
	}

	args := append([]string(nil), s.cfg.Args...)
	if s.cfg.Model != "" {
		args = append(args, "--model", s.cfg.Model)
	}
	cmd := exec.Command(s.cfg.Command, args...)
	cmd.Dir = s.cfg.WorkDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start %s: %w", s.cfg.Command, err)
	}

	r := &run{
		cmd:    cmd,
		stdin:  stdin,
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
		ready:  make(chan struct{}),
	}
	s.run = r
	s.state = Starting
	s.mu.Unlock()

	s.log.Debug("aider starting", "command", s.cfg.Command, "pid", cmd.Process.Pid)

	r.readers.Add(2)
	go s.readLoop(r, stdout)
	go s.readLoop(r, stderr)
	go s.waitLoop(r)

	select {
	case <-r.ready:
	case <-time.After(s.cfg.StartupTimeout):
		// No readiness marker; assume the process is interactive-quiet.
	case <-r.exited:
		return fmt.Errorf("%s exited during startup: %w", s.cfg.Command, ErrTerminated)
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	if s.state == Starting {
		s.state = Ready
	}
	stillUp := s.state == Ready || s.state == Dispatching
	s.mu.Unlock()
	if !stillUp {
		return fmt.Errorf("%s exited during startup: %w", s.cfg.Command, ErrTerminated)
	}

	go s.dispatchLoop(r)
	return nil
}

// Stop kills the subprocess. Outstanding commands fail with
// ErrTerminated via the exit path.
func (s *Service) Stop() {
	s.mu.Lock()
	r := s.run
	if r == nil || s.state == Stopped {
		s.mu.Unlock()
		return
	}
	s.state = Terminating
	s.mu.Unlock()

	_ = r.stdin.Close()
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	<-r.exited
}

// Execute enqueues one instruction (with optional file attachments)
// and blocks until it settles or ctx is cancelled. A stopped service
// is started first.
func (s *Service) Execute(ctx context.Context, instruction string, files []string) (string, error) {
	if err := s.ensureStarted(ctx); err != nil {
		return "", err
	}
	c := s.newCommand(instruction, files)
	s.enqueue(c, false)

	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RepoMap returns the cached repository map when fresh, otherwise
// issues one synthetic /map command ahead of the queue and caches the
// result. Failure to generate a map degrades to an empty string.
func (s *Service) RepoMap(ctx context.Context) string {
	s.mu.Lock()
	if !s.mapAt.IsZero() && time.Since(s.mapAt) <= s.cfg.MapTTL {
		v := s.mapValue
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()

	if err := s.ensureStarted(ctx); err != nil {
		s.log.Warn("repo map unavailable", "error", err)
		return ""
	}

	// The one deliberate ordering exception: the synthetic map command
	// jumps the FIFO queue.
	c := s.newCommand("/map", nil)
	s.enqueue(c, true)

	select {
	case <-c.done:
	case <-ctx.Done():
		return ""
	}
	if c.err != nil {
		s.log.Warn("repo map generation failed", "error", c.err)
		return ""
	}

	s.mu.Lock()
	s.mapValue = c.result
	s.mapAt = time.Now()
	s.mu.Unlock()
	return c.result
}

func (s *Service) ensureStarted(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == Stopped {
		return s.Start(ctx)
	}
	if state == Terminating {
		return ErrTerminated
	}
	return nil
}

func (s *Service) newCommand(instruction string, files []string) *command {
	return &command{
		id:          s.idCounter.Add(1),
		instruction: instruction,
		files:       files,
		done:        make(chan struct{}),
	}
}

func (s *Service) enqueue(c *command, front bool) {
	s.mu.Lock()
	if s.state == Stopped || s.state == Terminating {
		s.mu.Unlock()
		c.settle("", fmt.Errorf("command %d not dispatched: %w", c.id, ErrTerminated))
		return
	}
	if front {
		s.queue = append([]*command{c}, s.queue...)
	} else {
		s.queue = append(s.queue, c)
	}
	r := s.run
	s.mu.Unlock()
	kick(r.wake)
}

func kick(wake chan struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}

// dispatchLoop serializes command dispatch: one command at a time,
// the next popped only after the current settles or times out.
func (s *Service) dispatchLoop(r *run) {
	for {
		select {
		case <-r.exited:
			return
		case <-r.wake:
		}

		for {
			s.mu.Lock()
			if s.inflight != nil || len(s.queue) == 0 || (s.state != Ready && s.state != Dispatching) {
				s.mu.Unlock()
				break
			}
			c := s.queue[0]
			s.queue = s.queue[1:]
			s.inflight = c
			s.state = Dispatching
			s.mu.Unlock()

			if err := s.writeCommand(r, c); err != nil {
				c.settle("", fmt.Errorf("write to %s: %w", s.cfg.Command, err))
				s.clearInflight(c)
				continue
			}

			timer := time.NewTimer(s.cfg.CommandTimeout)
			select {
			case <-c.done:
				timer.Stop()
			case <-timer.C:
				// Completion and timeout race; settle is once-only, so
				// a late legitimate completion becomes a no-op.
				c.settle("", fmt.Errorf("no completion marker within %s: %w", s.cfg.CommandTimeout, ErrTimeout))
				s.clearInflight(c)
			case <-r.exited:
				timer.Stop()
				return
			}
		}
	}
}

func (s *Service) writeCommand(r *run, c *command) error {
	for _, file := range c.files {
		if _, err := fmt.Fprintf(r.stdin, "/add %s\n", file); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(r.stdin, "%s\n", c.instruction)
	return err
}

func (s *Service) clearInflight(c *command) {
	s.mu.Lock()
	if s.inflight == c {
		s.inflight = nil
		if s.state == Dispatching {
			s.state = Ready
		}
	}
	s.mu.Unlock()
}

// readLoop correlates subprocess output with the in-flight command.
// It runs once for stdout and once for stderr; handleLine serializes
// under the service mutex.
// With at most one command in flight, every line between dispatch and
// completion marker belongs to it.
func (s *Service) readLoop(r *run, stdout io.Reader) {
	defer r.readers.Done()
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.handleLine(r, scanner.Text())
	}
}

func (s *Service) handleLine(r *run, line string) {
	stripped := stripANSI(line)

	s.mu.Lock()
	if s.state == Starting && isReadyMarker(stripped) {
		r.readyOnce.Do(func() { close(r.ready) })
	}
	c := s.inflight
	if c == nil {
		s.mu.Unlock()
		return
	}
	c.output.WriteString(line)
	c.output.WriteByte('\n')
	finished := isCompletionMarker(stripped)
	var raw string
	if finished {
		s.inflight = nil
		if s.state == Dispatching {
			s.state = Ready
		}
		raw = c.output.String()
	}
	s.mu.Unlock()

	if finished {
		c.settle(cleanOutput(raw, c.instruction), nil)
		kick(r.wake)
	}
}

// waitLoop reaps the subprocess and fails every outstanding command
// atomically when it exits.
func (s *Service) waitLoop(r *run) {
	r.readers.Wait()
	waitErr := r.cmd.Wait()

	s.mu.Lock()
	s.state = Stopped
	failed := s.queue
	s.queue = nil
	if s.inflight != nil {
		failed = append([]*command{s.inflight}, failed...)
		s.inflight = nil
	}
	s.run = nil
	s.mu.Unlock()

	err := ErrTerminated
	if waitErr != nil {
		err = fmt.Errorf("%w: %v", ErrTerminated, waitErr)
	}
	for _, c := range failed {
		c.settle("", err)
	}

	s.log.Debug("aider exited", "error", waitErr, "failed_commands", len(failed))
	r.exitOnce.Do(func() { close(r.exited) })
}
