package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"
)

var ErrClosed = errors.New("supervisor is closed")

type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	// StateExited is a stopped state entered when the backend exits on its own.
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

type Status struct {
	State        State
	PID          int
	StartedAt    time.Time
	Uptime       time.Duration
	LastExitCode *int
}

// Running reports whether a backend process is tracked.
func (st Status) Running() bool {
	return st.State == StateStarting || st.State == StateRunning
}

type eventKind int

const (
	eventLine eventKind = iota
	eventReady
	eventExit
)

type event struct {
	kind eventKind
	proc *process
	line string
}

// Supervisor keeps at most one backend process alive. All state is owned by a
// single loop goroutine; public methods hand it closures and wait for them.
type Supervisor struct {
	opts config.BackendSettings

	calls    chan func()
	events   chan event
	stopped  chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once

	current  *process
	state    State
	logs     *LogBuffer
	lastExit *int
	nextID   uint64
}

func NewSupervisor(opts config.BackendSettings) *Supervisor {
	d := config.DefaultSettings().Backend
	if opts.Binary == "" {
		opts.Binary = d.Binary
	}
	if len(opts.Args) == 0 {
		opts.Args = d.Args
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = d.ConfigPath
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = d.GracePeriod
	}
	s := &Supervisor{
		opts:     opts,
		calls:    make(chan func()),
		events:   make(chan event),
		stopped:  make(chan struct{}),
		loopDone: make(chan struct{}),
		logs:     NewLogBuffer(opts.LogCapacity),
	}
	go s.run()
	return s
}

// Start replaces the running backend with one built from cfg. It returns once
// the spawn has been attempted; spawn failures only show up in Logs and Status.
func (s *Supervisor) Start(cfg *model.ServerConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: no configuration", model.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	snapshot := *cfg
	if !s.do(func() { s.start(&snapshot) }) {
		return ErrClosed
	}
	return nil
}

func (s *Supervisor) Stop() {
	s.do(s.stop)
}

func (s *Supervisor) IsRunning() bool {
	var running bool
	s.do(func() { running = s.current != nil })
	return running
}

func (s *Supervisor) Logs() []string {
	var lines []string
	if !s.do(func() { lines = s.logs.Lines() }) {
		return []string{}
	}
	return lines
}

func (s *Supervisor) Status() Status {
	var st Status
	s.do(func() {
		st.State = s.state
		if s.lastExit != nil {
			code := *s.lastExit
			st.LastExitCode = &code
		}
		if p := s.current; p != nil {
			st.PID = p.pid()
			st.StartedAt = p.startedAt
			st.Uptime = time.Since(p.startedAt)
		}
	})
	return st
}

// Close terminates the backend and stops the loop. Later calls are no-ops.
func (s *Supervisor) Close() {
	s.stopOnce.Do(func() { close(s.stopped) })
	<-s.loopDone
}

func (s *Supervisor) do(fn func()) bool {
	done := make(chan struct{})
	call := func() {
		fn()
		close(done)
	}
	select {
	case s.calls <- call:
	case <-s.loopDone:
		return false
	}
	<-done
	return true
}

func (s *Supervisor) send(ev event) {
	select {
	case s.events <- ev:
	case <-s.stopped:
	}
}

func (s *Supervisor) run() {
	defer close(s.loopDone)
	for {
		select {
		case fn := <-s.calls:
			fn()
		case ev := <-s.events:
			s.handle(ev)
		case <-s.stopped:
			if s.current != nil {
				old := s.current
				s.current = nil
				s.terminate(old)
				s.state = StateStopped
				s.logf("Backend process stopped (pid %d).", old.pid())
			}
			return
		}
	}
}

func (s *Supervisor) handle(ev event) {
	switch ev.kind {
	case eventLine:
		s.logs.Add(stamp(ev.line))
		logger.Debug("backend: ", ev.line)
	case eventReady:
		if ev.proc == s.current && s.state == StateStarting {
			s.state = StateRunning
			s.logf("Backend is accepting connections on port %d.", ev.proc.port)
		}
	case eventExit:
		if ev.proc != s.current {
			logger.Debugf("backend: ignoring exit of superseded process %d", ev.proc.id)
			return
		}
		code := ev.proc.exitCode
		s.current = nil
		s.state = StateExited
		s.lastExit = &code
		s.logf("Backend process exited with code %d", code)
	}
}

func (s *Supervisor) start(cfg *model.ServerConfig) {
	if s.current != nil {
		old := s.current
		s.current = nil
		s.logf("Stopping previous backend process (pid %d).", old.pid())
		s.terminate(old)
	}
	s.state = StateStopped

	if !cfg.Enabled {
		s.logf("Backend is disabled in configuration.")
		return
	}

	path, err := WriteBackendConfig(s.opts.ConfigPath, RenderBackendConfig(cfg, s.opts.LogLevel))
	if err != nil {
		s.logf("Failed to write backend config: %v", err)
		return
	}
	s.logf("Starting backend on port %d with ws path %s (config %s).", cfg.Port, cfg.Path, path)

	p, err := s.spawn(path, cfg.Port)
	if err != nil {
		s.logf("Failed to start backend: %v", err)
		return
	}
	s.current = p
	s.state = StateStarting
	s.logf("Backend started with pid %d.", p.pid())
}

func (s *Supervisor) stop() {
	if s.current == nil {
		s.state = StateStopped
		s.logf("Stop requested but no backend process is running.")
		return
	}
	old := s.current
	s.current = nil
	s.terminate(old)
	s.state = StateStopped
	s.logf("Backend process stopped (pid %d).", old.pid())
}

func (s *Supervisor) spawn(configPath string, port int) (*process, error) {
	cmd := exec.Command(s.opts.Binary, expandArgs(s.opts.Args, configPath)...)
	if len(s.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), s.opts.Env...)
	}
	cmd.WaitDelay = s.opts.GracePeriod

	s.nextID++
	p := &process{
		id:   s.nextID,
		cmd:  cmd,
		port: port,
		done: make(chan struct{}),
	}
	p.stdout = &lineWriter{s: s, p: p, tag: "[STDOUT] "}
	p.stderr = &lineWriter{s: s, p: p, tag: "[STDERR] "}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p.startedAt = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go s.wait(p)
	go s.probe(ctx, p)
	return p, nil
}

// terminate sends SIGTERM, waits out the grace period, then kills. Events keep
// being handled while waiting so the child's output writers never block.
func (s *Supervisor) terminate(p *process) {
	p.cancel()
	if err := p.signalTerm(); err != nil && !p.exited() {
		logger.Warning("backend: terminate pid ", p.pid(), " failed: ", err)
	}
	if s.waitExit(p, s.opts.GracePeriod) {
		s.recordExit(p)
		return
	}
	s.logf("Backend did not exit within %s, killing pid %d.", s.opts.GracePeriod, p.pid())
	if err := p.kill(); err != nil {
		logger.Warning("backend: kill pid ", p.pid(), " failed: ", err)
	}
	if s.waitExit(p, s.opts.GracePeriod) {
		s.recordExit(p)
		return
	}
	logger.Error("backend: pid ", p.pid(), " was not reaped after kill")
}

func (s *Supervisor) recordExit(p *process) {
	code := p.exitCode
	s.lastExit = &code
}

func (s *Supervisor) waitExit(p *process, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-p.done:
			return true
		case <-timer.C:
			return false
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

// logf appends a supervisor message to the ring and the panel log.
// Messages never include the client secret.
func (s *Supervisor) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.logs.Add(stamp(msg))
	logger.Info("backend: ", msg)
}

func stamp(msg string) string {
	return "[" + time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00") + "] " + msg
}
