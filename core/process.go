package core

import (
	"bytes"
	"context"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	probeInterval = 250 * time.Millisecond
	maxLineLength = 4096
)

// process is one spawned backend instance. Its identity, not its pid, is what
// events are matched against.
type process struct {
	id        uint64
	cmd       *exec.Cmd
	port      int
	startedAt time.Time
	cancel    context.CancelFunc
	stdout    *lineWriter
	stderr    *lineWriter

	// done is closed once the OS process has been reaped; exitCode is valid after that.
	done     chan struct{}
	exitCode int
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *process) signalTerm() error {
	if runtime.GOOS == "windows" {
		return p.cmd.Process.Kill()
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *process) kill() error {
	err := p.cmd.Process.Kill()
	if err == os.ErrProcessDone {
		return nil
	}
	return err
}

func exitCodeOf(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

func expandArgs(args []string, configPath string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{config}", configPath)
	}
	return out
}

// lineWriter turns a child's output stream into one line event per line.
type lineWriter struct {
	s       *Supervisor
	p       *process
	tag     string
	partial []byte
}

func (w *lineWriter) Write(b []byte) (int, error) {
	n := len(b)
	w.partial = append(w.partial, b...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.emit(w.partial[:i])
		w.partial = w.partial[i+1:]
	}
	if len(w.partial) >= maxLineLength {
		w.emit(w.partial)
		w.partial = nil
	}
	if len(w.partial) == 0 {
		w.partial = nil
	}
	return n, nil
}

// flush emits output left after the last newline. Only call it once the
// stream has ended.
func (w *lineWriter) flush() {
	if len(w.partial) > 0 {
		w.emit(w.partial)
		w.partial = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	text := strings.TrimRight(string(line), "\r")
	if strings.TrimSpace(text) == "" {
		return
	}
	w.s.send(event{kind: eventLine, proc: w.p, line: w.tag + text})
}

// probe dials the backend's local port until it accepts or ctx ends.
func (s *Supervisor) probe(ctx context.Context, p *process) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(p.port))
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		conn, err := net.DialTimeout("tcp", addr, probeInterval)
		if err != nil {
			continue
		}
		conn.Close()
		s.send(event{kind: eventReady, proc: p})
		return
	}
}

func (s *Supervisor) wait(p *process) {
	err := p.cmd.Wait()
	// the copy goroutines are done once Wait returns
	p.stdout.flush()
	p.stderr.flush()
	p.exitCode = exitCodeOf(p.cmd, err)
	p.cancel()
	close(p.done)
	s.send(event{kind: eventExit, proc: p})
}
