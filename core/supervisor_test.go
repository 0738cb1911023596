package core

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/database/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It stands in for the v2ray binary when
// the supervisor spawns the test executable with GO_WANT_HELPER_PROCESS=1.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "missing config path")
		os.Exit(2)
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var doc BackendConfig
	if err := json.Unmarshal(data, &doc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	term := make(chan os.Signal, 1)
	fmt.Println("helper started")
	fmt.Fprintln(os.Stderr, "helper stderr")

	switch os.Getenv("HELPER_MODE") {
	case "serve":
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", doc.Inbounds[0].Port))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				conn.Close()
			}
		}()
		signal.Notify(term, syscall.SIGTERM)
	case "crash":
		os.Exit(3)
	case "partial":
		fmt.Print("Failed to start: invalid config")
		os.Exit(1)
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
	default:
		signal.Notify(term, syscall.SIGTERM)
	}
	fmt.Println("helper ready")

	select {
	case <-term:
		os.Exit(0)
	case <-time.After(time.Minute):
		os.Exit(1)
	}
}

func helperSettings(t *testing.T, mode string) config.BackendSettings {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("helper backend relies on unix signals")
	}
	return config.BackendSettings{
		Binary:      os.Args[0],
		Args:        []string{"-test.run=TestHelperProcess", "--", "{config}"},
		Env:         []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
		ConfigPath:  filepath.Join(t.TempDir(), "v2ray_config.json"),
		LogCapacity: 100,
		GracePeriod: time.Second,
	}
}

func newSupervisor(t *testing.T, opts config.BackendSettings) *Supervisor {
	t.Helper()
	s := NewSupervisor(opts)
	t.Cleanup(s.Close)
	return s
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func testConfig(port int) *model.ServerConfig {
	return &model.ServerConfig{Secret: "abc", Path: "/vmess", Port: port, Enabled: true}
}

func currentProcess(s *Supervisor) *process {
	var p *process
	s.do(func() { p = s.current })
	return p
}

func hasLog(s *Supervisor, substr string) bool {
	return countLogs(s, substr) > 0
}

func countLogs(s *Supervisor, substr string) int {
	n := 0
	for _, line := range s.Logs() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

func TestStartThenStop(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "serve"))

	require.NoError(t, s.Start(testConfig(freePort(t))))
	assert.True(t, s.IsRunning())
	assert.Equal(t, StateStarting, s.Status().State)

	assert.Eventually(t, func() bool {
		return s.Status().State == StateRunning
	}, 5*time.Second, 20*time.Millisecond)

	st := s.Status()
	assert.Positive(t, st.PID)
	assert.False(t, st.StartedAt.IsZero())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Equal(t, StateStopped, s.Status().State)
	assert.True(t, hasLog(s, "Backend process stopped"))
	assert.False(t, hasLog(s, "exited with code"))
}

func TestStartWritesBackendConfig(t *testing.T) {
	opts := helperSettings(t, "sleep")
	s := newSupervisor(t, opts)

	require.NoError(t, s.Start(testConfig(10000)))
	data, err := os.ReadFile(opts.ConfigPath)
	require.NoError(t, err)

	var doc BackendConfig
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 10000, doc.Inbounds[0].Port)
	assert.Equal(t, "abc", doc.Inbounds[0].Settings.Clients[0].ID)
	assert.Equal(t, "/vmess", doc.Inbounds[0].StreamSettings.WsSettings.Path)

	for _, line := range s.Logs() {
		assert.NotContains(t, line, `"abc"`)
	}
}

func TestStartDisabled(t *testing.T) {
	opts := helperSettings(t, "sleep")
	s := newSupervisor(t, opts)

	cfg := testConfig(freePort(t))
	cfg.Enabled = false
	require.NoError(t, s.Start(cfg))

	assert.False(t, s.IsRunning())
	assert.True(t, hasLog(s, "Backend is disabled in configuration."))
	_, err := os.Stat(opts.ConfigPath)
	assert.True(t, os.IsNotExist(err))
}

func TestStartDisabledStopsRunning(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "sleep"))

	require.NoError(t, s.Start(testConfig(freePort(t))))
	p := currentProcess(s)
	require.NotNil(t, p)

	cfg := testConfig(freePort(t))
	cfg.Enabled = false
	require.NoError(t, s.Start(cfg))
	assert.False(t, s.IsRunning())
	assert.True(t, p.exited())
}

func TestStartInvalidConfigKeepsRunning(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "sleep"))

	require.NoError(t, s.Start(testConfig(freePort(t))))
	before := s.Status().PID

	err := s.Start(&model.ServerConfig{Secret: "abc", Path: "vmess", Port: 10000, Enabled: true})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	assert.ErrorIs(t, s.Start(nil), model.ErrInvalidConfig)

	assert.True(t, s.IsRunning())
	assert.Equal(t, before, s.Status().PID)
}

func TestStartReplacesProcess(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "sleep"))

	first, second := freePort(t), freePort(t)
	require.NoError(t, s.Start(testConfig(first)))
	a := currentProcess(s)
	require.NotNil(t, a)

	require.NoError(t, s.Start(testConfig(second)))
	b := currentProcess(s)
	require.NotNil(t, b)

	assert.True(t, a.exited(), "previous process must be reaped before the new one starts")
	assert.NotEqual(t, a.pid(), b.pid())
	assert.Equal(t, first, a.port)
	assert.Equal(t, second, b.port)
	assert.True(t, s.IsRunning())
	assert.True(t, hasLog(s, "Stopping previous backend process"))
}

func TestStaleExitIgnored(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "sleep"))

	require.NoError(t, s.Start(testConfig(freePort(t))))
	a := currentProcess(s)
	require.NoError(t, s.Start(testConfig(freePort(t))))
	b := currentProcess(s)

	s.send(event{kind: eventExit, proc: a})

	assert.True(t, s.IsRunning())
	assert.Equal(t, b, currentProcess(s))
	assert.NotEqual(t, StateExited, s.Status().State)
	assert.Zero(t, countLogs(s, "exited with code"))
}

func TestSpawnFailure(t *testing.T) {
	opts := helperSettings(t, "sleep")
	opts.Binary = filepath.Join(t.TempDir(), "nonexistent", "v2ray")
	s := newSupervisor(t, opts)

	require.NoError(t, s.Start(testConfig(freePort(t))))
	assert.False(t, s.IsRunning())
	assert.Equal(t, StateStopped, s.Status().State)
	assert.True(t, hasLog(s, "Failed to start backend"))
}

func TestUnsolicitedExit(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "crash"))

	require.NoError(t, s.Start(testConfig(freePort(t))))
	assert.Eventually(t, func() bool {
		return !s.IsRunning()
	}, 5*time.Second, 20*time.Millisecond)

	st := s.Status()
	assert.Equal(t, StateExited, st.State)
	require.NotNil(t, st.LastExitCode)
	assert.Equal(t, 3, *st.LastExitCode)
	assert.True(t, hasLog(s, "Backend process exited with code 3"))
	assert.True(t, hasLog(s, "[STDOUT] helper started"))
	assert.True(t, hasLog(s, "[STDERR] helper stderr"))
}

func TestUnterminatedOutputIsKept(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "partial"))

	require.NoError(t, s.Start(testConfig(freePort(t))))
	require.Eventually(t, func() bool {
		return hasLog(s, "exited with code 1")
	}, 5*time.Second, 20*time.Millisecond)

	diagnostic, exit := -1, -1
	for i, line := range s.Logs() {
		if strings.HasSuffix(line, "[STDOUT] Failed to start: invalid config") {
			diagnostic = i
		}
		if strings.Contains(line, "Backend process exited with code 1") {
			exit = i
		}
	}
	require.NotEqual(t, -1, diagnostic, "last line without a newline must be logged")
	assert.Less(t, diagnostic, exit)
}

func TestStubbornProcessKilled(t *testing.T) {
	opts := helperSettings(t, "stubborn")
	opts.GracePeriod = 300 * time.Millisecond
	s := newSupervisor(t, opts)

	require.NoError(t, s.Start(testConfig(freePort(t))))
	require.Eventually(t, func() bool {
		return hasLog(s, "[STDOUT] helper ready")
	}, 5*time.Second, 20*time.Millisecond)

	began := time.Now()
	s.Stop()
	assert.Less(t, time.Since(began), 3*time.Second)
	assert.False(t, s.IsRunning())
	assert.True(t, hasLog(s, "killing pid"))
}

func TestStopIdempotent(t *testing.T) {
	s := newSupervisor(t, helperSettings(t, "sleep"))

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Equal(t, 2, countLogs(s, "no backend process is running"))
}

func TestClose(t *testing.T) {
	s := NewSupervisor(helperSettings(t, "sleep"))

	require.NoError(t, s.Start(testConfig(freePort(t))))
	p := currentProcess(s)
	require.NotNil(t, p)

	s.Close()
	s.Close()
	assert.True(t, p.exited())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(testConfig(10000)), ErrClosed)
	assert.Empty(t, s.Logs())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "exited", StateExited.String())
}

func TestExpandArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"run", "-c", "/tmp/v2ray_config.json"},
		expandArgs([]string{"run", "-c", "{config}"}, "/tmp/v2ray_config.json"))
}
