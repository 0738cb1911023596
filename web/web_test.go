package web

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/igor04091968/v2panel/api"
	"github.com/igor04091968/v2panel/core"
	"github.com/igor04091968/v2panel/database"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/router"
	"github.com/igor04091968/v2panel/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleSupervisor struct{}

func (idleSupervisor) Start(*model.ServerConfig) error { return nil }
func (idleSupervisor) Stop()                           {}
func (idleSupervisor) IsRunning() bool                 { return false }
func (idleSupervisor) Logs() []string                  { return []string{} }
func (idleSupervisor) Status() core.Status             { return core.Status{} }

func echoBackend(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				io.Copy(conn, conn)
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func startServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "v2panel.db"))
	require.NoError(t, err)
	configs := service.NewConfigService(db)

	port := echoBackend(t)
	_, err = configs.UpdateConfig(&model.ConfigUpdate{Port: &port})
	require.NoError(t, err)

	apiService := api.NewApiService(configs, idleSupervisor{}, service.NewUserService(db))
	s := NewServer("127.0.0.1:0", false, apiService, router.NewUpgradeRouter(configs, time.Second))
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	return s
}

func upgradeRequest(path string) string {
	return "GET " + path + " HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
}

func TestUpgradeIsSplicedToBackend(t *testing.T) {
	s := startServer(t)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = io.WriteString(conn, upgradeRequest("/vmess?ed=2048"))
	require.NoError(t, err)

	// the echo backend returns the replayed request head
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "GET /vmess?ed=2048 HTTP/1.1\r\n", line)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
	}

	_, err = io.WriteString(conn, "ping")
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(reader, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestUpgradeWrongPathIs404(t *testing.T) {
	s := startServer(t)

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	_, err = io.WriteString(conn, upgradeRequest("/other"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 404 Not Found", strings.TrimRight(line, "\r\n"))
}

func TestPlainRequestsReachAPI(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get("http://" + s.Addr().String() + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get("http://" + s.Addr().String() + "/vmess")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
