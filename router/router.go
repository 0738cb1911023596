package router

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"

	"github.com/sagernet/sing/common/bufio"
	E "github.com/sagernet/sing/common/exceptions"
)

const DefaultDialTimeout = 5 * time.Second

type ConfigSource interface {
	GetConfig() (*model.ServerConfig, error)
}

// UpgradeSource is an intercepted upgrade request. TakeRawConnection hands over
// the client socket together with every byte already read from it, starting
// with the request head, which must be replayed to the backend.
type UpgradeSource interface {
	Path() string
	TakeRawConnection() (net.Conn, []byte, error)
}

type UpgradeRouter struct {
	configs     ConfigSource
	dialTimeout time.Duration
	dial        func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewUpgradeRouter(configs ConfigSource, dialTimeout time.Duration) *UpgradeRouter {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	d := &net.Dialer{}
	return &UpgradeRouter{
		configs:     configs,
		dialTimeout: dialTimeout,
		dial:        d.DialContext,
	}
}

// HandleUpgrade routes one upgrade request. A request whose path matches the
// current configuration is spliced to the backend's local port until either
// side closes; anything else gets a bare 404.
func (r *UpgradeRouter) HandleUpgrade(src UpgradeSource) {
	var conn net.Conn
	defer func() {
		if err := recover(); err != nil {
			logger.Error("router: panic while handling upgrade: ", err)
			if conn != nil {
				conn.Close()
			}
		}
	}()

	requestPath := stripQuery(src.Path())

	cfg, err := r.configs.GetConfig()
	if err != nil {
		logger.Error("router: load config failed: ", err)
		conn = reject(src, 500, "Internal Server Error")
		return
	}

	if requestPath != cfg.Path {
		logger.Info("router: no route for upgrade path ", requestPath)
		conn = reject(src, 404, "Not Found")
		return
	}

	var preread []byte
	conn, preread, err = src.TakeRawConnection()
	if err != nil {
		logger.Warning("router: take connection failed: ", err)
		return
	}

	r.bridge(conn, preread, cfg.Port)
}

func (r *UpgradeRouter) bridge(conn net.Conn, preread []byte, port int) {
	defer conn.Close()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	ctx, cancel := context.WithTimeout(context.Background(), r.dialTimeout)
	backend, err := r.dial(ctx, "tcp", addr)
	cancel()
	if err != nil {
		logger.Warning("router: dial backend ", addr, " failed: ", err)
		writeStatus(conn, 502, "Bad Gateway")
		return
	}
	defer backend.Close()

	if len(preread) > 0 {
		if _, err := backend.Write(preread); err != nil {
			logger.Warning("router: replay request to ", addr, " failed: ", err)
			writeStatus(conn, 502, "Bad Gateway")
			return
		}
	}

	logger.Debug("router: bridging ", conn.RemoteAddr(), " to ", addr)
	err = bufio.CopyConn(context.Background(), conn, backend)
	if err != nil && !E.IsClosedOrCanceled(err) && err != io.EOF {
		logger.Debug("router: bridge ", conn.RemoteAddr(), " ended: ", err)
	}
}

// reject answers src with a minimal status response and closes it.
func reject(src UpgradeSource, code int, text string) net.Conn {
	conn, _, err := src.TakeRawConnection()
	if err != nil {
		logger.Warning("router: take connection failed: ", err)
		return nil
	}
	writeStatus(conn, code, text)
	conn.Close()
	return conn
}

func writeStatus(conn net.Conn, code int, text string) {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	fmt.Fprintf(conn, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", code, text)
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
