package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/igor04091968/v2panel/api"
	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/logger"
	"github.com/igor04091968/v2panel/router"
	"github.com/igor04091968/v2panel/util/common"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const readHeaderTimeout = 10 * time.Second

type Upgrader interface {
	HandleUpgrade(src router.UpgradeSource)
}

type Server struct {
	httpServer  *http.Server
	listener    net.Listener
	listen      string
	authEnabled bool
	apiService  *api.ApiService
	upgrader    Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(listen string, authEnabled bool, apiService *api.ApiService, upgrader Upgrader) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		listen:      listen,
		authEnabled: authEnabled,
		apiService:  apiService,
		upgrader:    upgrader,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Server) initRouter() *gin.Engine {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	// upgrades are routed on the raw socket before any panel route can match
	engine.Use(s.upgradeMiddleware)

	store := cookie.NewStore([]byte(common.Random(32)))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	engine.Use(sessions.Sessions("v2panel", store))

	g := engine.Group("/api")
	g.Use(gzip.Gzip(gzip.DefaultCompression))
	api.NewAPIHandler(g, s.apiService, s.authEnabled)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
	return engine
}

func (s *Server) upgradeMiddleware(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.Next()
		return
	}
	s.upgrader.HandleUpgrade(router.NewHijackSource(c.Writer, c.Request))
	c.Abort()
}

func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			s.Stop()
		}
	}()

	listener, err := net.Listen("tcp", s.listen)
	if err != nil {
		return err
	}
	logger.Info("web server run http on ", listener.Addr())
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.initRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("web server stopped: ", err)
		}
	}()

	return nil
}

func (s *Server) Stop() error {
	s.cancel()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
