package api

import (
	"strings"

	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	*ApiService
	authEnabled bool
}

func NewAPIHandler(g *gin.RouterGroup, s *ApiService, authEnabled bool) {
	a := &APIHandler{
		ApiService:  s,
		authEnabled: authEnabled,
	}
	a.initRouter(g)
}

func (a *APIHandler) initRouter(g *gin.RouterGroup) {
	if a.authEnabled {
		g.Use(func(c *gin.Context) {
			path := c.Request.URL.Path
			if !strings.HasSuffix(path, "login") && !strings.HasSuffix(path, "logout") {
				checkLogin(c)
			}
		})
	}

	g.GET("/config", a.GetConfig)
	g.POST("/config", a.UpdateConfig)
	g.GET("/status", a.GetStatus)
	g.POST("/restart", a.Restart)
	g.GET("/logs", a.GetLogs)
	g.POST("/secret", a.RegenerateSecret)
	g.POST("/start", a.StartBackend)
	g.POST("/stop", a.StopBackend)
	g.GET("/link", a.GetLink)
	g.GET("/server", a.GetServerStatus)
	g.POST("/restartPanel", a.RestartPanel)
	g.POST("/login", a.Login)
	g.GET("/logout", a.Logout)
}
