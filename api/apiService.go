package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/igor04091968/v2panel/core"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"
	"github.com/igor04091968/v2panel/service"
	"github.com/igor04091968/v2panel/util"

	"github.com/gin-gonic/gin"
)

type Supervisor interface {
	Start(cfg *model.ServerConfig) error
	Stop()
	IsRunning() bool
	Logs() []string
	Status() core.Status
}

type ConfigStore interface {
	GetConfig() (*model.ServerConfig, error)
	UpdateConfig(u *model.ConfigUpdate) (*model.ServerConfig, error)
	RegenerateSecret() (*model.ServerConfig, error)
	SetEnabled(enabled bool) (*model.ServerConfig, error)
}

// ApiService holds the handlers. They only translate between HTTP and the
// config store and supervisor.
type ApiService struct {
	configs    ConfigStore
	supervisor Supervisor
	users      *service.UserService
	server     *service.ServerService
	panel      *service.PanelService
}

func NewApiService(configs ConfigStore, supervisor Supervisor, users *service.UserService) *ApiService {
	return &ApiService{
		configs:    configs,
		supervisor: supervisor,
		users:      users,
		server:     &service.ServerService{},
		panel:      service.NewPanelService(),
	}
}

func (a *ApiService) GetConfig(c *gin.Context) {
	cfg, err := a.configs.GetConfig()
	if err != nil {
		serverError(c, "Failed to load config", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (a *ApiService) UpdateConfig(c *gin.Context) {
	var update model.ConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		invalidInput(c)
		return
	}
	cfg, err := a.configs.UpdateConfig(&update)
	if errors.Is(err, model.ErrInvalidConfig) {
		logger.Info("rejected config update: ", err)
		invalidInput(c)
		return
	} else if err != nil {
		serverError(c, "Failed to update config", err)
		return
	}
	a.startBackend(cfg)
	c.JSON(http.StatusOK, cfg)
}

func (a *ApiService) GetStatus(c *gin.Context) {
	st := a.supervisor.Status()
	data := gin.H{
		"running": st.Running(),
		"state":   st.State.String(),
	}
	if st.PID > 0 {
		data["pid"] = st.PID
		data["uptimeSeconds"] = int64(st.Uptime.Seconds())
		if usage := a.server.GetProcessUsage(st.PID); usage != nil {
			data["cpuPercent"] = usage.CPUPercent
			data["memoryRss"] = usage.MemoryRSS
		}
	}
	if st.LastExitCode != nil {
		data["lastExitCode"] = *st.LastExitCode
	}
	c.JSON(http.StatusOK, data)
}

// Restart answers success as soon as the restart has been issued. Whether the
// backend came up is visible through status and logs.
func (a *ApiService) Restart(c *gin.Context) {
	cfg, err := a.configs.GetConfig()
	if err != nil {
		serverError(c, "Failed to load config", err)
		return
	}
	a.startBackend(cfg)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *ApiService) GetLogs(c *gin.Context) {
	if c.Query("source") == "panel" {
		count, err := strconv.Atoi(c.DefaultQuery("count", "100"))
		if err != nil || count <= 0 {
			count = 100
		}
		level := c.DefaultQuery("level", "info")
		c.JSON(http.StatusOK, gin.H{"lines": logger.GetLogs(count, level)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": a.supervisor.Logs()})
}

func (a *ApiService) RegenerateSecret(c *gin.Context) {
	cfg, err := a.configs.RegenerateSecret()
	if err != nil {
		serverError(c, "Failed to regenerate secret", err)
		return
	}
	a.startBackend(cfg)
	c.JSON(http.StatusOK, cfg)
}

func (a *ApiService) StartBackend(c *gin.Context) {
	cfg, err := a.configs.SetEnabled(true)
	if err != nil {
		serverError(c, "Failed to enable backend", err)
		return
	}
	a.startBackend(cfg)
	c.JSON(http.StatusOK, cfg)
}

func (a *ApiService) StopBackend(c *gin.Context) {
	cfg, err := a.configs.SetEnabled(false)
	if err != nil {
		serverError(c, "Failed to disable backend", err)
		return
	}
	a.supervisor.Stop()
	c.JSON(http.StatusOK, cfg)
}

func (a *ApiService) GetLink(c *gin.Context) {
	cfg, err := a.configs.GetConfig()
	if err != nil {
		serverError(c, "Failed to load config", err)
		return
	}
	host := c.Query("host")
	if host == "" {
		host = getHostname(c)
	}
	vmess, err := util.VmessLink(cfg, host)
	if err != nil {
		serverError(c, "Failed to build link", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vmess":      vmess,
		"httpCustom": util.HTTPCustomPayload(cfg, host),
	})
}

func (a *ApiService) GetServerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.GetHostStatus())
}

func (a *ApiService) RestartPanel(c *gin.Context) {
	err := a.panel.RestartPanel(3 * time.Second)
	jsonMsg(c, "restartPanel", err)
}

func (a *ApiService) Login(c *gin.Context) {
	var form struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&form); err != nil || form.Username == "" || form.Password == "" {
		invalidInput(c)
		return
	}
	user := a.users.CheckUser(form.Username, form.Password, getRemoteIp(c))
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}
	if err := SetLoginUser(c, user.Username, 0); err != nil {
		serverError(c, "Failed to save session", err)
		return
	}
	logger.Info("user ", user.Username, " logged in from ", getRemoteIp(c))
	jsonMsg(c, "login", nil)
}

func (a *ApiService) Logout(c *gin.Context) {
	loginUser := GetLoginUser(c)
	if loginUser != "" {
		logger.Info("user ", loginUser, " logged out")
	}
	if err := ClearSession(c); err != nil {
		jsonMsg(c, "logout", err)
		return
	}
	jsonMsg(c, "logout", nil)
}

func (a *ApiService) startBackend(cfg *model.ServerConfig) {
	if err := a.supervisor.Start(cfg); err != nil {
		logger.Warning("start backend failed: ", err)
	}
}
