package cronjob

import (
	"github.com/igor04091968/v2panel/core"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"
)

type ConfigSource interface {
	GetConfig() (*model.ServerConfig, error)
}

type Supervisor interface {
	Start(cfg *model.ServerConfig) error
	IsRunning() bool
	Status() core.Status
}

// CheckBackendJob restarts the backend when it is enabled but not running.
type CheckBackendJob struct {
	configs    ConfigSource
	supervisor Supervisor
}

func NewCheckBackendJob(configs ConfigSource, supervisor Supervisor) *CheckBackendJob {
	return &CheckBackendJob{
		configs:    configs,
		supervisor: supervisor,
	}
}

func (j *CheckBackendJob) Run() {
	cfg, err := j.configs.GetConfig()
	if err != nil {
		logger.Warning("keep-alive: load config failed: ", err)
		return
	}
	if !cfg.Enabled || j.supervisor.IsRunning() {
		return
	}
	logger.Info("keep-alive: backend is enabled but not running, restarting")
	if err := j.supervisor.Start(cfg); err != nil {
		logger.Error("keep-alive: restart failed: ", err)
	}
}
