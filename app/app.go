package app

import (
	"context"
	"log"
	"os"

	"github.com/igor04091968/v2panel/api"
	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/core"
	"github.com/igor04091968/v2panel/cronjob"
	"github.com/igor04091968/v2panel/database"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"
	"github.com/igor04091968/v2panel/router"
	"github.com/igor04091968/v2panel/service"
	"github.com/igor04091968/v2panel/telegram"
	"github.com/igor04091968/v2panel/web"

	"github.com/op/go-logging"
	"gorm.io/gorm"
)

type APP struct {
	settings       *config.Settings
	db             *gorm.DB
	configService  *service.ConfigService
	userService    *service.UserService
	serverService  *service.ServerService
	panelService   *service.PanelService
	supervisor     *core.Supervisor
	webServer      *web.Server
	cronJob        *cronjob.CronJob
	telegramConfig *telegram.Config
	botCancel      context.CancelFunc
}

func NewApp() *APP {
	return &APP{}
}

func (a *APP) Init() error {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	a.initLog()

	settings, err := config.LoadSettings(config.GetSettingsPath())
	if err != nil {
		return err
	}
	a.settings = settings

	db, err := database.InitDB(config.GetDBPath())
	if err != nil {
		return err
	}
	a.db = db

	a.initTelegramConfig()

	a.configService = service.NewConfigService(db)
	a.userService = service.NewUserService(db)
	a.serverService = &service.ServerService{}
	a.panelService = service.NewPanelService()
	a.supervisor = core.NewSupervisor(settings.Backend)

	apiService := api.NewApiService(a.configService, a.supervisor, a.userService)
	upgrades := router.NewUpgradeRouter(a.configService, settings.Router.DialTimeout)
	a.webServer = web.NewServer(settings.Listen, settings.Auth.Enabled, apiService, upgrades)
	a.cronJob = cronjob.NewCronJob(a.configService, a.supervisor, a.serverService)

	return nil
}

func (a *APP) Start() error {
	loc, err := a.settings.GetTimeLocation()
	if err != nil {
		return err
	}

	err = a.cronJob.Start(loc, a.settings.KeepAlive)
	if err != nil {
		return err
	}

	err = a.webServer.Start()
	if err != nil {
		return err
	}

	err = a.RestartBackend()
	if err != nil {
		logger.Error(err)
	}

	if a.telegramConfig != nil && a.telegramConfig.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		a.botCancel = cancel
		go telegram.NewBot(a.telegramConfig, a).Start(ctx)
	}

	return nil
}

func (a *APP) Stop() {
	if a.botCancel != nil {
		a.botCancel()
		a.botCancel = nil
	}
	if a.cronJob != nil {
		a.cronJob.Stop()
	}
	if a.webServer != nil {
		err := a.webServer.Stop()
		if err != nil {
			logger.Warning("stop Web Server err:", err)
		}
	}
	if a.supervisor != nil {
		a.supervisor.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func (a *APP) initLog() {
	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}
}

func (a *APP) initTelegramConfig() {
	cfg, err := telegram.LoadConfig(a.settings.TelegramConfig)
	if err != nil {
		logger.Warning("Error reading ", a.settings.TelegramConfig, ": ", err)
		return
	}
	if cfg == nil {
		logger.Info(a.settings.TelegramConfig, " not found, Telegram bot is disabled.")
		return
	}
	a.telegramConfig = cfg
}

func (a *APP) RestartApp() {
	a.Stop()
	err := a.Init()
	if err != nil {
		logger.Error("Error re-initializing app:", err)
		os.Exit(1)
	}
	err = a.Start()
	if err != nil {
		logger.Error("Error re-starting app:", err)
		os.Exit(1)
	}
}

// RestartPanel asks main to rebuild the app through SIGHUP.
func (a *APP) RestartPanel() {
	if err := a.panelService.RestartPanel(0); err != nil {
		logger.Error("restart panel failed: ", err)
	}
}

// RestartBackend (re)starts the backend from the stored configuration.
func (a *APP) RestartBackend() error {
	cfg, err := a.configService.GetConfig()
	if err != nil {
		return err
	}
	return a.supervisor.Start(cfg)
}

func (a *APP) GetConfig() (*model.ServerConfig, error) {
	return a.configService.GetConfig()
}

func (a *APP) RegenerateSecret() (*model.ServerConfig, error) {
	return a.configService.RegenerateSecret()
}

func (a *APP) BackendStatus() core.Status {
	return a.supervisor.Status()
}

func (a *APP) BackendLogs() []string {
	return a.supervisor.Logs()
}

func (a *APP) GetLogs(count int, level string) []string {
	return logger.GetLogs(count, level)
}
