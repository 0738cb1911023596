package cmd

import (
	"fmt"

	"github.com/igor04091968/v2panel/config"
	"github.com/igor04091968/v2panel/database"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/service"
)

func configService() (*service.ConfigService, error) {
	db, err := database.InitDB(config.GetDBPath())
	if err != nil {
		return nil, err
	}
	return service.NewConfigService(db), nil
}

func showSetting() error {
	settings, err := config.LoadSettings(config.GetSettingsPath())
	if err != nil {
		return err
	}
	configs, err := configService()
	if err != nil {
		return err
	}
	cfg, err := configs.GetConfig()
	if err != nil {
		return err
	}
	fmt.Println("Panel settings (", config.GetSettingsPath(), "):")
	fmt.Println("\tListen:\t\t", settings.Listen)
	fmt.Println("\tBackend:\t", settings.Backend.Binary, settings.Backend.Args)
	fmt.Println("\tAuth:\t\t", settings.Auth.Enabled)
	fmt.Println("\tKeep-alive:\t", settings.KeepAlive.Enabled, settings.KeepAlive.Schedule)
	fmt.Println("Server config:")
	printConfig(cfg)
	return nil
}

func updateSetting(port int, path string) error {
	configs, err := configService()
	if err != nil {
		return err
	}
	update := &model.ConfigUpdate{}
	if port > 0 {
		update.Port = &port
	}
	if path != "" {
		update.Path = &path
	}
	cfg, err := configs.UpdateConfig(update)
	if err != nil {
		return fmt.Errorf("update setting failed: %w", err)
	}
	fmt.Println("update setting success, restart the panel to apply it")
	printConfig(cfg)
	return nil
}

func regenerateSecret() error {
	configs, err := configService()
	if err != nil {
		return err
	}
	cfg, err := configs.RegenerateSecret()
	if err != nil {
		return fmt.Errorf("regenerate secret failed: %w", err)
	}
	fmt.Println("new secret:", cfg.Secret)
	return nil
}

func printConfig(cfg *model.ServerConfig) {
	fmt.Println("\tPath:\t\t", cfg.Path)
	fmt.Println("\tPort:\t\t", cfg.Port)
	fmt.Println("\tServer name:\t", cfg.ServerNameHint)
	fmt.Println("\tEnabled:\t", cfg.Enabled)
	fmt.Println("\tSecret:\t\t", cfg.Secret)
}
