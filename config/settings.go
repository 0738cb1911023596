package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the panel's own file configuration. The proxy configuration record lives in
// the database; these values only shape how the panel runs.
type Settings struct {
	Listen         string          `yaml:"listen"`
	Backend        BackendSettings `yaml:"backend"`
	Router         RouterSettings  `yaml:"router"`
	Auth           AuthSettings    `yaml:"auth"`
	KeepAlive      KeepAlive       `yaml:"keepAlive"`
	TelegramConfig string          `yaml:"telegramConfig"`
	TimeLocation   string          `yaml:"timeLocation"`
}

type BackendSettings struct {
	Binary      string        `yaml:"binary"`
	Args        []string      `yaml:"args"`
	Env         []string      `yaml:"env"`
	ConfigPath  string        `yaml:"configPath"`
	LogLevel    string        `yaml:"logLevel"`
	LogCapacity int           `yaml:"logCapacity"`
	GracePeriod time.Duration `yaml:"gracePeriod"`
}

type RouterSettings struct {
	DialTimeout time.Duration `yaml:"dialTimeout"`
}

type AuthSettings struct {
	Enabled bool `yaml:"enabled"`
}

// KeepAlive restarts an enabled backend that is found not running.
type KeepAlive struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

func DefaultSettings() *Settings {
	return &Settings{
		Listen: ":5000",
		Backend: BackendSettings{
			Binary:      "v2ray",
			Args:        []string{"run", "-c", "{config}"},
			ConfigPath:  "v2ray_config.json",
			LogLevel:    "info",
			LogCapacity: 100,
			GracePeriod: 5 * time.Second,
		},
		Router: RouterSettings{
			DialTimeout: 5 * time.Second,
		},
		KeepAlive: KeepAlive{
			Schedule: "@every 30s",
		},
		TelegramConfig: "telegram_config.json",
		TimeLocation:   "Local",
	}
}

// LoadSettings reads path over the defaults. A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.fillDefaults()
	return s, nil
}

func (s *Settings) fillDefaults() {
	d := DefaultSettings()
	if s.Listen == "" {
		s.Listen = d.Listen
	}
	if s.Backend.Binary == "" {
		s.Backend.Binary = d.Backend.Binary
	}
	if len(s.Backend.Args) == 0 {
		s.Backend.Args = d.Backend.Args
	}
	if s.Backend.ConfigPath == "" {
		s.Backend.ConfigPath = d.Backend.ConfigPath
	}
	if s.Backend.LogLevel == "" {
		s.Backend.LogLevel = d.Backend.LogLevel
	}
	if s.Backend.LogCapacity <= 0 {
		s.Backend.LogCapacity = d.Backend.LogCapacity
	}
	if s.Backend.GracePeriod <= 0 {
		s.Backend.GracePeriod = d.Backend.GracePeriod
	}
	if s.Router.DialTimeout <= 0 {
		s.Router.DialTimeout = d.Router.DialTimeout
	}
	if s.KeepAlive.Schedule == "" {
		s.KeepAlive.Schedule = d.KeepAlive.Schedule
	}
	if s.TelegramConfig == "" {
		s.TelegramConfig = d.TelegramConfig
	}
	if s.TimeLocation == "" {
		s.TimeLocation = d.TimeLocation
	}
}

func (s *Settings) GetTimeLocation() (*time.Location, error) {
	return time.LoadLocation(s.TimeLocation)
}
