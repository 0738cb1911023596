package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("V2P_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("V2P_DEBUG") == "true"
}

func GetBinFolderPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("V2P_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = filepath.Join(GetBinFolderPath(), "db")
	}
	return dbFolderPath
}

func GetDBPath() string {
	return filepath.Join(GetDBFolderPath(), GetName()+".db")
}

// GetSettingsPath returns the panel settings file, relative to the working directory
// unless V2P_SETTINGS points elsewhere.
func GetSettingsPath() string {
	p := os.Getenv("V2P_SETTINGS")
	if p == "" {
		p = GetName() + ".yaml"
	}
	return p
}
