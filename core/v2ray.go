package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/igor04091968/v2panel/database/model"
)

type BackendConfig struct {
	Log       LogConfig  `json:"log"`
	Inbounds  []Inbound  `json:"inbounds"`
	Outbounds []Outbound `json:"outbounds"`
}

type LogConfig struct {
	LogLevel string `json:"loglevel"`
}

type Inbound struct {
	Port           int             `json:"port"`
	Listen         string          `json:"listen"`
	Protocol       string          `json:"protocol"`
	Settings       InboundSettings `json:"settings"`
	StreamSettings StreamSettings  `json:"streamSettings"`
}

type InboundSettings struct {
	Clients []Client `json:"clients"`
}

type Client struct {
	ID      string `json:"id"`
	AlterID int    `json:"alterId"`
}

type StreamSettings struct {
	Network    string     `json:"network"`
	WsSettings WsSettings `json:"wsSettings"`
}

type WsSettings struct {
	Path string `json:"path"`
}

type Outbound struct {
	Protocol string                 `json:"protocol"`
	Settings map[string]interface{} `json:"settings"`
}

// RenderBackendConfig builds the v2ray document for cfg: one vmess inbound on
// 0.0.0.0:port carried over websocket on cfg.Path, and a freedom outbound.
func RenderBackendConfig(cfg *model.ServerConfig, logLevel string) *BackendConfig {
	if logLevel == "" {
		logLevel = "info"
	}
	return &BackendConfig{
		Log: LogConfig{LogLevel: logLevel},
		Inbounds: []Inbound{{
			Port:     cfg.Port,
			Listen:   "0.0.0.0",
			Protocol: "vmess",
			Settings: InboundSettings{
				Clients: []Client{{ID: cfg.Secret, AlterID: 0}},
			},
			StreamSettings: StreamSettings{
				Network:    "ws",
				WsSettings: WsSettings{Path: cfg.Path},
			},
		}},
		Outbounds: []Outbound{{
			Protocol: "freedom",
			Settings: map[string]interface{}{},
		}},
	}
}

// WriteBackendConfig atomically replaces path with the indented JSON form of
// doc, readable by the owner only. It returns the absolute path written.
func WriteBackendConfig(path string, doc *BackendConfig) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".v2ray-config-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("replace config: %w", err)
	}
	return abs, nil
}
