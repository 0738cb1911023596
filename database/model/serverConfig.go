package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig is the single configuration record that drives the backend process
// and the upgrade router.
type ServerConfig struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Secret         string `json:"secret" gorm:"not null"`
	Path           string `json:"path" gorm:"not null;default:'/vmess'"`
	Port           int    `json:"port" gorm:"not null;default:10000"`
	ServerNameHint string `json:"serverNameHint"`
	Enabled        bool   `json:"enabled" gorm:"not null;default:true"`
}

func (ServerConfig) TableName() string {
	return "server_configs"
}

func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidConfig, c.Path)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}

// ConfigUpdate is a partial update; nil fields are left unchanged.
// The id and enabled flag are not writable through it.
type ConfigUpdate struct {
	Secret         *string `json:"secret,omitempty"`
	Path           *string `json:"path,omitempty"`
	Port           *int    `json:"port,omitempty"`
	ServerNameHint *string `json:"serverNameHint,omitempty"`
}

// Apply returns a copy of c with u merged in.
func (u *ConfigUpdate) Apply(c ServerConfig) ServerConfig {
	if u.Secret != nil {
		c.Secret = *u.Secret
	}
	if u.Path != nil {
		c.Path = *u.Path
	}
	if u.Port != nil {
		c.Port = *u.Port
	}
	if u.ServerNameHint != nil {
		c.ServerNameHint = *u.ServerNameHint
	}
	return c
}
