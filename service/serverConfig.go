package service

import (
	"fmt"
	"sync"

	"github.com/igor04091968/v2panel/database"
	"github.com/igor04091968/v2panel/database/model"
	"github.com/igor04091968/v2panel/logger"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

const (
	defaultPath           = "/vmess"
	defaultPort           = 10000
	defaultServerNameHint = "example.com"
)

// ConfigService is the store for the single ServerConfig row.
type ConfigService struct {
	db *gorm.DB
	// serializes the read-merge-write of updates; reads go straight to the db
	mu sync.Mutex
}

func NewConfigService(db *gorm.DB) *ConfigService {
	return &ConfigService{db: db}
}

// GetConfig returns the active record, creating the default one on first use.
func (s *ConfigService) GetConfig() (*model.ServerConfig, error) {
	var cfg model.ServerConfig
	err := s.db.Order("id").First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another caller may have created it while we waited
	err = s.db.Order("id").First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}

	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}
	cfg = model.ServerConfig{
		Secret:         secret,
		Path:           defaultPath,
		Port:           defaultPort,
		ServerNameHint: defaultServerNameHint,
		Enabled:        true,
	}
	if err := s.db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	logger.Info("created default server config, path ", cfg.Path, " port ", cfg.Port)
	return &cfg, nil
}

// UpdateConfig merges u into the active record and returns the resolved record.
// The merged record is validated before anything is written.
func (s *ConfigService) UpdateConfig(u *model.ConfigUpdate) (*model.ServerConfig, error) {
	current, err := s.GetConfig()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := u.Apply(*current)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	err = s.db.Model(&model.ServerConfig{}).Where("id = ?", current.ID).Updates(map[string]interface{}{
		"secret":           merged.Secret,
		"path":             merged.Path,
		"port":             merged.Port,
		"server_name_hint": merged.ServerNameHint,
	}).Error
	if err != nil {
		return nil, err
	}
	return s.reload(current.ID)
}

// RegenerateSecret replaces the client secret with a fresh UUID.
func (s *ConfigService) RegenerateSecret() (*model.ServerConfig, error) {
	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}
	return s.UpdateConfig(&model.ConfigUpdate{Secret: &secret})
}

func (s *ConfigService) SetEnabled(enabled bool) (*model.ServerConfig, error) {
	current, err := s.GetConfig()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.Model(&model.ServerConfig{}).Where("id = ?", current.ID).Update("enabled", enabled).Error
	if err != nil {
		return nil, err
	}
	return s.reload(current.ID)
}

func (s *ConfigService) reload(id uint) (*model.ServerConfig, error) {
	var cfg model.ServerConfig
	if err := s.db.First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func NewSecret() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return id.String(), nil
}
