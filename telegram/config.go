package telegram

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	BotToken     string  `json:"bot_token"`
	AdminUserIDs []int64 `json:"admin_user_ids"`
	Enabled      bool    `json:"enabled"`
	// WebDomain is the public host used when building client links.
	WebDomain string `json:"web_domain"`
}

// LoadConfig reads the bot config file. A missing file yields nil and no error.
func LoadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
