package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type GameConfig struct {
	TargetScore            int `json:"target_score"`
	DisconnectGraceSeconds int `json:"disconnect_grace_seconds"`
	ConnectionTTLHours     int `json:"connection_ttl_hours"`
	// Bot pacing knobs; 0 means bots move synchronously with the
	// triggering human action.
	BotMinDelaySeconds int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds int `json:"bot_max_delay_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetTargetScore returns the configured tournament target score.
func GetTargetScore() int {
	if cfg == nil || cfg.TargetScore <= 0 {
		return 21 // Safe default
	}
	return cfg.TargetScore
}

// GetDisconnectGraceSeconds returns the seat reclaim grace period.
func GetDisconnectGraceSeconds() int {
	if cfg == nil || cfg.DisconnectGraceSeconds <= 0 {
		return 5
	}
	return cfg.DisconnectGraceSeconds
}

// GetConnectionTTLHours returns how long connection records live.
func GetConnectionTTLHours() int {
	if cfg == nil || cfg.ConnectionTTLHours <= 0 {
		return 2
	}
	return cfg.ConnectionTTLHours
}
