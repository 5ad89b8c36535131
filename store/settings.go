package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Urgency levels accepted for notification_urgency.
const (
	UrgencyLow      = "Low"
	UrgencyNormal   = "Normal"
	UrgencyCritical = "Critical"
)

// Settings holds process-wide preferences.
type Settings struct {
	AutoStartTimers     bool   `mapstructure:"auto_start_timers" json:"auto_start_timers"`
	SaveState           bool   `mapstructure:"save_state" json:"save_state"`
	ShowNotifications   bool   `mapstructure:"show_notifications" json:"show_notifications"`
	IncludeDescription  bool   `mapstructure:"include_description" json:"include_description"`
	NotificationUrgency string `mapstructure:"notification_urgency" json:"notification_urgency"`
	DefaultSound        string `mapstructure:"default_sound" json:"default_sound"`
	LoopSound           bool   `mapstructure:"loop_sound" json:"loop_sound"`
	AutoCheckUpdates    bool   `mapstructure:"auto_check_updates" json:"auto_check_updates"`
}

// DefaultSettings returns the settings used for missing or unreadable keys.
func DefaultSettings() Settings {
	return Settings{
		AutoStartTimers:     true,
		SaveState:           true,
		ShowNotifications:   true,
		IncludeDescription:  true,
		NotificationUrgency: UrgencyNormal,
		DefaultSound:        "",
		LoopSound:           true,
		AutoCheckUpdates:    true,
	}
}

// Normalize replaces out-of-range values with their defaults.
func (s Settings) Normalize() Settings {
	switch strings.ToLower(strings.TrimSpace(s.NotificationUrgency)) {
	case "low":
		s.NotificationUrgency = UrgencyLow
	case "critical":
		s.NotificationUrgency = UrgencyCritical
	default:
		s.NotificationUrgency = UrgencyNormal
	}
	s.DefaultSound = strings.TrimSpace(s.DefaultSound)
	return s
}

func (s Settings) toMap() map[string]any {
	return map[string]any{
		"auto_start_timers":    s.AutoStartTimers,
		"save_state":           s.SaveState,
		"show_notifications":   s.ShowNotifications,
		"include_description":  s.IncludeDescription,
		"notification_urgency": s.NotificationUrgency,
		"default_sound":        s.DefaultSound,
		"loop_sound":           s.LoopSound,
		"auto_check_updates":   s.AutoCheckUpdates,
	}
}

// SettingsStore reads and writes settings.json.
type SettingsStore struct {
	Path string

	mu sync.Mutex
}

// NewSettingsStore returns a store for the settings file at path.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{Path: path}
}

func (s *SettingsStore) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.Path)
	v.SetConfigType("json")
	for k, val := range DefaultSettings().toMap() {
		v.SetDefault(k, val)
	}
	return v
}

// Load returns the saved settings merged with defaults. A missing, corrupt
// or mistyped file yields the defaults.
func (s *SettingsStore) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			log.Printf("Settings unreadable, using defaults: %v", err)
		}
		return DefaultSettings()
	}

	var out Settings
	if err := v.Unmarshal(&out); err != nil {
		log.Printf("Settings malformed, using defaults: %v", err)
		return DefaultSettings()
	}
	return out.Normalize()
}

// Save writes every settings key.
func (s *SettingsStore) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.newViper()
	for k, val := range settings.Normalize().toMap() {
		v.Set(k, val)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := v.WriteConfigAs(s.Path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
