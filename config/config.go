// Package config loads rollover settings with viper.
//
// Sources, in order of precedence: flags bound by the caller, ROLLOVER_*
// environment variables, the config file, then built-in defaults.
//
// Config file discovery:
//
//	ROLLOVER_CONFIG=/path/to/rollover.yaml   # custom config file path
//	./rollover.yaml                          # current directory
//	~/.rollover/rollover.yaml                # user directory
//	/etc/rollover/rollover.yaml              # system directory
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/arthur-debert/rollover/internal/validation"
	"github.com/arthur-debert/rollover/types"
	"github.com/spf13/viper"
)

// Keys recognised in config files, environment and flags
const (
	KeyAutoRollover    = "auto-rollover"
	KeyPortalMode      = "portal-mode"
	KeyDateLimit       = "date-limit"
	KeyRetainCompleted = "retain-completed"
	KeyDebug           = "debug"
	KeyMoveOrder       = "move-order"
	KeyInterval        = "interval"
	KeyTree            = "tree"
	KeyState           = "state"
	KeyLogLevel        = "log-level"
)

// EnvPrefix prefixes every environment variable
const EnvPrefix = "ROLLOVER"

// Default host file locations
const (
	DefaultTreePath  = "rollover-tree.json"
	DefaultStatePath = "rollover-state.json"
)

// Source is a types.SettingsSource backed by a viper instance. The config
// file is re-read on every call so edits apply to the next run.
type Source struct {
	mu sync.Mutex
	v  *viper.Viper
}

var _ types.SettingsSource = (*Source)(nil)

// New creates a Source with defaults, environment binding and config file
// discovery configured. configFile overrides discovery when non-empty.
func New(configFile string) *Source {
	v := viper.New()
	SetDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rollover")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rollover")
		v.AddConfigPath("/etc/rollover")
	}

	v.SetEnvPrefix(EnvPrefix)
	// Replace dash with underscore in env vars (e.g., portal-mode -> ROLLOVER_PORTAL_MODE)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &Source{v: v}
}

// Viper exposes the underlying instance so callers can bind flags
func (s *Source) Viper() *viper.Viper {
	return s.v
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	d := types.DefaultSettings()
	v.SetDefault(KeyAutoRollover, d.AutoRolloverTime)
	v.SetDefault(KeyPortalMode, d.PortalMode)
	v.SetDefault(KeyDateLimit, d.DateLimit)
	v.SetDefault(KeyRetainCompleted, d.RetainCompleted)
	v.SetDefault(KeyDebug, d.Debug)
	v.SetDefault(KeyMoveOrder, string(d.MoveOrder))
	v.SetDefault(KeyInterval, d.Interval)
	v.SetDefault(KeyTree, DefaultTreePath)
	v.SetDefault(KeyState, DefaultStatePath)
	v.SetDefault(KeyLogLevel, "warn")
}

// ReadConfig reads the config file. A missing file is not an error.
func (s *Source) ReadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readConfig()
}

func (s *Source) readConfig() error {
	err := s.v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

// Settings implements types.SettingsSource
func (s *Source) Settings() (types.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readConfig(); err != nil {
		return types.Settings{}, err
	}
	return Decode(s.v)
}

// Decode extracts and validates Settings from a viper instance
func Decode(v *viper.Viper) (types.Settings, error) {
	var settings types.Settings
	if err := v.Unmarshal(&settings); err != nil {
		return types.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := validation.Validate(settings); err != nil {
		return types.Settings{}, err
	}
	return settings, nil
}

// String returns a path-valued key such as KeyTree
func (s *Source) String(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(key)
}

// ConfigFileUsed returns the path of the loaded config file, if any
func (s *Source) ConfigFileUsed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.ConfigFileUsed()
}
