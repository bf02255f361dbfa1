// config.go: settings struct and functions to load and save the Sidekick gateway configuration.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mkarvala/sidekick-go/internal/errors"
)

// LogConfig contains settings for the main application log file.
type LogConfig struct {
	Enabled    bool   // true to enable file logging
	Path       string // path to log file
	MaxSizeMB  int    // max size of a log file before rotation
	MaxBackups int    // number of rotated files to keep
	MaxAgeDays int    // max age of rotated files in days
}

// MainSettings contains top-level application settings.
type MainSettings struct {
	Name  string    // name of the node/instance
	Debug bool      // true to enable debug logging
	Log   LogConfig // main log file settings
}

// WebServerSettings contains settings for the HTTP/SSE gateway server.
type WebServerSettings struct {
	Enabled bool   // true to enable the gateway server
	Host    string // listen address
	Port    string // listen port
	Debug   bool   // true to enable API debug logging
}

// UpstreamSettings contains settings for the assistant response stream source.
type UpstreamSettings struct {
	URL     string        // base URL of the assistant backend
	Timeout time.Duration // per-request timeout, 0 uses the client default
	Debug   bool          // true to enable stream decode debug logging
}

// ToastSettings contains settings for transient toast notifications.
type ToastSettings struct {
	MaxVisible      int           // number of toasts shown at once
	DefaultDuration time.Duration // auto-dismiss duration when none is given
	DedupWindow     time.Duration // window in which identical toasts are suppressed
}

// NotificationSettings contains settings for the notification service.
type NotificationSettings struct {
	Debug            bool          // true to enable notification debug logging
	MaxNotifications int           // maximum notifications kept in memory
	CleanupInterval  time.Duration // how often expired notifications are removed
	Toast            ToastSettings // transient toast settings
}

// TelemetrySettings contains settings for the Prometheus metrics endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose the metrics endpoint
	Listen  string // listen address and port for metrics
}

// Settings is the root configuration struct.
type Settings struct {
	Main         MainSettings
	WebServer    WebServerSettings
	Upstream     UpstreamSettings
	Notification NotificationSettings
	Telemetry    TelemetrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a new Settings instance and stores it
// as the package singleton.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets up config file discovery and defaults.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults apply
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// Setting returns the current settings instance, loading it if necessary.
func Setting() *Settings {
	settingsMutex.RLock()
	if settingsInstance != nil {
		defer settingsMutex.RUnlock()
		return settingsInstance
	}
	settingsMutex.RUnlock()

	if _, err := Load(); err != nil {
		return nil
	}

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetSettings replaces the settings singleton. Mainly for testing.
func SetSettings(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = settings
}

// GetDefaultConfigPaths returns the config file search paths in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "sidekick-go"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return paths, nil
	}
	paths = append(paths, filepath.Join(homeDir, ".config", "sidekick-go"))

	return paths, nil
}

// ValidateSettings checks loaded settings for values the service cannot run with.
func ValidateSettings(settings *Settings) error {
	if settings.Notification.MaxNotifications < 0 {
		return errors.Newf("notification.maxnotifications cannot be negative").
			Component("configuration").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings.Notification.Toast.MaxVisible <= 0 {
		return errors.Newf("notification.toast.maxvisible must be positive").
			Component("configuration").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings.WebServer.Enabled && settings.WebServer.Port == "" {
		return errors.Newf("webserver.port is required when the web server is enabled").
			Component("configuration").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// SaveSettings writes the current settings to the given path as YAML.
func SaveSettings(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}
