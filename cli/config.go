package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "devtools.yaml"
	homeConfigName    = "config.yaml"
)

// Config is the declarative file configuration for the serve command.
// Flags override file values.
type Config struct {
	// SQLitePath is the event store database path. Empty disables
	// persistence; events are accepted but not stored.
	SQLitePath string `yaml:"sqlite_path,omitempty"`

	// Collection is the target store collection. Defaults to "events".
	Collection string `yaml:"collection,omitempty"`

	// BasePath prefixes the HTTP routes. Defaults to "/devtools".
	BasePath string `yaml:"base_path,omitempty"`

	// Enabled is reported by the status endpoint. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string `yaml:"cors_origin,omitempty"`

	// Heartbeat is a UTC cron expression for server-originated
	// liveness events. Empty disables the heartbeat.
	Heartbeat string `yaml:"heartbeat,omitempty"`

	// Retention prunes stored events older than this duration on each
	// heartbeat tick. Zero keeps everything.
	Retention time.Duration `yaml:"retention,omitempty"`

	// OTLPEndpoint is an OTLP/HTTP collector for traces. Empty
	// disables export.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

// DiscoverConfigPath resolves the config file location with
// first-match semantics: explicit flag, ./devtools.yaml,
// ~/.devtools/config.yaml.
func DiscoverConfigPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverConfigPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverConfigPathFrom is a testable variant of DiscoverConfigPath.
func DiscoverConfigPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 3)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, ".devtools", homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			// If explicit path is set, not found is an error.
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// LoadConfig reads and parses a config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}
