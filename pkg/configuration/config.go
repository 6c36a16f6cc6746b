package configuration

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "basic.toml"

// Config holds sectioned settings read from a TOML file.
type Config struct {
	settings map[string]map[string]interface{}
	filePath string
	mu       sync.RWMutex
}

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// Initialize loads the configuration at configPath and makes it the global
// configuration. A missing file leaves the built-in defaults in place.
func Initialize(configPath string) error {
	config, err := Load(configPath)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalConfig = config
	globalMu.Unlock()
	return nil
}

// Load reads the configuration at filePath on top of the defaults. Settings
// from a sibling "<name>.local.toml" override the main file.
func Load(filePath string) (*Config, error) {
	config := &Config{
		settings: make(map[string]map[string]interface{}),
		filePath: filePath,
	}
	config.createDefaultConfig()

	if err := config.merge(filePath); err != nil {
		return nil, err
	}
	ext := filepath.Ext(filePath)
	localPath := strings.TrimSuffix(filePath, ext) + ".local" + ext
	if err := config.merge(localPath); err != nil {
		return nil, err
	}
	return config, nil
}

// merge overlays the file at path. A missing file is not an error.
func (c *Config) merge(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var parsed map[string]map[string]interface{}
	if _, err := toml.Decode(string(data), &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for section, values := range parsed {
		if c.settings[section] == nil {
			c.settings[section] = make(map[string]interface{})
		}
		for key, value := range values {
			c.settings[section][key] = value
		}
	}
	return nil
}

// createDefaultConfig fills in the settings the program reads.
func (c *Config) createDefaultConfig() {
	c.settings["Interpreter"] = map[string]interface{}{
		"max_steps": 0,
	}

	c.settings["Store"] = map[string]interface{}{
		"database": "basic.db",
	}

	c.settings["Server"] = map[string]interface{}{
		"listen":              ":8080",
		"allowed_origins":     "",
		"write_wait_timeout":  "10s",
		"pong_timeout":        "60s",
		"max_message_size_kb": 64,
		"max_steps":           100000,
		"max_run_time":        "30s",
	}

	c.settings["TLS"] = map[string]interface{}{
		"enable_tls":           false,
		"enable_letsencrypt":   false,
		"domain":               "",
		"letsencrypt_email":    "",
		"cert_cache_dir":       "./certs",
		"cert_file":            "./certs/server.crt",
		"key_file":             "./certs/server.key",
		"http_addr":            ":80",
		"force_https_redirect": false,
	}

	c.settings["JWT"] = map[string]interface{}{
		"secret_key":             "",
		"token_expiration_hours": 24,
	}

	c.settings["Debug"] = map[string]interface{}{
		"enable_debug_logging": true,
		"log_level":            "INFO",
		"log_file":             "debug.log",
		"max_log_size_mb":      10,
		"log_rotation_count":   3,
		// Per-area switches
		"log_parser":  false,
		"log_engine":  false,
		"log_objfile": false,
		"log_store":   true,
		"log_server":  true,
		"log_auth":    true,
		"log_config":  true,
		"log_general": true,
	}
}

// encode renders the settings as TOML. Sections and keys come out sorted.
func (c *Config) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# linebasic configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(c.settings); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// saveToFile writes the configuration to its file.
func (c *Config) saveToFile() error {
	data, err := c.encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(c.filePath, data, 0644)
}

// WriteDefault writes the built-in defaults to path. An existing file is only
// replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s already exists", path)
	}
	config := &Config{
		settings: make(map[string]map[string]interface{}),
		filePath: path,
	}
	config.createDefaultConfig()
	return config.saveToFile()
}

func current() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

func (c *Config) lookup(section, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if sectionMap, exists := c.settings[section]; exists {
		value, exists := sectionMap[key]
		return value, exists
	}
	return nil, false
}

// GetString returns a setting as a string.
func GetString(section, key, defaultValue string) string {
	config := current()
	if config == nil {
		return defaultValue
	}
	value, ok := config.lookup(section, key)
	if !ok {
		return defaultValue
	}
	return fmt.Sprint(value)
}

// GetInt returns an integer setting.
func GetInt(section, key string, defaultValue int) int {
	config := current()
	if config == nil {
		return defaultValue
	}
	value, ok := config.lookup(section, key)
	if !ok {
		return defaultValue
	}
	switch v := value.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetBool returns a boolean setting.
func GetBool(section, key string, defaultValue bool) bool {
	config := current()
	if config == nil {
		return defaultValue
	}
	value, ok := config.lookup(section, key)
	if !ok {
		return defaultValue
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetDuration returns a duration setting written like "10s".
func GetDuration(section, key string, defaultValue time.Duration) time.Duration {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(str); err == nil {
		return value
	}
	return defaultValue
}

// GetSection returns a copy of a section as strings.
func GetSection(sectionName string) map[string]string {
	result := make(map[string]string)
	config := current()
	if config == nil {
		return result
	}

	config.mu.RLock()
	defer config.mu.RUnlock()
	for key, value := range config.settings[sectionName] {
		result[key] = fmt.Sprint(value)
	}
	return result
}

// SetString sets a setting on the global configuration.
func SetString(section, key, value string) {
	config := current()
	if config == nil {
		return
	}

	config.mu.Lock()
	defer config.mu.Unlock()
	if config.settings[section] == nil {
		config.settings[section] = make(map[string]interface{})
	}
	config.settings[section][key] = value
}

// Save writes the global configuration back to its file.
func Save() error {
	config := current()
	if config == nil {
		return fmt.Errorf("configuration not initialized")
	}

	config.mu.RLock()
	defer config.mu.RUnlock()
	return config.saveToFile()
}
