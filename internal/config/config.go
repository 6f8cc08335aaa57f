package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Fetch     FetchConfig     `mapstructure:"fetch" yaml:"fetch"`
	Zotero    ZoteroConfig    `mapstructure:"zotero" yaml:"zotero"`
	PDF       PDFConfig       `mapstructure:"pdf" yaml:"pdf"`
	Structure StructureConfig `mapstructure:"structure" yaml:"structure"`
	QC        QCConfig        `mapstructure:"qc" yaml:"qc"`
}

// LogConfig holds logging settings. Empty values fall back to the logger's
// own environment detection.
type LogConfig struct {
	Output   string `mapstructure:"output" yaml:"output"`
	Level    string `mapstructure:"level" yaml:"level"`
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
}

// ServerConfig holds MCP transport settings.
type ServerConfig struct {
	Transport string `mapstructure:"transport" yaml:"transport"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
}

// StorageConfig holds artifact store settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// FetchConfig holds document download settings.
type FetchConfig struct {
	Attempts uint          `mapstructure:"attempts" yaml:"attempts"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// ZoteroConfig holds Zotero library credentials.
type ZoteroConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	LibraryID string `mapstructure:"library_id" yaml:"library_id"`
}

// PDFConfig holds PDF codec settings.
type PDFConfig struct {
	RelaxedValidation bool `mapstructure:"relaxed_validation" yaml:"relaxed_validation"`
}

// StructureConfig holds the confidence heuristic constants.
type StructureConfig struct {
	BaseConfidence     float64 `mapstructure:"base_confidence" yaml:"base_confidence"`
	Penalty            float64 `mapstructure:"penalty" yaml:"penalty"`
	ShortWrittenPages  int     `mapstructure:"short_written_pages" yaml:"short_written_pages"`
	ShortAppendixPages int     `mapstructure:"short_appendix_pages" yaml:"short_appendix_pages"`
}

// QCConfig holds blank-page scan settings.
type QCConfig struct {
	BlankScanLimit int `mapstructure:"blank_scan_limit" yaml:"blank_scan_limit"`
	MaxBlankPages  int `mapstructure:"max_blank_pages" yaml:"max_blank_pages"`
	MinTextChars   int `mapstructure:"min_text_chars" yaml:"min_text_chars"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      "localhost:8080",
		},
		Storage: StorageConfig{
			DBPath: ":memory:",
		},
		Fetch: FetchConfig{
			Attempts: 3,
			Timeout:  60 * time.Second,
			MaxBytes: 200 << 20,
		},
		PDF: PDFConfig{
			RelaxedValidation: true,
		},
		Structure: StructureConfig{
			BaseConfidence:     0.85,
			Penalty:            0.10,
			ShortWrittenPages:  10,
			ShortAppendixPages: 20,
		},
		QC: QCConfig{
			BlankScanLimit: 50,
			MaxBlankPages:  20,
			MinTextChars:   10,
		},
	}
}

// Environment variables read in addition to the ESA_ prefixed names
var legacyEnv = map[string]string{
	"log.output":        "LOG_OUTPUT",
	"log.level":         "LOG_LEVEL",
	"log.file_path":     "LOG_FILE_PATH",
	"storage.db_path":   "ESA_DB_PATH",
	"zotero.api_key":    "ZOTERO_API_KEY",
	"zotero.library_id": "ZOTERO_LIBRARY_ID",
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config. When
// cfgFile is empty, esa-assembly.yaml is looked up in the working directory
// and in $HOME/.esa-assembly; a missing file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// Load is a shortcut for NewManager(cfgFile).Get().
func Load(cfgFile string) (*Config, error) {
	cm, err := NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	return cm.Get(), nil
}

func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("ESA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		prefixed := "ESA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("esa-assembly")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.esa-assembly")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file_path", d.Log.FilePath)

	v.SetDefault("server.transport", d.Server.Transport)
	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("storage.db_path", d.Storage.DBPath)

	v.SetDefault("fetch.attempts", d.Fetch.Attempts)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.max_bytes", d.Fetch.MaxBytes)

	v.SetDefault("zotero.api_key", d.Zotero.APIKey)
	v.SetDefault("zotero.library_id", d.Zotero.LibraryID)

	v.SetDefault("pdf.relaxed_validation", d.PDF.RelaxedValidation)

	v.SetDefault("structure.base_confidence", d.Structure.BaseConfidence)
	v.SetDefault("structure.penalty", d.Structure.Penalty)
	v.SetDefault("structure.short_written_pages", d.Structure.ShortWrittenPages)
	v.SetDefault("structure.short_appendix_pages", d.Structure.ShortAppendixPages)

	v.SetDefault("qc.blank_scan_limit", d.QC.BlankScanLimit)
	v.SetDefault("qc.max_blank_pages", d.QC.MaxBlankPages)
	v.SetDefault("qc.min_text_chars", d.QC.MinTextChars)
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid server transport: %s (expected 'stdio' or 'http')", c.Server.Transport)
	}
	if c.QC.BlankScanLimit < 0 || c.QC.MaxBlankPages < 0 || c.QC.MinTextChars < 0 {
		return errors.New("qc limits must not be negative")
	}
	if c.Structure.BaseConfidence < 0 || c.Structure.BaseConfidence > 1 {
		return fmt.Errorf("structure.base_confidence must be between 0 and 1, got %v", c.Structure.BaseConfidence)
	}
	return nil
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFileUsed() string {
	return cm.v.ConfigFileUsed()
}

// Get returns the current configuration (thread-safe). The returned value is
// shared; copy it before making changes.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of the config file. Invalid edits are
// logged and the previous configuration stays in effect.
func (cm *Manager) WatchConfig(log logger.Logger) {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		log.Debug("Config file changed: %s", e.Name)
		cm.reload(log)
	})
	cm.v.WatchConfig()
}

// reload re-reads the config file and notifies the OnChange callbacks
func (cm *Manager) reload(log logger.Logger) error {
	if err := cm.v.ReadInConfig(); err != nil {
		log.Error("Ignoring configuration reload: failed to read config file: %v", err)
		return fmt.Errorf("error reading config file: %w", err)
	}
	cfg, err := cm.load()
	if err != nil {
		log.Error("Ignoring invalid configuration reload: %v", err)
		return err
	}

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// YAML renders the configuration with the Zotero API key redacted.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	if redacted.Zotero.APIKey != "" {
		redacted.Zotero.APIKey = "REDACTED"
	}
	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := DefaultConfig().YAML()
	if err != nil {
		return err
	}

	header := []byte(`# ESA report assembly configuration
# Every key can be overridden with an ESA_ environment variable, e.g. ESA_QC_BLANK_SCAN_LIMIT=100

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
