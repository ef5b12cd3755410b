package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"r2tabs/log"
)

const (
	ConfigFileName = "config.json"

	// DefaultVersion is the one release served from a fixed, well-known URL.
	// Every other version goes through the archive proxy.
	DefaultVersion    = "6.0.9"
	defaultVersionURL = "https://radareorg.github.io/r2wasm/radare2.wasm"

	defaultArchiveURLTemplate = "https://github.com/radareorg/radare2/releases/download/{version}/radare2-{version}-wasi.zip"
	defaultEntrySuffix        = ".wasm"
	defaultRuntimeCommand     = "wasmtime"
	defaultListenAddress      = "127.0.0.1:8787"
	defaultAnalysisDepth      = 24
	defaultScrapeDelayMs      = 1000
	defaultScrapeTimeoutMs    = 5000
)

// GetConfigDir returns the path to the application's configuration directory
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config home directory: %w", err)
	}
	return filepath.Join(homeDir, ".r2tabs"), nil
}

// Config represents the application configuration
type Config struct {
	// DefaultVersion is the release fetched from DefaultVersionURL instead of the proxy.
	DefaultVersion string `json:"default_version"`
	// DefaultVersionURL serves the raw binary of DefaultVersion.
	DefaultVersionURL string `json:"default_version_url"`
	// LocalProxyURL is the base of the archive proxy when running next to it.
	LocalProxyURL string `json:"local_proxy_url"`
	// HostedProxyURL is the base of the archive proxy when running hosted.
	HostedProxyURL string `json:"hosted_proxy_url"`
	// UseProxy selects HostedProxyURL over LocalProxyURL.
	UseProxy bool `json:"use_proxy"`
	// WantCache stores downloaded binaries in the cache directory.
	WantCache bool `json:"want_cache"`
	// CacheDir overrides the binary cache location. Empty means <config dir>/cache.
	CacheDir string `json:"cache_dir"`

	// ArchiveURLTemplate is the upstream archive location; {version} is substituted.
	ArchiveURLTemplate string `json:"archive_url_template"`
	// EntrySuffix selects the archive entry holding the binary.
	EntrySuffix string `json:"entry_suffix"`
	// ListenAddress is where `r2tabs serve` listens.
	ListenAddress string `json:"listen_address"`

	// RuntimeCommand is the WASI runner used to execute binaries.
	RuntimeCommand string `json:"runtime_command"`
	// UsePTY runs instances on a pseudo terminal instead of plain pipes.
	UsePTY bool `json:"use_pty"`
	// AnalysisDepth bounds the analysis depth passed at startup.
	AnalysisDepth int `json:"analysis_depth"`

	// ScrapeDelayMs is the fixed wait before a scrape output file is read.
	ScrapeDelayMs int `json:"scrape_delay_ms"`
	// ScrapeTimeoutMs bounds the total wait for a scrape output file.
	ScrapeTimeoutMs int `json:"scrape_timeout_ms"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultVersion:     DefaultVersion,
		DefaultVersionURL:  defaultVersionURL,
		LocalProxyURL:      "http://" + defaultListenAddress,
		HostedProxyURL:     "",
		UseProxy:           false,
		WantCache:          true,
		ArchiveURLTemplate: defaultArchiveURLTemplate,
		EntrySuffix:        defaultEntrySuffix,
		ListenAddress:      defaultListenAddress,
		RuntimeCommand:     defaultRuntimeCommand,
		UsePTY:             false,
		AnalysisDepth:      defaultAnalysisDepth,
		ScrapeDelayMs:      defaultScrapeDelayMs,
		ScrapeTimeoutMs:    defaultScrapeTimeoutMs,
	}
}

// GetCacheDir returns the binary cache directory for this config.
func (c *Config) GetCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cache"), nil
}

// ScrapeDelay returns the scrape read delay as a duration.
func (c *Config) ScrapeDelay() time.Duration {
	return time.Duration(c.ScrapeDelayMs) * time.Millisecond
}

// ScrapeTimeout returns the scrape deadline as a duration. It is never
// shorter than the delay.
func (c *Config) ScrapeTimeout() time.Duration {
	if c.ScrapeTimeoutMs < c.ScrapeDelayMs {
		return c.ScrapeDelay()
	}
	return time.Duration(c.ScrapeTimeoutMs) * time.Millisecond
}

// fillDefaults replaces zero values left by older config files.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.DefaultVersion == "" {
		c.DefaultVersion = def.DefaultVersion
	}
	if c.DefaultVersionURL == "" {
		c.DefaultVersionURL = def.DefaultVersionURL
	}
	if c.LocalProxyURL == "" {
		c.LocalProxyURL = def.LocalProxyURL
	}
	if c.ArchiveURLTemplate == "" {
		c.ArchiveURLTemplate = def.ArchiveURLTemplate
	}
	if c.EntrySuffix == "" {
		c.EntrySuffix = def.EntrySuffix
	}
	if c.ListenAddress == "" {
		c.ListenAddress = def.ListenAddress
	}
	if c.RuntimeCommand == "" {
		c.RuntimeCommand = def.RuntimeCommand
	}
	if c.AnalysisDepth <= 0 {
		c.AnalysisDepth = def.AnalysisDepth
	}
	if c.ScrapeDelayMs <= 0 {
		c.ScrapeDelayMs = def.ScrapeDelayMs
	}
	if c.ScrapeTimeoutMs <= 0 {
		c.ScrapeTimeoutMs = def.ScrapeTimeoutMs
	}
}

func LoadConfig() *Config {
	configDir, err := GetConfigDir()
	if err != nil {
		log.ErrorLog.Printf("failed to get config directory: %v", err)
		return DefaultConfig()
	}
	return loadConfigFrom(configDir)
}

func loadConfigFrom(configDir string) *Config {
	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			defaultCfg := DefaultConfig()
			if saveErr := saveConfigTo(configDir, defaultCfg); saveErr != nil {
				log.WarningLog.Printf("failed to save default config: %v", saveErr)
			}
			return defaultCfg
		}

		log.WarningLog.Printf("failed to get config file: %v", err)
		return DefaultConfig()
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		log.ErrorLog.Printf("failed to parse config file at %s: %v\nConfig content preview: %s", configPath, err, preview)

		backupPath := configPath + ".corrupt." + time.Now().Format("20060102-150405")
		if backupErr := os.WriteFile(backupPath, data, 0644); backupErr == nil {
			log.InfoLog.Printf("Backed up corrupted config to: %s", backupPath)
		}

		return DefaultConfig()
	}

	config.fillDefaults()
	return &config
}

func saveConfigTo(configDir string, config *Config) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveConfig writes the configuration to the config directory.
func SaveConfig(config *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	return saveConfigTo(configDir, config)
}
