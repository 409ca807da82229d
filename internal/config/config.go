// Package config loads xthumbgrid settings from ~/.xthumbgrid.yaml, the
// environment (XTHUMBGRID_*) and command line flags, in rising priority.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = ".xthumbgrid"
	envPrefix  = "XTHUMBGRID"
)

// Store backends.
const (
	BackendPebble = "pebble"
	BackendDisk   = "disk"
)

type Config struct {
	CacheSize     int64  `mapstructure:"cache_size"`
	StoreBackend  string `mapstructure:"store_backend"`
	StoreDir      string `mapstructure:"store_dir"`
	FFmpegPath    string `mapstructure:"ffmpeg_path"`
	Workers       int    `mapstructure:"workers"`
	QueueSize     int    `mapstructure:"queue_size"`
	RowHeight     int    `mapstructure:"row_height"`
	FoldersPerRow int    `mapstructure:"folders_per_row"`
	HeartbeatMS   int    `mapstructure:"heartbeat_ms"`
	ScrollDelayMS int    `mapstructure:"scroll_delay_ms"`
	ShowHidden    bool   `mapstructure:"show_hidden"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
	PruneMaxBytes int64  `mapstructure:"prune_max_bytes"`
	PruneMaxFiles int    `mapstructure:"prune_max_files"`
	Debug         bool   `mapstructure:"debug"`
}

// Heartbeat returns the idle re-poll interval of a view.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMS) * time.Millisecond
}

// ScrollDelay returns how long scrolling settles before thumbnails load.
func (c *Config) ScrollDelay() time.Duration {
	return time.Duration(c.ScrollDelayMS) * time.Millisecond
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.CacheSize <= 0:
		return errors.New("config: cache_size must be positive")
	case c.StoreBackend != BackendPebble && c.StoreBackend != BackendDisk:
		return errors.New("config: store_backend must be pebble or disk")
	case c.StoreDir == "":
		return errors.New("config: store_dir is empty")
	case c.Workers <= 0:
		return errors.New("config: workers must be positive")
	}
	return nil
}

func defaultStoreDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "xthumbgrid")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache_size", 64<<20)
	v.SetDefault("store_backend", BackendPebble)
	v.SetDefault("store_dir", defaultStoreDir())
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("workers", 4)
	v.SetDefault("queue_size", 100)
	v.SetDefault("row_height", 160)
	v.SetDefault("folders_per_row", 4)
	v.SetDefault("heartbeat_ms", 500)
	v.SetDefault("scroll_delay_ms", 500)
	v.SetDefault("show_hidden", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("prune_max_bytes", 500<<20)
	v.SetDefault("prune_max_files", 10000)
	v.SetDefault("debug", false)
}

// Load reads the config file at path, or ~/.xthumbgrid.yaml when path is
// empty. A missing default file is not an error. Flags that were set on
// the command line override everything else; flag names use dashes for
// the underscores of the keys.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if flags != nil {
		for _, key := range v.AllKeys() {
			if f := flags.Lookup(flagName(key)); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.Set("cache_size", cfg.CacheSize)
	v.Set("store_backend", cfg.StoreBackend)
	v.Set("store_dir", cfg.StoreDir)
	v.Set("ffmpeg_path", cfg.FFmpegPath)
	v.Set("workers", cfg.Workers)
	v.Set("queue_size", cfg.QueueSize)
	v.Set("row_height", cfg.RowHeight)
	v.Set("folders_per_row", cfg.FoldersPerRow)
	v.Set("heartbeat_ms", cfg.HeartbeatMS)
	v.Set("scroll_delay_ms", cfg.ScrollDelayMS)
	v.Set("show_hidden", cfg.ShowHidden)
	v.Set("metrics_addr", cfg.MetricsAddr)
	v.Set("prune_max_bytes", cfg.PruneMaxBytes)
	v.Set("prune_max_files", cfg.PruneMaxFiles)
	v.Set("debug", cfg.Debug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configName+".yaml"), nil
}

func flagName(key string) string {
	b := []byte(key)
	for i, c := range b {
		if c == '_' {
			b[i] = '-'
		}
	}
	return string(b)
}
