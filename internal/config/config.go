package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = 5000
	defaultLogLevel      = "info"
	defaultDownloadDir   = "/DATA/Downloads"
	defaultLidarrURL     = "http://127.0.0.1:8686"
	defaultPageSize      = 200
	defaultLidarrTimeout = 30 * time.Second
	defaultBinary        = "yt-dlp"
	defaultAudioFormat   = "mp3"
	defaultAudioQuality  = "192K"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Environment variables that take precedence over the config file.
const (
	EnvLidarrURL    = "LIDARR_URL"
	EnvLidarrAPIKey = "LIDARR_API_KEY"
	EnvDownloadPath = "DOWNLOAD_PATH"
	EnvPort         = "PORT"
)

// Config describes runtime configuration for the service.
type Config struct {
	Port        int           `yaml:"port"`
	LogLevel    string        `yaml:"log_level"`
	DownloadDir string        `yaml:"download_dir"`
	Lidarr      LidarrConfig  `yaml:"lidarr"`
	Fetcher     FetcherConfig `yaml:"fetcher"`
}

// LidarrConfig points at the catalog manager.
type LidarrConfig struct {
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	PageSize int           `yaml:"page_size"`
	Timeout  time.Duration `yaml:"timeout"`
}

// FetcherConfig tunes the yt-dlp invocation.
type FetcherConfig struct {
	Binary       string `yaml:"binary"`
	AudioFormat  string `yaml:"audio_format"`
	AudioQuality string `yaml:"audio_quality"`
	UserAgent    string `yaml:"user_agent"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:        defaultPort,
		LogLevel:    defaultLogLevel,
		DownloadDir: defaultDownloadDir,
		Lidarr: LidarrConfig{
			URL:      defaultLidarrURL,
			PageSize: defaultPageSize,
			Timeout:  defaultLidarrTimeout,
		},
		Fetcher: FetcherConfig{
			Binary:       defaultBinary,
			AudioFormat:  defaultAudioFormat,
			AudioQuality: defaultAudioQuality,
			UserAgent:    defaultUserAgent,
		},
	}
}

// Load reads YAML config from the provided path and applies environment
// overrides. If the file does not exist or is empty, defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) > 0 {
		if err := yaml.Unmarshal(fileData, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	normalize(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ZerologLevel maps LogLevel to a zerolog level, falling back to info.
func (c Config) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLidarrURL); ok && v != "" {
		cfg.Lidarr.URL = v
	}
	if v, ok := lookup(EnvLidarrAPIKey); ok && v != "" {
		cfg.Lidarr.APIKey = v
	}
	if v, ok := lookup(EnvDownloadPath); ok && v != "" {
		cfg.DownloadDir = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	return nil
}

func normalize(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaultDownloadDir
	}
	cfg.Lidarr.URL = strings.TrimRight(strings.TrimSpace(cfg.Lidarr.URL), "/")
	if cfg.Lidarr.URL == "" {
		cfg.Lidarr.URL = defaultLidarrURL
	}
	if cfg.Lidarr.PageSize <= 0 {
		cfg.Lidarr.PageSize = defaultPageSize
	}
	if cfg.Lidarr.Timeout <= 0 {
		cfg.Lidarr.Timeout = defaultLidarrTimeout
	}
	if cfg.Fetcher.Binary == "" {
		cfg.Fetcher.Binary = defaultBinary
	}
	if cfg.Fetcher.AudioFormat == "" {
		cfg.Fetcher.AudioFormat = defaultAudioFormat
	}
	cfg.Fetcher.AudioFormat = strings.ToLower(strings.TrimPrefix(cfg.Fetcher.AudioFormat, "."))
	if cfg.Fetcher.AudioQuality == "" {
		cfg.Fetcher.AudioQuality = defaultAudioQuality
	}
	if cfg.Fetcher.UserAgent == "" {
		cfg.Fetcher.UserAgent = defaultUserAgent
	}
}

func validate(cfg Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if !strings.HasPrefix(cfg.Lidarr.URL, "http://") && !strings.HasPrefix(cfg.Lidarr.URL, "https://") {
		return fmt.Errorf("invalid lidarr url: %q (must start with http:// or https://)", cfg.Lidarr.URL)
	}
	return nil
}
