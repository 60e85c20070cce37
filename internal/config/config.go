package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInputMissing is returned when a configured input directory or file does not exist.
var ErrInputMissing = errors.New("input missing")

const (
	DefaultMinYear      = 2025
	DefaultOutput       = "informe_soportes.xlsx"
	DefaultLanguage     = "es"
	DefaultOpenAIModel  = "whisper-1"
	DefaultServiceLimit = "5m"
	DefaultAgentSender  = "Soporte donucol"
)

type Config struct {
	ChatsDir       string   `toml:"chats_dir"`
	MediaDir       string   `toml:"media_dir"`
	DBPath         string   `toml:"db_path"`
	Output         string   `toml:"output"`
	MinYear        int      `toml:"min_year"`
	AgentSenders   []string `toml:"agent_senders"`
	CategoriesFile string   `toml:"categories_file"`
	MetricsFile    string   `toml:"metrics_file"`

	Log         LogConfig         `toml:"log"`
	Cache       CacheConfig       `toml:"cache"`
	Transcriber TranscriberConfig `toml:"transcriber"`
	OCR         CommandConfig     `toml:"ocr"`
	Visual      CommandConfig     `toml:"visual"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

type CacheConfig struct {
	Backend     string `toml:"backend"` // "sqlite" (default) or "redis"
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
}

type TranscriberConfig struct {
	Backend     string   `toml:"backend"` // "command" (default) or "openai"
	Command     []string `toml:"command"`
	Language    string   `toml:"language"`
	ConvertWAV  bool     `toml:"convert_wav"`
	FFmpeg      string   `toml:"ffmpeg"`
	OpenAIModel string   `toml:"openai_model"`
	APIKeyEnv   string   `toml:"api_key_env"`
	BaseURL     string   `toml:"base_url"`
	Timeout     string   `toml:"timeout"`
}

// CommandConfig describes an external program invoked once per media file.
// "{file}" in Command is replaced by the media path.
type CommandConfig struct {
	Command []string `toml:"command"`
	Timeout string   `toml:"timeout"`
}

// Dir returns the default configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".informe")
	}
	return filepath.Join(home, ".config", "informe")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	dir := Dir()
	return &Config{
		ChatsDir:     "chats_soporte",
		DBPath:       filepath.Join(dir, "informe.db"),
		Output:       DefaultOutput,
		MinYear:      DefaultMinYear,
		AgentSenders: []string{DefaultAgentSender}, // agent_senders = [] keeps the agent's own lines
		Log:          LogConfig{Level: "info"},
		Cache: CacheConfig{
			Backend:     "sqlite",
			RedisPrefix: "informe:transcript:",
		},
		Transcriber: TranscriberConfig{
			Backend:     "command",
			Command:     []string{"whisper-cli", "-l", "es", "-nt", "-np", "-f", "{file}"},
			Language:    DefaultLanguage,
			ConvertWAV:  true,
			FFmpeg:      "ffmpeg",
			OpenAIModel: DefaultOpenAIModel,
			APIKeyEnv:   "OPENAI_API_KEY",
			Timeout:     DefaultServiceLimit,
		},
		OCR: CommandConfig{
			Command: []string{"tesseract", "{file}", "-", "-l", "spa"},
			Timeout: "1m",
		},
		Visual: CommandConfig{
			Timeout: "1m",
		},
	}
}

// Load reads the config file at path, or the default location when path is
// empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := Default()

	cfgPath := path
	if cfgPath == "" {
		cfgPath = filepath.Join(Dir(), "config.toml")
	}
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	} else if path != "" {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	// expand ~ in paths
	cfg.ChatsDir = expandHome(cfg.ChatsDir, home)
	cfg.MediaDir = expandHome(cfg.MediaDir, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.Output = expandHome(cfg.Output, home)
	cfg.CategoriesFile = expandHome(cfg.CategoriesFile, home)
	cfg.MetricsFile = expandHome(cfg.MetricsFile, home)

	if cfg.MediaDir == "" {
		cfg.MediaDir = cfg.ChatsDir
	}

	return cfg, cfg.Validate()
}

// Validate checks enumerated settings and durations.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "sqlite", "":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache: redis backend requires redis_addr")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q", c.Cache.Backend)
	}

	switch c.Transcriber.Backend {
	case "command", "":
		if len(c.Transcriber.Command) == 0 {
			return errors.New("transcriber: command backend requires a command")
		}
	case "openai":
	default:
		return fmt.Errorf("transcriber: unknown backend %q", c.Transcriber.Backend)
	}

	for name, s := range map[string]string{
		"transcriber.timeout": c.Transcriber.Timeout,
		"ocr.timeout":         c.OCR.Timeout,
		"visual.timeout":      c.Visual.Timeout,
	} {
		if _, err := ParseTimeout(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ParseTimeout parses a duration string; empty means no timeout.
func ParseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// CheckInputs verifies that the chats and media locations exist. It runs
// before any processing starts.
func (c *Config) CheckInputs() error {
	for _, p := range []string{c.ChatsDir, c.MediaDir} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s", ErrInputMissing, p)
		}
	}
	return nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
