package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	FileName  = "config.yaml"
	EnvPrefix = "DAYTASK"
)

type Config struct {
	DataDir          string `mapstructure:"-" yaml:"-"`
	DBPath           string `mapstructure:"db_path" yaml:"db_path"`
	LogFile          string `mapstructure:"log_file" yaml:"log_file"`
	LogLevel         string `mapstructure:"log_level" yaml:"log_level"`
	Timezone         string `mapstructure:"timezone" yaml:"timezone"`
	WeekStart        string `mapstructure:"week_start" yaml:"week_start"`
	LegacyWeekOffset bool   `mapstructure:"legacy_week_offset" yaml:"legacy_week_offset"`
}

// Default returns the configuration used when no config.yaml exists.
func Default(dataDir string) Config {
	return Config{
		DataDir:   dataDir,
		DBPath:    "daytask.db",
		LogFile:   "daytask.log",
		LogLevel:  "info",
		Timezone:  "Local",
		WeekStart: "sunday",
	}
}

// DefaultDataDir is ~/.daytask, falling back to the working directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".daytask"
	}
	return filepath.Join(home, ".daytask")
}

// New layers defaults, <dataDir>/config.yaml and DAYTASK_* environment variables.
func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	defaults := Default(dataDir)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("timezone", defaults.Timezone)
	v.SetDefault("week_start", defaults.WeekStart)
	v.SetDefault("legacy_week_offset", defaults.LegacyWeekOffset)

	path := filepath.Join(dataDir, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir = dataDir
	cfg.DBPath = resolve(dataDir, cfg.DBPath)
	cfg.LogFile = resolve(dataDir, cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := ParseWeekday(c.WeekStart); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.LogLevel)
	}
	return nil
}

// Location resolves the configured IANA timezone; "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if key == name || key == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unsupported week start %q", s)
}

// WriteDefault writes cfg as YAML to path, refusing to clobber an existing file.
func WriteDefault(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# daytask configuration\n")
	if err := os.WriteFile(path, append(header, payload...), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func resolve(dataDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dataDir, path)
}
