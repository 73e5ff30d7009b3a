package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BoardConfig configures the courtboard operator console.
type BoardConfig struct {
	ServerURL    string        `mapstructure:"serverUrl"`
	SessionFile  string        `mapstructure:"sessionFile"`
	GameID       int64         `mapstructure:"gameId"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
	Strategy     string        `mapstructure:"strategy"` // fairness, peak
	Balance      bool          `mapstructure:"balance"`
	Backoff      BackoffConfig `mapstructure:"backoff"`
	Mode         string        `mapstructure:"mode"`
}

type BackoffConfig struct {
	Base time.Duration `mapstructure:"base"`
	Max  time.Duration `mapstructure:"max"`
}

// LoadBoard reads the console config. A missing file is not an error; the
// defaults and REHAB_BOARD_* environment variables apply.
func LoadBoard(path string) (*BoardConfig, error) {
	_ = godotenv.Load()

	v := newViper("REHAB_BOARD")
	v.SetDefault("serverUrl", "http://localhost:8080")
	v.SetDefault("sessionFile", ".courtboard-session.json")
	v.SetDefault("pollInterval", 10*time.Second)
	v.SetDefault("strategy", "fairness")
	v.SetDefault("balance", true)
	v.SetDefault("backoff.base", time.Second)
	v.SetDefault("backoff.max", 30*time.Second)
	v.SetDefault("mode", "debug")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	var cfg BoardConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
