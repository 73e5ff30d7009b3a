package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	JWT      JWTConfig       `mapstructure:"jwt"`
	Line     LineConfig      `mapstructure:"line"`
	Live     LiveConfig      `mapstructure:"live"`
	Admin    AdminSeedConfig `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

// LineConfig holds the LINE Login channel used by /api/auth/line/*.
type LineConfig struct {
	ChannelID     string `mapstructure:"channelId"`
	ChannelSecret string `mapstructure:"channelSecret"`
	RedirectURI   string `mapstructure:"redirectUri"`
	AuthorizeURL  string `mapstructure:"authorizeUrl"`
	TokenURL      string `mapstructure:"tokenUrl"`
	VerifyURL     string `mapstructure:"verifyUrl"`
}

type LiveConfig struct {
	StartLockTTL time.Duration `mapstructure:"startLockTtl"`
	RefreshTopic string        `mapstructure:"refreshTopic"`
}

type AdminSeedConfig struct {
	DefaultUsername string `mapstructure:"defaultUsername"`
	DefaultPassword string `mapstructure:"defaultPassword"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}
	GlobalConfig = cfg
}

// Load reads the server config from path. Values can be overridden with
// REHAB_* environment variables, optionally provided through a .env file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper("REHAB")
	setServerDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("jwt.expire", 72)
	v.SetDefault("line.authorizeUrl", "https://access.line.me/oauth2/v2.1/authorize")
	v.SetDefault("line.tokenUrl", "https://api.line.me/oauth2/v2.1/token")
	v.SetDefault("line.verifyUrl", "https://api.line.me/oauth2/v2.1/verify")
	v.SetDefault("live.startLockTtl", 5*time.Second)
	v.SetDefault("live.refreshTopic", "live:refresh")
}
