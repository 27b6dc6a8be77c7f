package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/adrg/xdg"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	appDir      = "tictactoe-arena"
	configFile  = appDir + "/config.yml"
	historyFile = appDir + "/history.db"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel string   `yaml:"log-level" env:"TICTACTOE_LOG_LEVEL" env-default:"info"`
	HTTPPort string   `yaml:"http-port" env:"TICTACTOE_HTTP_PORT" env-default:"9090"`
	Redis    Redis    `yaml:"redis"`
	Game     Game     `yaml:"game"`
	Presence Presence `yaml:"presence"`
	History  History  `yaml:"history"`
}

type Redis struct {
	Host     string `yaml:"host" env:"TICTACTOE_REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"TICTACTOE_REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"TICTACTOE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"TICTACTOE_REDIS_DB" env-default:"0"`
}

type Game struct {
	DefaultGridSize int           `yaml:"default-grid-size" env:"TICTACTOE_GRID_SIZE" env-default:"3"`
	ComputerDelay   time.Duration `yaml:"computer-delay" env:"TICTACTOE_COMPUTER_DELAY" env-default:"500ms"`
	ReplayDelay     time.Duration `yaml:"replay-delay" env:"TICTACTOE_REPLAY_DELAY" env-default:"700ms"`
}

type Presence struct {
	ActiveWindow time.Duration `yaml:"active-window" env:"TICTACTOE_ACTIVE_WINDOW" env-default:"5m"`
}

type History struct {
	// Path of the local SQLite history. Empty means the XDG data directory.
	Path string `yaml:"path" env:"TICTACTOE_HISTORY_PATH"`
}

// MustLoad - load all configurations from path and the environment.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// Load reads path when it is set, the environment only otherwise.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(config)
	} else {
		err = cleanenv.ReadConfig(path, config)
	}

	if err != nil {
		return nil, err
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	if that.Game.DefaultGridSize < 3 || that.Game.DefaultGridSize > 5 {
		return fmt.Errorf("%w: default grid size %d is outside 3..5", ErrInvalidConfig, that.Game.DefaultGridSize)
	}

	if that.Game.ComputerDelay <= 0 || that.Game.ReplayDelay <= 0 {
		return fmt.Errorf("%w: delays must be positive", ErrInvalidConfig)
	}

	switch that.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, that.LogLevel)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// ResolvePath returns the configured history path or a file under the XDG data directory.
func (that *History) ResolvePath() (string, error) {
	if that.Path != "" {
		return that.Path, nil
	}

	path, err := xdg.DataFile(historyFile)
	if err != nil {
		return "", fmt.Errorf("failed to resolve history path: %w", err)
	}

	return path, nil
}

// SearchPath finds config.yml under the XDG config directories. It returns an empty path when
// there is none.
func SearchPath() string {
	path, err := xdg.SearchConfigFile(configFile)
	if err != nil {
		return ""
	}

	return path
}
