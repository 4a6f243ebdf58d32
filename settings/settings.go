// Package settings loads server settings from an optional config file and
// CARRERITAS_* environment variables.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wricardo/carreritas/game/session"
)

// EnvPrefix prefixes every environment variable, e.g. CARRERITAS_HTTP_PORT
const EnvPrefix = "CARRERITAS"

// Settings is the full server configuration
type Settings struct {
	Game          session.Settings `mapstructure:"game"`
	HTTP          HTTP             `mapstructure:"http"`
	TracksDir     string           `mapstructure:"tracks_dir"`
	SessionsDir   string           `mapstructure:"sessions_dir"`
	SessionMaxAge time.Duration    `mapstructure:"session_max_age"`
	Store         Store            `mapstructure:"store"`
	Influx        Influx           `mapstructure:"influx"`
	Log           Log              `mapstructure:"log"`
	Ngrok         Ngrok            `mapstructure:"ngrok"`
}

type HTTP struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port
func (h HTTP) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type Store struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres or none
	DSN    string `mapstructure:"dsn"`
}

type Influx struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

type Log struct {
	Level    string `mapstructure:"level"`
	GelfAddr string `mapstructure:"gelf_addr"`
}

type Ngrok struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"authtoken"`
	Domain    string `mapstructure:"domain"`
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("game.speed_constant", session.DefaultSettings().SpeedConstant)
	v.SetDefault("game.player_separation", session.DefaultSettings().PlayerSeparation)

	v.SetDefault("http.host", "localhost")
	v.SetDefault("http.port", 8080)

	v.SetDefault("tracks_dir", "configs")
	v.SetDefault("sessions_dir", "sessions")
	v.SetDefault("session_max_age", 24*time.Hour)

	v.SetDefault("store.driver", "none")
	v.SetDefault("store.dsn", "carreritas.db")

	v.SetDefault("influx.url", "")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "carreritas")
	v.SetDefault("influx.bucket", "turns")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.gelf_addr", "")

	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authtoken", "")
	v.SetDefault("ngrok.domain", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// ngrok's own variable keeps working
	v.BindEnv("ngrok.authtoken", EnvPrefix+"_NGROK_AUTHTOKEN", "NGROK_AUTHTOKEN")

	return v
}

// Load reads the settings. An explicit configFile must exist; otherwise a
// carreritas.{yaml,json,toml} in the working directory is used when present.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("carreritas")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings
func (s *Settings) Validate() error {
	if err := s.Game.Validate(); err != nil {
		return err
	}
	if s.HTTP.Port <= 0 || s.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", s.HTTP.Port)
	}
	switch s.Store.Driver {
	case "", "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite, postgres or none, got %q", s.Store.Driver)
	}
	if s.SessionMaxAge < 0 {
		return fmt.Errorf("session_max_age must not be negative")
	}
	return nil
}

// StoreEnabled reports whether a SQL store is configured
func (s *Settings) StoreEnabled() bool {
	return s.Store.Driver != "" && s.Store.Driver != "none"
}
