// Package config loads configs/config.yml through viper, layers FURNACE_*
// environment variables and command-line flags on top, and validates the
// result into a typed Config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	HeaterSim  = "sim"
	HeaterGPIO = "gpio"
)

// Config is the top-level configuration, mirroring the YAML sections.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Control  ControlConfig  `mapstructure:"control"`
	Heater   HeaterConfig   `mapstructure:"heater"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Programs ProgramsConfig `mapstructure:"programs"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ControlConfig drives the control loop and the over-temperature monitor.
type ControlConfig struct {
	Tick           time.Duration `mapstructure:"tick"`
	AmbientC       float64       `mapstructure:"ambient_c"`
	MaxSafeC       float64       `mapstructure:"max_safe_c"`
	RecorderBuffer int           `mapstructure:"recorder_buffer"`
}

type HeaterConfig struct {
	Driver          string  `mapstructure:"driver"`
	Chip            string  `mapstructure:"chip"`
	Line            int     `mapstructure:"line"`
	ActiveLow       bool    `mapstructure:"active_low"`
	RampUpCPerSec   float64 `mapstructure:"ramp_up_c_per_sec"`
	CoolDownCPerSec float64 `mapstructure:"cool_down_c_per_sec"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type ProgramsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Flags returns the command-line flag set understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("furnace", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Path to config file (default configs/config.yml)")
	fs.StringP("port", "p", "", "HTTP listen port")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("db.path", "app.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("control.tick", time.Second)
	v.SetDefault("control.ambient_c", 25.0)
	v.SetDefault("control.max_safe_c", 1000.0)
	v.SetDefault("control.recorder_buffer", 64)
	v.SetDefault("heater.driver", HeaterSim)
	v.SetDefault("heater.chip", "gpiochip0")
	v.SetDefault("heater.line", 17)
	v.SetDefault("heater.active_low", false)
	v.SetDefault("heater.ramp_up_c_per_sec", 3.0)
	v.SetDefault("heater.cool_down_c_per_sec", 0.5)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "heat-treat-furnace")
	v.SetDefault("mqtt.topic_prefix", "furnace")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("programs.dir", "programs")
}

// Load reads the config file, applies FURNACE_* env overrides and any flags
// set on fs, then validates. fs may be nil. A missing configs/config.yml is
// tolerated; a missing explicit --config path is not.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FURNACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
		if err := bindFlag(v, fs, "server.port", "port"); err != nil {
			return Config{}, err
		}
		if err := bindFlag(v, fs, "log.level", "log-level"); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, name string) error {
	f := fs.Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	if err := v.BindPFlag(key, f); err != nil {
		return fmt.Errorf("bind flag %s: %w", name, err)
	}
	return nil
}

// Validate rejects configurations the controller cannot run safely with.
func Validate(cfg Config) error {
	if cfg.Control.Tick <= 0 {
		return errors.New("control.tick must be > 0")
	}
	if cfg.Control.MaxSafeC <= cfg.Control.AmbientC {
		return errors.New("control.max_safe_c must be above control.ambient_c")
	}
	if cfg.Control.RecorderBuffer < 1 {
		return errors.New("control.recorder_buffer must be >= 1")
	}
	switch cfg.Heater.Driver {
	case HeaterSim, HeaterGPIO:
	default:
		return fmt.Errorf("heater.driver %q is not one of %s, %s", cfg.Heater.Driver, HeaterSim, HeaterGPIO)
	}
	if strings.TrimSpace(cfg.Auth.SigningKey) == "" {
		return errors.New("auth.signing_key must not be empty")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be > 0")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return errors.New("mqtt.broker must be set when mqtt is enabled")
	}
	if cfg.MQTT.QoS > 2 {
		return errors.New("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}
