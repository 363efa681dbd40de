package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode   string       `mapstructure:"mode"`
	Port   int          `mapstructure:"port"`
	Secret string       `mapstructure:"secret"`
	Log    LogConfig    `mapstructure:"log"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	WS     WSConfig     `mapstructure:"ws"`
	Signal SignalConfig `mapstructure:"signal"`
	WebRTC WebRTCConfig `mapstructure:"webrtc"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	StaticPath string   `mapstructure:"static_path"`
	CORSAllow  []string `mapstructure:"cors_allow"`
}

type WSConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
}

type SignalConfig struct {
	SendBuffer      int     `mapstructure:"send_buffer"`
	Backpressure    string  `mapstructure:"backpressure"`
	CloseSuperseded bool    `mapstructure:"close_superseded"`
	StrictICESource bool    `mapstructure:"strict_ice_source"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateBurst       int     `mapstructure:"rate_burst"`
}

type WebRTCConfig struct {
	ICEServers []string `mapstructure:"ice_servers"`
}

const envPrefix = "RELAY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "dev-secret-change-me")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.static_path", "./web")
	v.SetDefault("http.cors_allow", []string{"http://localhost:5173"})
	v.SetDefault("ws.read_limit", 65536)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "5s")
	v.SetDefault("signal.send_buffer", 256)
	v.SetDefault("signal.backpressure", "drop")
	v.SetDefault("signal.close_superseded", false)
	v.SetDefault("signal.strict_ice_source", false)
	v.SetDefault("signal.rate_limit", 50)
	v.SetDefault("signal.rate_burst", 100)
	v.SetDefault("webrtc.ice_servers", []string{"stun:stun.l.google.com:19302"})
}

// Load reads config/config.<CONFIG_ENV>.yaml (or --config), then RELAY_*
// environment variables, then flags from args. A missing file is not an
// error.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("callrelay", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a YAML config file")
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("mode", "release", "gin mode: debug or release")
	fs.String("log-level", "info", "zerolog level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{"port": "port", "mode": "mode", "log.level": "log-level"} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	fileName := *configFile
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if _, err := os.Stat(fileName); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("backpressure", cfg.Signal.Backpressure).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Signal.SendBuffer <= 0 {
		return fmt.Errorf("signal.send_buffer must be positive, got %d", c.Signal.SendBuffer)
	}
	switch c.Signal.Backpressure {
	case "drop", "disconnect":
	default:
		return fmt.Errorf("signal.backpressure must be drop or disconnect, got %q", c.Signal.Backpressure)
	}
	if c.WS.PingPeriod <= 0 || c.WS.PongWait <= c.WS.PingPeriod {
		return fmt.Errorf("ws.pong_wait (%s) must exceed ws.ping_period (%s)", c.WS.PongWait, c.WS.PingPeriod)
	}
	if c.Signal.RateLimit < 0 {
		return fmt.Errorf("signal.rate_limit must not be negative")
	}
	return nil
}
