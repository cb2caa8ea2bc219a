// Package config loads board configuration from defaults, an optional YAML
// file and MSGBOARD_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix starts every environment override. A double underscore
	// separates section and key: MSGBOARD_REMOTE__API_KEY -> remote.api_key.
	EnvPrefix = "MSGBOARD_"
	// ConfigPathEnvVar names a config file to load.
	ConfigPathEnvVar = "MSGBOARD_CONFIG"
)

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"msgboard.yaml",
	"/etc/msgboard/config.yaml",
	"/boot/msgboard.yaml",
}

type Config struct {
	WiFi    WiFiConfig    `koanf:"wifi"`
	Remote  RemoteConfig  `koanf:"remote"`
	Board   BoardConfig   `koanf:"board"`
	Display DisplayConfig `koanf:"display"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	System  SystemConfig  `koanf:"system"`
}

type WiFiConfig struct {
	// Enabled turns off radio management on development machines that are
	// already online.
	Enabled        bool          `koanf:"enabled"`
	SSID           string        `koanf:"ssid" validate:"required_if=Enabled true"`
	Password       string        `koanf:"password"`
	StaticIP       string        `koanf:"static_ip" validate:"omitempty,ipv4"`
	Netmask        string        `koanf:"netmask" validate:"omitempty,ipv4"`
	Gateway        string        `koanf:"gateway" validate:"omitempty,ipv4"`
	DNS            string        `koanf:"dns" validate:"omitempty,ipv4"`
	JoinTimeout    time.Duration `koanf:"join_timeout" validate:"gt=0"`
	AddressTimeout time.Duration `koanf:"address_timeout" validate:"gt=0"`
	ProbeURL       string        `koanf:"probe_url" validate:"required,url"`
	ProbeTimeout   time.Duration `koanf:"probe_timeout" validate:"gt=0"`
	CheckAttempts  int           `koanf:"check_attempts" validate:"min=1,max=10"`
}

type RemoteConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	Username    string        `koanf:"username" validate:"required"`
	APIKey      string        `koanf:"api_key" validate:"required"`
	Group       string        `koanf:"group" validate:"required"`
	TextFeed    string        `koanf:"text_feed" validate:"required"`
	MessageFeed string        `koanf:"message_feed" validate:"required"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries  int           `koanf:"max_retries" validate:"min=1,max=10"`
	FetchLimit  int           `koanf:"fetch_limit" validate:"min=1"`
}

type BoardConfig struct {
	PollInterval  time.Duration `koanf:"poll_interval" validate:"gt=0"`
	BusyWait      time.Duration `koanf:"busy_wait" validate:"gt=0"`
	IdleWait      time.Duration `koanf:"idle_wait" validate:"gt=0"`
	QueueCapacity int           `koanf:"queue_capacity" validate:"min=1"`
	// ReadySplash is how long the status QR code is shown after startup.
	ReadySplash time.Duration `koanf:"ready_splash" validate:"gte=0"`
}

type DisplayConfig struct {
	Headless    bool    `koanf:"headless"`
	Device      string  `koanf:"device"`
	Width       int     `koanf:"width" validate:"min=8"`
	Height      int     `koanf:"height" validate:"min=8"`
	AssetDir    string  `koanf:"asset_dir"`
	FontDir     string  `koanf:"font_dir"`
	FontSize    float64 `koanf:"font_size" validate:"gt=0"`
	FrameRate   int     `koanf:"frame_rate" validate:"min=1,max=120"`
	ScrollSpeed int     `koanf:"scroll_speed" validate:"min=1"`
}

type ServerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
	// PublicURL is encoded in the ready splash QR code.
	PublicURL   string   `koanf:"public_url" validate:"omitempty,url"`
	DevCORS     bool     `koanf:"dev_cors"`
	CORSOrigins []string `koanf:"cors_origins"`
	// RateLimit is requests per minute per client on the status API.
	RateLimit int `koanf:"rate_limit" validate:"min=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	// File, when set, receives log output instead of stderr.
	File string `koanf:"file"`
}

type SystemConfig struct {
	Watchdog        bool `koanf:"watchdog"`
	Sudo            bool `koanf:"sudo"`
	ConsoleGraphics bool `koanf:"console_graphics"`
}

func defaultConfig() *Config {
	return &Config{
		WiFi: WiFiConfig{
			Enabled:        true,
			JoinTimeout:    30 * time.Second,
			AddressTimeout: 15 * time.Second,
			ProbeURL:       "https://www.adafruit.com",
			ProbeTimeout:   5 * time.Second,
			CheckAttempts:  3,
		},
		Remote: RemoteConfig{
			BaseURL:     "https://io.adafruit.com/api/v2",
			Group:       "scroller",
			TextFeed:    "text-queue",
			MessageFeed: "message-queue",
			Timeout:     10 * time.Second,
			MaxRetries:  3,
			FetchLimit:  5,
		},
		Board: BoardConfig{
			PollInterval:  30 * time.Second,
			BusyWait:      2 * time.Second,
			IdleWait:      10 * time.Second,
			QueueCapacity: 250,
			ReadySplash:   5 * time.Second,
		},
		Display: DisplayConfig{
			Device:      "/dev/fb0",
			Width:       128,
			Height:      32,
			AssetDir:    ".",
			FontDir:     "fonts",
			FontSize:    12,
			FrameRate:   30,
			ScrollSpeed: 48,
		},
		Server: ServerConfig{
			Enabled:   true,
			Addr:      ":8080",
			RateLimit: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		System: SystemConfig{
			Watchdog:        true,
			Sudo:            true,
			ConsoleGraphics: true,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// MSGBOARD_CONFIG and DefaultConfigPaths are tried.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps MSGBOARD_SECTION__KEY to section.key. The config
// path variable itself is not a setting and is dropped.
func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the static addressing combination.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if c.WiFi.Gateway != "" && c.WiFi.StaticIP == "" {
		return errors.New("wifi.gateway set without wifi.static_ip")
	}
	return nil
}
