// Package config loads the key-injection configuration.
//
// The file is read once at startup. Any unreadable, malformed or invalid
// configuration is an error; nothing is partially applied.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"vkeyboard/internal/keys"
	"vkeyboard/internal/policy"
)

var (
	// ErrUnsupportedKey is returned when a configured key name does not resolve
	ErrUnsupportedKey = errors.New("unsupported key")

	// ErrUnsupportedModifier is returned when a configured modifier name does not resolve
	ErrUnsupportedModifier = errors.New("unsupported modifier")

	// ErrInvalidPID is returned when the target pid is missing, not positive
	// or outside the pid_t range
	ErrInvalidPID = errors.New("invalid pid")

	// ErrInvalidDelay is returned for a negative or unrepresentable keypress delay
	ErrInvalidDelay = errors.New("invalid keypress delay")
)

// Format identifies the configuration file syntax
type Format int

const (
	// JSON also accepts comments and trailing commas
	JSON Format = iota
	YAML
)

const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultReadTimeout = 5000

	// MaxPID is the largest pid a pid_t can carry
	MaxPID = math.MaxInt32

	// MaxKeypressDelay is the largest delay in milliseconds a time.Duration can hold
	MaxKeypressDelay = math.MaxInt64 / int64(time.Millisecond)
)

// File is the on-disk configuration record
type File struct {
	// PID is the process id that receives the keyboard events
	PID int `json:"pid" yaml:"pid"`

	// KeypressDelay is the pause in milliseconds before every posted event.
	// Needs tuning per application: too short and events get dropped.
	KeypressDelay int64 `json:"keypress_delay" yaml:"keypress_delay"`

	// Keys lists the keys requests may press
	Keys []KeyEntry `json:"keys" yaml:"keys"`

	// Server configures the network listener
	Server ServerConfig `json:"server" yaml:"server"`
}

// KeyEntry allows one key
type KeyEntry struct {
	// Key is a symbolic key name (e.g. "a", "enter", "uparrow")
	Key string `json:"key" yaml:"key"`

	// AllowedModifiers restricts the modifiers usable with Key.
	// Omitted: any modifier. Empty list: no modifier.
	AllowedModifiers []string `json:"allowed_modifiers" yaml:"allowed_modifiers"`
}

// ServerConfig contains listener settings
type ServerConfig struct {
	// Listen is the HTTP listen address (default: 127.0.0.1:8080)
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`

	// APIToken is an optional bearer token required on every request
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`

	// ReadTimeout in milliseconds for reading a request (default: 5000)
	ReadTimeout int64 `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
}

// Config is a validated configuration. It is immutable after Parse.
type Config struct {
	// PID is the target process id
	PID int

	// Server holds listener settings with defaults applied
	Server ServerConfig

	delay  time.Duration
	policy *policy.Policy
	path   string
}

// Delay returns the pause inserted before every posted event
func (c *Config) Delay() time.Duration { return c.delay }

// Policy returns the allow-list built from the key entries
func (c *Config) Policy() *policy.Policy { return c.policy }

// Path returns the absolute file path the config was loaded from, or "" if
// it was parsed from memory
func (c *Config) Path() string { return c.path }

// ReadTimeout returns the server read timeout
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeout) * time.Millisecond
}

// FormatForPath picks the format from the file extension
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		cfg.path = abs
	} else {
		cfg.path = path
	}
	return cfg, nil
}

// Parse decodes and validates configuration data
func Parse(data []byte, format Format) (*Config, error) {
	file, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return file.Validate()
}

func decode(data []byte, format Format) (*File, error) {
	var file File

	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}

	return &file, nil
}

// Validate resolves every key and modifier name and builds the Config
func (f *File) Validate() (*Config, error) {
	if f.PID <= 0 || f.PID > MaxPID {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPID, f.PID)
	}
	if f.KeypressDelay < 0 || f.KeypressDelay > MaxKeypressDelay {
		return nil, fmt.Errorf("%w: %dms", ErrInvalidDelay, f.KeypressDelay)
	}

	b := policy.NewBuilder()
	for _, entry := range f.Keys {
		code, ok := keys.ResolveKeyCode(entry.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedKey, entry.Key)
		}

		if entry.AllowedModifiers == nil {
			b.AllowAny(code)
			continue
		}

		mods := make([]keys.Modifier, 0, len(entry.AllowedModifiers))
		for _, name := range entry.AllowedModifiers {
			m, ok := keys.ResolveModifier(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q (key %q)", ErrUnsupportedModifier, name, entry.Key)
			}
			mods = append(mods, m)
		}
		b.Allow(code, mods...)
	}

	server := f.Server
	if server.Listen == "" {
		server.Listen = DefaultListen
	}
	if server.ReadTimeout <= 0 {
		server.ReadTimeout = DefaultReadTimeout
	}

	return &Config{
		PID:    f.PID,
		Server: server,
		delay:  time.Duration(f.KeypressDelay) * time.Millisecond,
		policy: b.Build(),
	}, nil
}
