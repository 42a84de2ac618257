package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen  = "127.0.0.1:8443"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	DefaultProfile string       `yaml:"default_profile" mapstructure:"default_profile"`
	Profiles       []Profile    `yaml:"profiles" mapstructure:"profiles"`
	Server         ServerConfig `yaml:"server" mapstructure:"server"`
}

// Profile is a named connection to an admin server.
type Profile struct {
	Name string `yaml:"name" mapstructure:"name"`
	URL  string `yaml:"url" mapstructure:"url"`
	User string `yaml:"user" mapstructure:"user"`
	// Timeout is a Go duration string such as "30s".
	Timeout string `yaml:"timeout,omitempty" mapstructure:"timeout"`
}

// ServerConfig configures `certadmin serve`.
type ServerConfig struct {
	Listen         string   `yaml:"listen" mapstructure:"listen"`
	Database       string   `yaml:"database" mapstructure:"database"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" mapstructure:"allowed_origins"`
}

func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "certadmin")
}

func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config at path. A missing file yields the defaults.
// CERTADMIN_* environment variables override file values, e.g.
// CERTADMIN_DEFAULT_PROFILE or CERTADMIN_SERVER_LISTEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CERTADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_profile", "")
	v.SetDefault("server.listen", DefaultListen)
	v.SetDefault("server.database", DBPath())

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) FindProfile(name string) *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i]
		}
	}
	return nil
}

// ResolveProfile picks the named profile, then the default profile, then the
// only profile if there is exactly one.
func (c *Config) ResolveProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		if len(c.Profiles) == 1 {
			return &c.Profiles[0], nil
		}
		if len(c.Profiles) == 0 {
			return nil, fmt.Errorf("no profiles configured, run 'certadmin config init' first")
		}
		return nil, fmt.Errorf("%d profiles configured, pick one with --profile", len(c.Profiles))
	}
	p := c.FindProfile(name)
	if p == nil {
		return nil, fmt.Errorf("unknown profile: %s", name)
	}
	return p, nil
}

// UpsertProfile replaces the profile with the same name or appends p.
func (c *Config) UpsertProfile(p Profile) {
	if existing := c.FindProfile(p.Name); existing != nil {
		*existing = p
		return
	}
	c.Profiles = append(c.Profiles, p)
}

// DatabasePath is the SQLite file shared by the CLI's credential store and
// `certadmin serve`. An unset path falls back to DBPath.
func (c *Config) DatabasePath() string {
	if c.Server.Database != "" {
		return c.Server.Database
	}
	return DBPath()
}

// TimeoutDuration parses Timeout, falling back to DefaultTimeout when unset.
func (p *Profile) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("profile %s: parsing timeout: %w", p.Name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("profile %s: timeout must be positive", p.Name)
	}
	return d, nil
}
