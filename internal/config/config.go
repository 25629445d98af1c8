// Package config provides configuration loading and validation for jdresolve.
// It handles reading configuration from files, providing defaults, and ensuring
// all required settings are properly set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wepl/jdresolve/internal/filesys"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultConfigPath is the default path for the configuration file.
	DefaultConfigPath = ".jdresolve/config.yaml"
	// DefaultTimeout is the default per-query deadline.
	DefaultTimeout = 30 * time.Second
	// DefaultSockets is the default bound on concurrent DNS queries.
	DefaultSockets = 64
	// DefaultLineCache is the default bound on buffered input lines.
	DefaultLineCache = 10000
	// DefaultMask is the default template for recursion-synthesized names.
	DefaultMask = "%i.%c"
)

// Config holds the application configuration.
type Config struct {
	// Nameservers lists the DNS servers to query, as host:port. When empty,
	// the servers from /etc/resolv.conf are used.
	Nameservers []string       `yaml:"nameservers"`
	Resolver    ResolverConfig `yaml:"resolver"`
}

// ResolverConfig holds defaults for the resolver pipeline. Each field can be
// overridden by the corresponding command line flag.
type ResolverConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Sockets   int           `yaml:"sockets"`
	LineCache int           `yaml:"linecache"`
	Mask      string        `yaml:"mask"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.ReadWriteFS
	path string
}

var _ Provider = (*FSProvider)(nil)

// New creates a new configuration provider using the default configuration path.
// It uses the OS filesystem and the user's home directory to locate the
// configuration file. If the home directory cannot be determined, it falls
// back to the current directory.
func New() Provider {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine home directory: %v\n", err)
		home = ""
	}
	return NewWithPath(filesys.OS(), filepath.Join(home, DefaultConfigPath))
}

// NewWithPath creates a new provider with a specific config path.
// It allows specifying both the filesystem implementation and the path to use.
func NewWithPath(fs filesys.ReadWriteFS, path string) Provider {
	return &FSProvider{
		fs:   fs,
		path: path,
	}
}

// Default returns a default configuration with preset values.
// This is used when no configuration file exists.
func Default() *Config {
	return &Config{
		Resolver: ResolverConfig{
			Timeout:   DefaultTimeout,
			Sockets:   DefaultSockets,
			LineCache: DefaultLineCache,
			Mask:      DefaultMask,
		},
	}
}

// Load loads the configuration from the specified path.
func (p *FSProvider) Load() (*Config, error) {
	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Validate checks the configuration to ensure all required fields are set.
func (c *Config) Validate() error {
	if c.Resolver.Timeout < time.Second {
		return errors.New("query timeout must be at least 1 second")
	}
	if c.Resolver.Sockets < 1 {
		return errors.New("sockets must be at least 1")
	}
	if c.Resolver.LineCache < 1 {
		return errors.New("linecache must be at least 1")
	}
	if !strings.Contains(c.Resolver.Mask, "%i") {
		return errors.New("mask must contain the %i token")
	}
	for _, ns := range c.Nameservers {
		if strings.TrimSpace(ns) == "" {
			return errors.New("nameserver entries cannot be empty")
		}
	}
	return nil
}

// fillDefaults replaces zero-valued resolver settings with the package
// defaults so that a partial config file keeps working.
func (c *Config) fillDefaults() {
	if c.Resolver.Timeout == 0 {
		c.Resolver.Timeout = DefaultTimeout
	}
	if c.Resolver.Sockets == 0 {
		c.Resolver.Sockets = DefaultSockets
	}
	if c.Resolver.LineCache == 0 {
		c.Resolver.LineCache = DefaultLineCache
	}
	if c.Resolver.Mask == "" {
		c.Resolver.Mask = DefaultMask
	}
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}

	return &cfg, nil
}
