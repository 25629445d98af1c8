package config_test

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/wepl/jdresolve/internal/config"
)

type ConfigTestSuite struct {
	suite.Suite
	fs       mockFS
	provider config.Provider
}

type mockFS struct {
	files map[string]string
}

func (m mockFS) Stat(path string) (os.FileInfo, error) {
	if _, ok := m.files[path]; !ok {
		return nil, os.ErrNotExist
	}
	return nil, nil
}

func (m mockFS) MkdirAll(_ string, _ os.FileMode) error {
	return nil
}

func (m mockFS) Open(path string) (*os.File, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	tmp, err := os.CreateTemp("", "mock-*") // the loader closes it; the file is not removed
	if err != nil {
		return nil, err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, err
	}
	return tmp, nil
}

func (m mockFS) WriteFile(path string, content []byte, _ os.FileMode) error {
	m.files[path] = string(content)
	return nil
}

func (s *ConfigTestSuite) SetupTest() {
	s.fs = mockFS{
		files: make(map[string]string),
	}
	s.provider = config.NewWithPath(s.fs, "test/config.yaml")
}

func (s *ConfigTestSuite) TestLoadDefaultWhenNoFile() {
	// When loading configuration with no file present
	cfg, err := s.provider.Load()

	// Then default configuration should be returned
	s.Require().NoError(err)
	s.Equal(config.DefaultTimeout, cfg.Resolver.Timeout)
	s.Equal(config.DefaultSockets, cfg.Resolver.Sockets)
	s.Equal(config.DefaultLineCache, cfg.Resolver.LineCache)
	s.Equal(config.DefaultMask, cfg.Resolver.Mask)
	s.Empty(cfg.Nameservers)
}

func (s *ConfigTestSuite) TestLoadValidConfig() {
	// Given a valid config file
	s.fs.files["test/config.yaml"] = `
nameservers:
  - 192.0.2.53:53
resolver:
  timeout: 10s
  sockets: 128
  linecache: 500
  mask: "%i.rev.%c"
`
	// When loading configuration
	cfg, err := s.provider.Load()

	// Then custom values should be loaded
	s.Require().NoError(err)
	s.Equal([]string{"192.0.2.53:53"}, cfg.Nameservers)
	s.Equal(10*time.Second, cfg.Resolver.Timeout)
	s.Equal(128, cfg.Resolver.Sockets)
	s.Equal(500, cfg.Resolver.LineCache)
	s.Equal("%i.rev.%c", cfg.Resolver.Mask)
}

func (s *ConfigTestSuite) TestPartialConfigKeepsDefaults() {
	// Given a config file that only overrides the socket bound
	s.fs.files["test/config.yaml"] = `
resolver:
  sockets: 16
`
	cfg, err := s.provider.Load()

	s.Require().NoError(err)
	s.Equal(16, cfg.Resolver.Sockets)
	s.Equal(config.DefaultTimeout, cfg.Resolver.Timeout)
	s.Equal(config.DefaultLineCache, cfg.Resolver.LineCache)
	s.Equal(config.DefaultMask, cfg.Resolver.Mask)
}

func (s *ConfigTestSuite) TestValidation() {
	testCases := []struct {
		name        string
		config      config.Config
		expectedErr string
	}{
		{
			name: "valid config",
			config: config.Config{
				Resolver: config.ResolverConfig{
					Timeout:   30 * time.Second,
					Sockets:   64,
					LineCache: 10000,
					Mask:      "%i.%c",
				},
			},
		},
		{
			name: "timeout too small",
			config: config.Config{
				Resolver: config.ResolverConfig{
					Timeout:   100 * time.Millisecond,
					Sockets:   64,
					LineCache: 10000,
					Mask:      "%i.%c",
				},
			},
			expectedErr: "query timeout must be at least 1 second",
		},
		{
			name: "non-positive sockets",
			config: config.Config{
				Resolver: config.ResolverConfig{
					Timeout:   30 * time.Second,
					Sockets:   0,
					LineCache: 10000,
					Mask:      "%i.%c",
				},
			},
			expectedErr: "sockets must be at least 1",
		},
		{
			name: "non-positive linecache",
			config: config.Config{
				Resolver: config.ResolverConfig{
					Timeout:   30 * time.Second,
					Sockets:   64,
					LineCache: -1,
					Mask:      "%i.%c",
				},
			},
			expectedErr: "linecache must be at least 1",
		},
		{
			name: "mask missing address token",
			config: config.Config{
				Resolver: config.ResolverConfig{
					Timeout:   30 * time.Second,
					Sockets:   64,
					LineCache: 10000,
					Mask:      "host.%c",
				},
			},
			expectedErr: "mask must contain the %i token",
		},
		{
			name: "blank nameserver entry",
			config: config.Config{
				Nameservers: []string{"  "},
				Resolver: config.ResolverConfig{
					Timeout:   30 * time.Second,
					Sockets:   64,
					LineCache: 10000,
					Mask:      "%i.%c",
				},
			},
			expectedErr: "nameserver entries cannot be empty",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := tc.config.Validate()
			if tc.expectedErr == "" {
				s.NoError(err)
				return
			}
			s.Require().Error(err)
			s.Contains(err.Error(), tc.expectedErr)
		})
	}
}

func (s *ConfigTestSuite) TestInvalidYAML() {
	s.fs.files["test/config.yaml"] = "resolver: [not a mapping"

	_, err := s.provider.Load()
	s.Require().Error(err)
	s.Contains(err.Error(), "decoding config file")
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
