// Package config provides configuration management for jdresolve.
//
// The package uses a Provider interface to abstract configuration loading,
// with the primary implementation being filesystem-based configuration via
// YAML files.
//
// # Configuration Structure
//
// Configuration is structured as follows:
//
//	nameservers:                # DNS servers to query (host:port)
//	  - 192.0.2.53:53
//	resolver:
//	  timeout: 30s              # Per-query deadline
//	  sockets: 64               # Concurrent query bound
//	  linecache: 10000          # Buffered input line bound
//	  mask: "%i.%c"             # Recursion name template
//
// # Basic Usage
//
// Load configuration using the default path (~/.jdresolve/config.yaml):
//
//	cfg, err := config.New().Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration Validation
//
// The package performs validation of loaded configuration:
//   - Query timeout must be at least 1 second
//   - Socket and line cache bounds must be positive
//   - The name mask must contain the %i token
//
// If no configuration file exists, the built-in defaults are used. Command
// line flags override any value read from the file.
package config
