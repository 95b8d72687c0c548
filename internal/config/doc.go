// Package config handles configuration loading for the addoc client.
//
// # Configuration File
//
// Default location:
//
//  1. Path from ADDOC_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/addoc/config.yaml (or ~/.config/addoc/config.yaml)
//
// A missing file is not an error; LoadOrDefault returns Default().
// Files ending in .toml are decoded as TOML, all others as YAML.
//
// # Environment Variable Expansion
//
//	server:
//	  base_url: "${ADDOC_URL}"
//
// ADDOC_SERVER overrides server.base_url after loading.
//
// # Configuration Sections
//
//	server:
//	  base_url: "http://127.0.0.1:8000"
//	  timeout: "5s"
//
//	session:
//	  store: "file"   # file, sqlite, memory
//	  path: ""        # defaults under the config directory
//
//	app:
//	  name: "ADDoc"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: false
package config
