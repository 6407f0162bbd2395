// Package config loads the service configuration.
//
// Values come from built-in defaults, an optional YAML file (--config) and
// DASH_* environment variables, in that order of precedence.
//
// Example dash.yaml:
//
//	app:
//	  id: com.noiddea.dash
//	database:
//	  driver: sqlite3
//	  cache_size: -8192
//	server:
//	  listen: 127.0.0.1:4317
//	  allowed_origins: ["app://localhost", "http://localhost:1420"]
//	logging:
//	  level: info
//	  format: json
package config
