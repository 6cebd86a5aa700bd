// Package config provides configuration management for the lifecycle server.
//
// This package loads, validates and watches configuration from a YAML file
// with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("lifecycle.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("lifecycle.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention LIFECYCLE_SECTION_FIELD.
// For example:
//
//   - LIFECYCLE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - LIFECYCLE_AUDIT_BACKEND overrides audit.backend
//   - LIFECYCLE_AUDIT_MYSQL_DSN overrides audit.mysql.dsn
//   - LIFECYCLE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Reloading
//
// Watcher reloads the file when it changes and hands the new configuration
// to a callback. Only settings that can change at runtime (pool limits and
// the log level) are re-applied by the server; everything else requires a
// restart.
//
// Configuration is passed explicitly to the components that need it. There
// is no package-level configuration instance.
package config
