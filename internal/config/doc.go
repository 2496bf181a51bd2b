// Package config loads the gateway configuration.
//
// Values come from, lowest precedence first: built-in defaults, an optional
// config file (YAML, TOML or JSON), a .env file and ELG_* environment
// variables. Nested keys map to variables by replacing dots with
// underscores, e.g. tracker.dummyMode is ELG_TRACKER_DUMMYMODE.
package config
