// Package config loads and validates process configuration from
// environment variables or a YAML file.
//
// Required upstream fields missing at load time are a fatal startup
// error; the proxy core is never constructed without a valid config.
package config
