// Package config provides application-wide configuration loading.
//
// Configuration values come from environment variables (optionally seeded by a
// .env file) and are unmarshalled into per-package Config structs. Default
// values are declared as struct tags on those structs and registered with
// Viper via reflection.
package config
