// Package config loads DocQL settings from defaults, an optional config
// file and DOCQL_* environment variables using viper.
package config
