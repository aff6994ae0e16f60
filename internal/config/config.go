// Package config resolves pulsar settings across their four layers:
// command line, per-branch git config, named profile, and tool defaults.
package config

import "github.com/spf13/viper"

// Tool holds tool-level configuration for a pulsar invocation.
// Values are populated from .pulsar.yaml, PULSAR_* env vars, and CLI flags.
type Tool struct {
	GitPath       string `mapstructure:"git_path"`
	Profile       string `mapstructure:"profile"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	Inspect       bool   `mapstructure:"inspect"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads tool configuration from viper, applying built-in defaults for
// any values not set by config file, environment, or flags.
func Load() Tool {
	viper.SetDefault("git_path", "git")
	viper.SetDefault("profile", "")
	viper.SetDefault("subject_prefix", "PATCH")
	viper.SetDefault("inspect", true)
	viper.SetDefault("verbose", false)

	var t Tool
	_ = viper.Unmarshal(&t)
	return t
}
