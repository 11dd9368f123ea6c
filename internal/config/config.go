// This file is part of byteripper.
//
// Copyright (C) 2019-2024 byteripper Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package config loads the byteripper command line configuration.
package config

import "github.com/dustin/go-humanize"

// Config is the complete byteripper configuration. It can be loaded from a
// YAML file with environment variable and flag overrides.
type Config struct {
	Input InputConfig `yaml:"input" mapstructure:"input"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// InputConfig limits the files that are accepted.
type InputConfig struct {
	// MaxSize is the largest input file read into memory, e.g. "1GiB".
	MaxSize string `yaml:"max_size" mapstructure:"max_size"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // "logfmt" or "json"
	Level  string `yaml:"level" mapstructure:"level"`   // "debug", "info", "warn" or "error"
}

// Default returns a configuration with the default values.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			MaxSize: "1GiB",
		},
		Log: LogConfig{
			Format: "logfmt",
			Level:  "info",
		},
	}
}

// MaxInputBytes returns the input size limit in bytes. The configuration
// must have been validated.
func (c *Config) MaxInputBytes() uint64 {
	n, _ := humanize.ParseBytes(c.Input.MaxSize)
	return n
}
