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

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file, environment variables and bound
	// flags. Priority: defaults → config file → environment → flags.
	Load() (*Config, error)
}

type loader struct {
	v           *viper.Viper
	configFile  string
	searchPaths []string
}

// NewLoader creates a loader on top of v, which may already have flags
// bound to it. If configFile is set it must exist; otherwise a
// .byteripper.yaml file is looked for in searchPaths.
func NewLoader(v *viper.Viper, configFile string, searchPaths ...string) Loader {
	if v == nil {
		v = viper.New()
	}
	return &loader{v: v, configFile: configFile, searchPaths: searchPaths}
}

func (l *loader) Load() (*Config, error) {
	v := l.v

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(".byteripper")
		v.SetConfigType("yaml")
		for _, p := range l.searchPaths {
			v.AddConfigPath(p)
		}
	}

	// Environment variables, e.g. BYTERIPPER_INPUT_MAX_SIZE
	v.SetEnvPrefix("BYTERIPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("input.max_size")
	v.BindEnv("log.format")
	v.BindEnv("log.level")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// No config file is fine when none was asked for.
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("input.max_size", defaults.Input.MaxSize)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.level", defaults.Log.Level)
}
