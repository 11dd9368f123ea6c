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

	"github.com/dustin/go-humanize"
)

var (
	// ErrInvalidMaxSize indicates an unparsable or zero input size limit
	ErrInvalidMaxSize = errors.New("invalid input size limit")

	// ErrInvalidLogFormat indicates an unsupported log format
	ErrInvalidLogFormat = errors.New("invalid log format")

	// ErrInvalidLogLevel indicates an unsupported log level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	n, err := humanize.ParseBytes(cfg.Input.MaxSize)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %q: %w", ErrInvalidMaxSize, cfg.Input.MaxSize, err))
	} else if n == 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive", ErrInvalidMaxSize))
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "logfmt", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'logfmt' or 'json', got '%s'", ErrInvalidLogFormat, cfg.Log.Format))
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: must be one of debug, info, warn, error, got '%s'", ErrInvalidLogLevel, cfg.Log.Level))
	}

	return errors.Join(errs...)
}
