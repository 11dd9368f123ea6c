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

package byteripper

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/afero"
)

const (
	dumpFileExt  = ".bin"
	dumpDirMode  = 0o755
	dumpFileMode = 0o644
)

// DumpReport summarizes a Dump call.
type DumpReport struct {
	// Written is the number of files written.
	Written int
	// Skipped is the number of symbols without a known size.
	Skipped int
	// Bytes is the total number of code bytes written.
	Bytes uint64
}

// Dump writes the code of every symbol with a known size to
// dir/<name>.bin, overwriting existing files. The directory is created if
// needed. All ranges are checked before anything is written; if one is
// outside the file, an error wrapping ErrInternal is returned.
func (e *ExtractedSymbols) Dump(dir string, opts ...Option) (DumpReport, error) {
	o := newOptions(opts)
	var report DumpReport

	if err := e.Validate(); err != nil {
		return report, err
	}
	for _, s := range e.symbols {
		if !s.HasSize {
			continue
		}
		if err := checkFileName(s.Name); err != nil {
			return report, err
		}
	}

	if err := o.fs.MkdirAll(dir, dumpDirMode); err != nil {
		return report, fmt.Errorf("%w: error when creating the output directory: %w", ErrIO, err)
	}

	for _, s := range e.symbols {
		if !s.HasSize {
			report.Skipped++
			continue
		}
		code, err := e.Bytes(s)
		if err != nil {
			return report, err
		}
		path := filepath.Join(dir, s.Name+dumpFileExt)
		if err := afero.WriteFile(o.fs, path, code, dumpFileMode); err != nil {
			return report, fmt.Errorf("%w: error when writing %s: %w", ErrIO, path, err)
		}
		report.Written++
		report.Bytes += s.Size

		kv := []interface{}{"msg", "wrote symbol", "name", s.Name, "offset", fmt.Sprintf("%#x", s.Offset), "size", s.Size}
		if d := demangle.Filter(s.Name); d != s.Name {
			kv = append(kv, "demangled", d)
		}
		level.Info(o.logger).Log(kv...)
	}

	level.Debug(o.logger).Log("msg", "dump done", "dir", dir, "written", report.Written,
		"skipped", report.Skipped, "bytes", humanize.IBytes(report.Bytes))
	return report, nil
}

// checkFileName rejects names that can't be used as a file name inside the
// output directory.
func checkFileName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: symbol name %q can't be used as a file name", ErrInternal, name)
	}
	return nil
}
