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

// Package byteripper extracts the code of the exported functions of a shared
// library. ELF and single architecture Mach-O files are supported.
package byteripper

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"
)

var (
	elfMagic       = []byte{0x7f, 0x45, 0x4c, 0x46}
	maxMagicBufLen = 4
	machoMagic1    = []byte{0xfe, 0xed, 0xfa, 0xce}
	machoMagic2    = []byte{0xfe, 0xed, 0xfa, 0xcf}
	machoMagic3    = []byte{0xce, 0xfa, 0xed, 0xfe}
	machoMagic4    = []byte{0xcf, 0xfa, 0xed, 0xfe}
	fatMagic1      = []byte{0xca, 0xfe, 0xba, 0xbe}
	fatMagic2      = []byte{0xbe, 0xba, 0xfe, 0xca}
)

const (
	FormatELF   = "elf"
	FormatMachO = "macho"
)

// objectView is a decoded object file. It is implemented by elfView and
// machoView only.
type objectView interface {
	format() string
	exportedSymbols() ([]Symbol, error)
}

var (
	_ objectView = (*elfView)(nil)
	_ objectView = (*machoView)(nil)
)

// Extract reads the whole file at filePath and locates its exported
// functions.
func Extract(filePath string, opts ...Option) (*ExtractedSymbols, error) {
	o := newOptions(opts)
	raw, err := afero.ReadFile(o.fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return extract(raw, o)
}

// ExtractBytes locates the exported functions of the object file held in raw.
// The returned ExtractedSymbols keeps a reference to raw.
func ExtractBytes(raw []byte, opts ...Option) (*ExtractedSymbols, error) {
	return extract(raw, newOptions(opts))
}

func extract(raw []byte, o *options) (*ExtractedSymbols, error) {
	view, err := openObject(raw)
	if err != nil {
		return nil, err
	}
	syms, err := view.exportedSymbols()
	if err != nil {
		return nil, err
	}
	level.Debug(o.logger).Log("msg", "located exported symbols", "format", view.format(),
		"symbols", len(syms), "file_size", humanize.IBytes(uint64(len(raw))))
	return NewExtractedSymbols(raw, syms), nil
}

// Format returns the container format of raw: FormatELF, FormatMachO,
// or an error wrapping ErrUnsupported.
func Format(raw []byte) (string, error) {
	switch {
	case len(raw) < maxMagicBufLen:
		return "", fmt.Errorf("%w: file is too short", ErrUnsupported)
	case fileMagicMatch(raw, elfMagic):
		return FormatELF, nil
	case fileMagicMatch(raw, machoMagic1) || fileMagicMatch(raw, machoMagic2) || fileMagicMatch(raw, machoMagic3) || fileMagicMatch(raw, machoMagic4):
		return FormatMachO, nil
	case fileMagicMatch(raw, fatMagic1) || fileMagicMatch(raw, fatMagic2):
		return "", fmt.Errorf("%w: fat Mach-O archive", ErrUnsupported)
	}
	return "", ErrUnsupported
}

func openObject(raw []byte) (objectView, error) {
	format, err := Format(raw)
	if err != nil {
		return nil, err
	}
	if format == FormatELF {
		e, err := openELF(raw)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	m, err := openMachO(raw)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func fileMagicMatch(buf, magic []byte) bool {
	return bytes.HasPrefix(buf, magic)
}
