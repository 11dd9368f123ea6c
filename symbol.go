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
	"slices"
)

// Symbol is an exported function and the location of its code in the file.
type Symbol struct {
	// Name is the public name of the function, without any platform prefix.
	Name string `json:"name"`
	// Offset is the file offset of the first byte of the function.
	Offset uint64 `json:"offset"`
	// Size is the length of the function in bytes. Only valid if HasSize is set.
	Size uint64 `json:"size"`
	// HasSize is false when the object file doesn't record a size for the
	// symbol. Such symbols are skipped when dumping.
	HasSize bool `json:"hasSize"`
}

// String returns a string summary of the symbol.
func (s Symbol) String() string {
	if !s.HasSize {
		return fmt.Sprintf("%s (offset %#x, unknown size)", s.Name, s.Offset)
	}
	return fmt.Sprintf("%s (offset %#x, %d bytes)", s.Name, s.Offset, s.Size)
}

// End returns the offset right after the last byte of the symbol. The
// second return value is false if the symbol has no size or the end
// overflows.
func (s Symbol) End() (uint64, bool) {
	if !s.HasSize {
		return 0, false
	}
	return rangeEnd(s.Offset, s.Size)
}

// ExtractedSymbols holds the raw bytes of an object file together with the
// exported functions found in it.
type ExtractedSymbols struct {
	raw     []byte
	symbols []Symbol
}

// NewExtractedSymbols returns a new ExtractedSymbols for the raw file bytes
// and the symbols located in them.
func NewExtractedSymbols(raw []byte, symbols []Symbol) *ExtractedSymbols {
	return &ExtractedSymbols{raw: raw, symbols: symbols}
}

// Symbols returns a copy of the extracted symbols, in the order they were
// found.
func (e *ExtractedSymbols) Symbols() []Symbol {
	return slices.Clone(e.symbols)
}

// Len returns the number of extracted symbols.
func (e *ExtractedSymbols) Len() int {
	return len(e.symbols)
}

// Bytes returns the code of the symbol. An error wrapping ErrInternal is
// returned if the symbol range is outside the file.
func (e *ExtractedSymbols) Bytes(s Symbol) ([]byte, error) {
	if e.raw == nil {
		return nil, fmt.Errorf("%w: library code not set", ErrInternal)
	}
	if !s.HasSize {
		return nil, fmt.Errorf("%w: symbol %q has no size", ErrInternal, s.Name)
	}
	end, ok := s.End()
	if !ok || end > uint64(len(e.raw)) {
		return nil, fmt.Errorf("%w: symbol %q range [%#x, %#x+%#x) out of bounds, file is %d bytes",
			ErrInternal, s.Name, s.Offset, s.Offset, s.Size, len(e.raw))
	}
	return e.raw[s.Offset:end], nil
}

// Validate checks that every symbol with a known size lies within the file.
func (e *ExtractedSymbols) Validate() error {
	if e.raw == nil {
		return fmt.Errorf("%w: library code not set", ErrInternal)
	}
	for _, s := range e.symbols {
		if !s.HasSize {
			continue
		}
		if _, err := e.Bytes(s); err != nil {
			return err
		}
	}
	return nil
}
