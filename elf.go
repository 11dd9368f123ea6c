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
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Exported functions have one of these info bytes.
var (
	elfGlobalFunc = elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC) // 0x12
	elfWeakFunc   = elf.ST_INFO(elf.STB_WEAK, elf.STT_FUNC)   // 0x22
)

// elfDynSym is a raw .dynsym entry. The name is still an offset into .dynstr.
type elfDynSym struct {
	name  uint32
	info  uint8
	value uint64
	size  uint64
}

type elfView struct {
	dynsyms []elfDynSym
	dynstr  []byte
}

func openELF(raw []byte) (view *elfView, err error) {
	// debug/elf can panic on some corrupted files. Report it as a parse
	// error instead of crashing.
	defer func() {
		if r := recover(); r != nil {
			view = nil
			err = fmt.Errorf("%w: error when processing ELF file, probably corrupt: %v", ErrParse, r)
		}
	}()

	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: error when parsing the ELF file: %w", ErrParse, err)
	}
	defer f.Close()

	view = new(elfView)
	var dynsym *elf.Section
	for _, s := range f.Sections {
		if s.Type == elf.SHT_DYNSYM {
			dynsym = s
			break
		}
	}
	if dynsym == nil {
		// No dynamic symbols, nothing is exported.
		return view, nil
	}

	data, err := dynsym.Data()
	if err != nil {
		return nil, fmt.Errorf("%w: error when reading the dynamic symbol table: %w", ErrParse, err)
	}
	if dynsym.Link == 0 || int(dynsym.Link) >= len(f.Sections) {
		return nil, fmt.Errorf("%w: dynamic symbol table links to invalid section %d", ErrParse, dynsym.Link)
	}
	view.dynstr, err = f.Sections[dynsym.Link].Data()
	if err != nil {
		return nil, fmt.Errorf("%w: error when reading the dynamic string table: %w", ErrParse, err)
	}
	view.dynsyms, err = decodeELFSymbols(data, f.Class, f.ByteOrder)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (e *elfView) format() string {
	return FormatELF
}

func (e *elfView) exportedSymbols() ([]Symbol, error) {
	return elfExportedSymbols(e.dynsyms, e.dynstr)
}

// decodeELFSymbols decodes the entries of a symbol table section.
func decodeELFSymbols(data []byte, class elf.Class, order binary.ByteOrder) ([]elfDynSym, error) {
	var entSize int
	switch class {
	case elf.ELFCLASS64:
		entSize = elf.Sym64Size
	case elf.ELFCLASS32:
		entSize = elf.Sym32Size
	default:
		return nil, fmt.Errorf("%w: unknown ELF class %s", ErrParse, class)
	}
	if len(data)%entSize != 0 {
		return nil, fmt.Errorf("%w: dynamic symbol table size %d is not a multiple of %d", ErrParse, len(data), entSize)
	}

	r := bytes.NewReader(data)
	syms := make([]elfDynSym, len(data)/entSize)
	for i := range syms {
		if class == elf.ELFCLASS64 {
			var s elf.Sym64
			if err := binary.Read(r, order, &s); err != nil {
				return nil, fmt.Errorf("%w: error when reading symbol %d: %w", ErrParse, i, err)
			}
			syms[i] = elfDynSym{name: s.Name, info: s.Info, value: s.Value, size: s.Size}
			continue
		}
		var s elf.Sym32
		if err := binary.Read(r, order, &s); err != nil {
			return nil, fmt.Errorf("%w: error when reading symbol %d: %w", ErrParse, i, err)
		}
		syms[i] = elfDynSym{name: s.Name, info: s.Info, value: uint64(s.Value), size: uint64(s.Size)}
	}
	return syms, nil
}

// elfExportedSymbols returns the global and weak functions of the dynamic
// symbol table. Sizes are taken as recorded; a zero size is unknown.
func elfExportedSymbols(syms []elfDynSym, strtab []byte) ([]Symbol, error) {
	var ret []Symbol
	for _, s := range syms {
		if s.info != elfGlobalFunc && s.info != elfWeakFunc {
			continue
		}
		name, err := elfString(strtab, s.name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, Symbol{
			Name:    name,
			Offset:  s.value,
			Size:    s.size,
			HasSize: s.size > 0,
		})
	}
	return ret, nil
}

func elfString(strtab []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(strtab)) {
		return "", fmt.Errorf("%w: symbol name offset %#x outside string table of %d bytes", ErrParse, off, len(strtab))
	}
	s, ok := cstring(strtab[off:])
	if !ok {
		return "", fmt.Errorf("%w: unterminated symbol name at offset %#x", ErrParse, off)
	}
	return s, nil
}
