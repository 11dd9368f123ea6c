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
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/blacktop/go-macho"
)

const (
	machoTextSegment = "__TEXT"
	machoTextSection = "__text"
	// The text section is the first section of the file by convention.
	machoTextSectionIndex = 1
	// N_SECT | N_EXT: external symbol defined in a section.
	machoExternalDefined = 0x0f
	machoSymbolPrefix    = "_"

	machoNlist32Size = 12
	machoNlist64Size = 16
)

type machoSection struct {
	seg    string
	name   string
	offset uint64
	size   uint64
}

type machoSymbol struct {
	name  string
	typ   uint8
	sect  uint8
	value uint64
}

type machoView struct {
	sections  []machoSection
	symbols   []machoSymbol
	hasSymtab bool
}

// textRegion is the file range of the __TEXT,__text section.
type textRegion struct {
	offset uint64
	size   uint64
}

func (t textRegion) end() uint64 {
	return t.offset + t.size
}

func (t textRegion) contains(off uint64) bool {
	return off >= t.offset && off < t.end()
}

func openMachO(raw []byte) (view *machoView, err error) {
	defer func() {
		if r := recover(); r != nil {
			view = nil
			err = fmt.Errorf("%w: error when processing Mach-O file, probably corrupt: %v", ErrParse, r)
		}
	}()

	f, err := macho.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: error when parsing the Mach-O file: %w", ErrParse, err)
	}
	defer f.Close()

	view = new(machoView)
	for _, s := range f.Sections {
		view.sections = append(view.sections, machoSection{
			seg:    s.Seg,
			name:   s.Name,
			offset: uint64(s.Offset),
			size:   s.Size,
		})
	}
	if f.Symtab != nil {
		// go-macho strips the prefix of dotted names, so the entries are
		// decoded from the file.
		st := f.Symtab
		is64 := fileMagicMatch(raw, machoMagic2) || fileMagicMatch(raw, machoMagic4)
		view.hasSymtab = true
		view.symbols, err = decodeMachOSymbols(raw, f.ByteOrder, is64, st.Symoff, st.Nsyms, st.Stroff, st.Strsize)
		if err != nil {
			return nil, err
		}
	}
	return view, nil
}

// decodeMachOSymbols decodes the nlist entries of the symbol table.
func decodeMachOSymbols(raw []byte, order binary.ByteOrder, is64 bool, symoff, nsyms, stroff, strsize uint32) ([]machoSymbol, error) {
	entSize := uint64(machoNlist32Size)
	if is64 {
		entSize = machoNlist64Size
	}
	symEnd, ok := rangeEnd(uint64(symoff), uint64(nsyms)*entSize)
	if !ok || symEnd > uint64(len(raw)) {
		return nil, fmt.Errorf("%w: symbol table outside the file", ErrParse)
	}
	strEnd, ok := rangeEnd(uint64(stroff), uint64(strsize))
	if !ok || strEnd > uint64(len(raw)) {
		return nil, fmt.Errorf("%w: string table outside the file", ErrParse)
	}
	strtab := raw[stroff:strEnd]

	syms := make([]machoSymbol, 0, nsyms)
	for i := uint64(0); i < uint64(nsyms); i++ {
		ent := raw[uint64(symoff)+i*entSize:]
		strx := order.Uint32(ent)
		if uint64(strx) >= uint64(len(strtab)) {
			return nil, fmt.Errorf("%w: symbol %d name offset %#x outside string table of %d bytes", ErrParse, i, strx, len(strtab))
		}
		name, ok := cstring(strtab[strx:])
		if !ok {
			return nil, fmt.Errorf("%w: unterminated name of symbol %d", ErrParse, i)
		}
		sym := machoSymbol{name: name, typ: ent[4], sect: ent[5]}
		if is64 {
			sym.value = order.Uint64(ent[8:])
		} else {
			sym.value = uint64(order.Uint32(ent[8:]))
		}
		syms = append(syms, sym)
	}
	return syms, nil
}

func (m *machoView) format() string {
	return FormatMachO
}

func (m *machoView) exportedSymbols() ([]Symbol, error) {
	if !m.hasSymtab {
		return nil, fmt.Errorf("%w: no symbol table", ErrParse)
	}
	return machoExportedSymbols(m.sections, m.symbols)
}

// findTextRegion returns the last __TEXT,__text section.
func findTextRegion(sections []machoSection) (textRegion, error) {
	var (
		text  textRegion
		found bool
	)
	for _, s := range sections {
		if s.seg != machoTextSegment || s.name != machoTextSection {
			continue
		}
		if _, ok := rangeEnd(s.offset, s.size); !ok {
			return textRegion{}, fmt.Errorf("%w: text section range overflows", ErrParse)
		}
		text, found = textRegion{offset: s.offset, size: s.size}, true
	}
	if found {
		return text, nil
	}
	return textRegion{}, fmt.Errorf("%w: no %s,%s section", ErrParse, machoTextSegment, machoTextSection)
}

// machoExportedSymbols returns the external functions defined in the text
// section. Mach-O symbols don't carry a size, so the size of a function is
// inferred from where the next one starts. The last function ends at the
// next symbol of any kind in the text section, or at the end of the section.
//
// Padding between functions is counted as part of the preceding function.
// Aliases share an offset, so all but the last of them get a zero size.
func machoExportedSymbols(sections []machoSection, symbols []machoSymbol) ([]Symbol, error) {
	text, err := findTextRegion(sections)
	if err != nil {
		return nil, err
	}

	ret := make([]Symbol, 0)
	for _, s := range symbols {
		if s.typ != machoExternalDefined || s.sect != machoTextSectionIndex {
			continue
		}
		if len(s.name) <= len(machoSymbolPrefix) || !strings.HasPrefix(s.name, machoSymbolPrefix) {
			continue
		}
		if !text.contains(s.value) {
			continue
		}
		ret = append(ret, Symbol{
			Name:   strings.TrimPrefix(s.name, machoSymbolPrefix),
			Offset: s.value,
		})
	}
	if len(ret) == 0 {
		return ret, nil
	}

	slices.SortStableFunc(ret, func(a, b Symbol) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	// A local symbol, like a static helper, may follow the last exported one.
	last := ret[len(ret)-1].Offset
	boundary := text.end()
	for _, s := range symbols {
		if s.sect != machoTextSectionIndex {
			continue
		}
		if s.value <= last || s.value >= boundary {
			continue
		}
		boundary = s.value
	}

	for i := 0; i < len(ret)-1; i++ {
		ret[i].Size = ret[i+1].Offset - ret[i].Offset
		ret[i].HasSize = true
	}
	ret[len(ret)-1].Size = boundary - last
	ret[len(ret)-1].HasSize = true
	return ret, nil
}
