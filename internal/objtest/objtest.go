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

// Package objtest builds minimal ELF and Mach-O images for tests.
package objtest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// ELFSym is a dynamic symbol of an image built by BuildELF64.
type ELFSym struct {
	Name  string
	Info  uint8
	Value uint64
	Size  uint64
}

// FillPattern fills b with a byte pattern derived from the offset, so that
// slices at different offsets differ.
func FillPattern(b []byte) {
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
}

// Align8 rounds n up to a multiple of 8.
func Align8(n int) int {
	return (n + 7) &^ 7
}

// BuildELF64 returns a little endian ELF64 shared object of at least
// codeSize bytes with the given dynamic symbols. Bytes before codeSize,
// except the file header, hold a pattern.
func BuildELF64(t *testing.T, codeSize int, syms []ELFSym) []byte {
	t.Helper()
	const ehsize = 64
	require.GreaterOrEqual(t, codeSize, ehsize)

	var dynstr bytes.Buffer
	dynstr.WriteByte(0)
	nameOffs := make([]uint32, len(syms))
	for i, s := range syms {
		nameOffs[i] = uint32(dynstr.Len())
		dynstr.WriteString(s.Name)
		dynstr.WriteByte(0)
	}

	var dynsym bytes.Buffer
	require.NoError(t, binary.Write(&dynsym, binary.LittleEndian, elf.Sym64{}))
	for i, s := range syms {
		require.NoError(t, binary.Write(&dynsym, binary.LittleEndian, elf.Sym64{
			Name:  nameOffs[i],
			Info:  s.Info,
			Shndx: 1,
			Value: s.Value,
			Size:  s.Size,
		}))
	}

	shstrtab := []byte("\x00.dynsym\x00.dynstr\x00.shstrtab\x00")

	dynsymOff := Align8(codeSize)
	dynstrOff := dynsymOff + dynsym.Len()
	shstrtabOff := dynstrOff + dynstr.Len()
	shoff := Align8(shstrtabOff + len(shstrtab))
	total := shoff + 4*64

	raw := make([]byte, total)
	FillPattern(raw[:codeSize])
	copy(raw[dynsymOff:], dynsym.Bytes())
	copy(raw[dynstrOff:], dynstr.Bytes())
	copy(raw[shstrtabOff:], shstrtab)

	hdr := elf.Header64{
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint64(shoff),
		Ehsize:    ehsize,
		Phentsize: 56,
		Shentsize: 64,
		Shnum:     4,
		Shstrndx:  3,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, hdr))
	copy(raw, buf.Bytes())

	sections := []elf.Section64{
		{},
		{
			Name: 1, Type: uint32(elf.SHT_DYNSYM), Flags: uint64(elf.SHF_ALLOC),
			Off: uint64(dynsymOff), Size: uint64(dynsym.Len()),
			Link: 2, Info: 1, Addralign: 8, Entsize: elf.Sym64Size,
		},
		{
			Name: 9, Type: uint32(elf.SHT_STRTAB), Flags: uint64(elf.SHF_ALLOC),
			Off: uint64(dynstrOff), Size: uint64(dynstr.Len()), Addralign: 1,
		},
		{
			Name: 17, Type: uint32(elf.SHT_STRTAB),
			Off: uint64(shstrtabOff), Size: uint64(len(shstrtab)), Addralign: 1,
		},
	}
	buf.Reset()
	for _, s := range sections {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, s))
	}
	copy(raw[shoff:], buf.Bytes())
	return raw
}

// MachOSym is an nlist entry of an image built by BuildMachO64.
type MachOSym struct {
	Name  string
	Type  uint8
	Sect  uint8
	Value uint64
}

func name16(s string) [16]byte {
	var b [16]byte
	copy(b[:], s)
	return b
}

// BuildMachO64 returns a little endian 64-bit Mach-O dylib with one
// __TEXT,__text section at [textOff, textOff+textSize) and the given
// symbols. The text section holds a pattern.
func BuildMachO64(t *testing.T, textOff, textSize uint64, syms []MachOSym) []byte {
	t.Helper()
	const (
		headerSize  = 32
		segmentSize = 72
		sectionSize = 80
		symtabSize  = 24
		nlistSize   = 16
		lcSegment64 = 0x19
		lcSymtab    = 0x2
	)
	cmdsSize := segmentSize + sectionSize + symtabSize
	require.GreaterOrEqual(t, textOff, uint64(headerSize+cmdsSize))

	var strtab bytes.Buffer
	strtab.WriteByte(0)
	nameOffs := make([]uint32, len(syms))
	for i, s := range syms {
		nameOffs[i] = uint32(strtab.Len())
		strtab.WriteString(s.Name)
		strtab.WriteByte(0)
	}

	textEnd := int(textOff + textSize)
	symOff := Align8(textEnd)
	strOff := symOff + len(syms)*nlistSize
	total := strOff + strtab.Len()

	var buf bytes.Buffer
	w := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	// mach_header_64
	w([]uint32{0xfeedfacf, 0x01000007, 3, 6, 2, uint32(cmdsSize), 0, 0})
	// segment_command_64
	w([]uint32{lcSegment64, segmentSize + sectionSize})
	w(name16("__TEXT"))
	w([]uint64{0, uint64(textEnd), 0, uint64(textEnd)})
	w([]uint32{5, 5, 1, 0})
	// section_64
	w(name16("__text"))
	w(name16("__TEXT"))
	w([]uint64{textOff, textSize})
	w([]uint32{uint32(textOff), 4, 0, 0, 0x80000400, 0, 0, 0})
	// symtab_command
	w([]uint32{lcSymtab, symtabSize, uint32(symOff), uint32(len(syms)), uint32(strOff), uint32(strtab.Len())})
	cmds := buf.Bytes()

	raw := make([]byte, total)
	FillPattern(raw[textOff:textEnd])
	copy(raw, cmds)

	buf.Reset()
	for i, s := range syms {
		w(nameOffs[i])
		w([]uint8{s.Type, s.Sect})
		w(uint16(0))
		w(s.Value)
	}
	copy(raw[symOff:], buf.Bytes())
	copy(raw[strOff:], strtab.Bytes())
	return raw
}
