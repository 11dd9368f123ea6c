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
	"testing"

	"github.com/byteripper/byteripper/internal/objtest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestELFExportedSymbolsFilter(t *testing.T) {
	strtab := []byte("\x00sym\x00")
	tests := []struct {
		name     string
		info     uint8
		expected bool
	}{
		{"global_func", 0x12, true},
		{"weak_func", 0x22, true},
		{"local_func", 0x02, false},
		{"global_object", 0x11, false},
		{"global_notype", 0x10, false},
		{"global_ifunc", 0x1a, false},
		{"weak_object", 0x21, false},
		{"null", 0x00, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			syms, err := elfExportedSymbols([]elfDynSym{{name: 1, info: test.info, value: 0x40, size: 8}}, strtab)
			require.NoError(t, err)
			if test.expected {
				assert.Equal(t, []Symbol{{Name: "sym", Offset: 0x40, Size: 8, HasSize: true}}, syms)
			} else {
				assert.Empty(t, syms)
			}
		})
	}
}

func TestELFExportedSymbolsValues(t *testing.T) {
	assert := assert.New(t)
	strtab := []byte("\x00foo\x00bar\x00baz\x00")
	syms := []elfDynSym{
		{},
		{name: 1, info: 0x12, value: 0x1130, size: 0x2a},
		{name: 5, info: 0x11, value: 0x4000, size: 4},
		{name: 9, info: 0x22, value: 0x1160, size: 0},
	}

	actual, err := elfExportedSymbols(syms, strtab)
	assert.NoError(err)
	assert.Equal([]Symbol{
		{Name: "foo", Offset: 0x1130, Size: 0x2a, HasSize: true},
		{Name: "baz", Offset: 0x1160},
	}, actual, "Sizes and offsets should be taken from the entries.")
}

func TestELFExportedSymbolsBadName(t *testing.T) {
	t.Run("offset past the table", func(t *testing.T) {
		_, err := elfExportedSymbols([]elfDynSym{{name: 42, info: 0x12}}, []byte("\x00foo\x00"))
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("unterminated", func(t *testing.T) {
		_, err := elfExportedSymbols([]elfDynSym{{name: 1, info: 0x12}}, []byte("\x00foo"))
		assert.ErrorIs(t, err, ErrParse)
	})

	t.Run("not exported is not resolved", func(t *testing.T) {
		syms, err := elfExportedSymbols([]elfDynSym{{name: 42, info: 0x11}}, []byte("\x00"))
		assert.NoError(t, err)
		assert.Empty(t, syms)
	})
}

func TestDecodeELFSymbols32(t *testing.T) {
	assert := assert.New(t)
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, elf.Sym32{})
	binary.Write(buf, binary.BigEndian, elf.Sym32{Name: 3, Info: 0x12, Value: 0x8000, Size: 0x20})

	syms, err := decodeELFSymbols(buf.Bytes(), elf.ELFCLASS32, binary.BigEndian)
	assert.NoError(err)
	assert.Equal([]elfDynSym{{}, {name: 3, info: 0x12, value: 0x8000, size: 0x20}}, syms)
}

func TestDecodeELFSymbolsErrors(t *testing.T) {
	_, err := decodeELFSymbols(make([]byte, elf.Sym64Size+1), elf.ELFCLASS64, binary.LittleEndian)
	assert.ErrorIs(t, err, ErrParse, "A truncated table should fail.")

	_, err = decodeELFSymbols(nil, elf.ELFCLASSNONE, binary.LittleEndian)
	assert.ErrorIs(t, err, ErrParse, "An unknown class should fail.")
}

func TestExtractELF(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	raw := objtest.BuildELF64(t, 0x200, []objtest.ELFSym{
		{Name: "foo", Info: 0x12, Value: 0x100, Size: 16},
		{Name: "data", Info: 0x11, Value: 0x180, Size: 8},
		{Name: "nosize", Info: 0x22, Value: 0x190},
	})

	syms, err := ExtractBytes(raw)
	require.NoError(err)
	assert.Equal([]Symbol{
		{Name: "foo", Offset: 0x100, Size: 16, HasSize: true},
		{Name: "nosize", Offset: 0x190},
	}, syms.Symbols())

	fs := afero.NewMemMapFs()
	report, err := syms.Dump("out", WithFs(fs))
	require.NoError(err)
	assert.Equal(DumpReport{Written: 1, Skipped: 1, Bytes: 16}, report)

	data, err := afero.ReadFile(fs, "out/foo.bin")
	require.NoError(err)
	assert.Equal(raw[0x100:0x110], data, "Dumped code should match the input bytes.")

	exists, err := afero.Exists(fs, "out/nosize.bin")
	require.NoError(err)
	assert.False(exists, "Symbols without a size should be skipped.")
}

func TestExtractELFBadNameOffset(t *testing.T) {
	raw := objtest.BuildELF64(t, 0x100, []objtest.ELFSym{{Name: "foo", Info: 0x12, Value: 0x80, Size: 4}})
	// Point the first real dynsym entry at a name past the end of .dynstr.
	dynsymOff := objtest.Align8(0x100)
	binary.LittleEndian.PutUint32(raw[dynsymOff+elf.Sym64Size:], 0xffff)

	_, err := ExtractBytes(raw)
	assert.ErrorIs(t, err, ErrParse)
}

func TestExtractELFWithoutDynsym(t *testing.T) {
	raw := objtest.BuildELF64(t, 0x100, nil)
	// Turn .dynsym into a PROGBITS section.
	shoff := binary.LittleEndian.Uint64(raw[0x28:])
	binary.LittleEndian.PutUint32(raw[shoff+64+4:], uint32(elf.SHT_PROGBITS))

	syms, err := ExtractBytes(raw)
	require.NoError(t, err)
	assert.Zero(t, syms.Len(), "A file without dynamic symbols exports nothing.")
}

func TestExtractELFBadDynstrLink(t *testing.T) {
	for _, link := range []uint32{0, 99} {
		t.Run(fmt.Sprint(link), func(t *testing.T) {
			raw := objtest.BuildELF64(t, 0x100, []objtest.ELFSym{{Name: "foo", Info: 0x12, Value: 0x80, Size: 4}})
			// sh_link of the .dynsym section header.
			shoff := binary.LittleEndian.Uint64(raw[0x28:])
			binary.LittleEndian.PutUint32(raw[shoff+64+40:], link)

			_, err := ExtractBytes(raw)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}
