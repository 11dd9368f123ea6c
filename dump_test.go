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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/byteripper/byteripper/internal/objtest"
	"github.com/go-kit/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCode() []byte {
	raw := make([]byte, 0x80)
	objtest.FillPattern(raw)
	return raw
}

func TestDumpWithoutBytes(t *testing.T) {
	var syms ExtractedSymbols

	_, err := syms.Dump(t.TempDir())
	assert.ErrorIs(t, err, ErrInternal, "Dumping without code should be an internal error.")
}

func TestDumpOutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		sym  Symbol
	}{
		{"past_end", Symbol{Name: "bad", Offset: 0x70, Size: 0x11, HasSize: true}},
		{"offset_past_end", Symbol{Name: "bad", Offset: 0x100, Size: 1, HasSize: true}},
		{"overflow", Symbol{Name: "bad", Offset: math.MaxUint64 - 1, Size: 4, HasSize: true}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			syms := NewExtractedSymbols(testCode(), []Symbol{
				{Name: "good", Offset: 0, Size: 0x10, HasSize: true},
				test.sym,
			})

			_, err := syms.Dump("out", WithFs(fs))
			assert.ErrorIs(t, err, ErrInternal)

			exists, err := afero.Exists(fs, "out")
			require.NoError(t, err)
			assert.False(t, exists, "Nothing should be written when a range is invalid.")
		})
	}
}

func TestDumpExactFit(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := testCode()
	syms := NewExtractedSymbols(raw, []Symbol{{Name: "tail", Offset: 0x70, Size: 0x10, HasSize: true}})

	_, err := syms.Dump("out", WithFs(fs))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "out/tail.bin")
	require.NoError(t, err)
	assert.Equal(t, raw[0x70:], data)
}

func TestDumpFileLengths(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	fs := afero.NewMemMapFs()
	input := []Symbol{
		{Name: "a", Offset: 0x00, Size: 0x10, HasSize: true},
		{Name: "b", Offset: 0x10, Size: 0x33, HasSize: true},
		{Name: "c", Offset: 0x43, Size: 0, HasSize: true},
		{Name: "d", Offset: 0x50},
	}
	syms := NewExtractedSymbols(testCode(), input)

	report, err := syms.Dump("nested/out/dir", WithFs(fs))
	require.NoError(err)
	assert.Equal(DumpReport{Written: 3, Skipped: 1, Bytes: 0x43}, report)

	for _, s := range input {
		fi, err := fs.Stat(filepath.Join("nested/out/dir", s.Name+".bin"))
		if !s.HasSize {
			assert.ErrorIs(err, os.ErrNotExist)
			continue
		}
		require.NoError(err)
		assert.Equal(int64(s.Size), fi.Size(), "File length should match the symbol size for "+s.Name)
	}
}

func TestDumpOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "out/foo.bin", bytes.Repeat([]byte{0xcc}, 0x100), 0o644))
	raw := testCode()
	syms := NewExtractedSymbols(raw, []Symbol{{Name: "foo", Offset: 0x8, Size: 0x8, HasSize: true}})

	_, err := syms.Dump("out", WithFs(fs))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "out/foo.bin")
	require.NoError(t, err)
	assert.Equal(t, raw[0x8:0x10], data, "Existing files should be replaced.")
}

func TestDumpIdempotent(t *testing.T) {
	require := require.New(t)
	raw := objtest.BuildELF64(t, 0x200, []objtest.ELFSym{
		{Name: "foo", Info: 0x12, Value: 0x100, Size: 0x10},
		{Name: "bar", Info: 0x22, Value: 0x110, Size: 0x40},
	})
	input := filepath.Join(t.TempDir(), "libtest.so")
	require.NoError(os.WriteFile(input, raw, 0o644))

	dirs := []string{t.TempDir(), t.TempDir()}
	for _, dir := range dirs {
		syms, err := Extract(input)
		require.NoError(err)
		_, err = syms.Dump(dir)
		require.NoError(err)
	}

	for _, name := range []string{"foo.bin", "bar.bin"} {
		first, err := os.ReadFile(filepath.Join(dirs[0], name))
		require.NoError(err)
		second, err := os.ReadFile(filepath.Join(dirs[1], name))
		require.NoError(err)
		assert.Equal(t, first, second, "Runs should produce identical output for "+name)
	}
}

func TestDumpRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", ".", "..", "../escape", "a/b", `a\b`, "nul\x00"} {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			syms := NewExtractedSymbols(testCode(), []Symbol{{Name: name, Offset: 0, Size: 4, HasSize: true}})

			_, err := syms.Dump("out", WithFs(fs))
			assert.ErrorIs(t, err, ErrInternal)
		})
	}
}

func TestDumpLogsDemangledNames(t *testing.T) {
	buf := &bytes.Buffer{}
	syms := NewExtractedSymbols(testCode(), []Symbol{
		{Name: "_ZN3foo3barEv", Offset: 0, Size: 4, HasSize: true},
		{Name: "plain", Offset: 4, Size: 4, HasSize: true},
	})

	_, err := syms.Dump("out", WithFs(afero.NewMemMapFs()), WithLogger(log.NewLogfmtLogger(buf)))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "name=_ZN3foo3barEv")
	assert.Contains(t, out, "demangled=")
	assert.Contains(t, out, "name=plain")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("demangled=")), "Only mangled names should be demangled.")
}
