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

import "errors"

var (
	// ErrIO is returned when the input file can't be read or an output file
	// can't be written. The underlying error is wrapped with it.
	ErrIO = errors.New("i/o error")
	// ErrParse is returned if the object file is malformed or lacks a structure
	// the extraction needs, like the text section or the symbol table.
	ErrParse = errors.New("parse error")
	// ErrUnsupported is returned for files that are not a single architecture
	// ELF or Mach-O file. Fat Mach-O archives fall in this category.
	ErrUnsupported = errors.New("unsupported file")
	// ErrInternal is returned when an invariant is violated, for example a
	// symbol range that doesn't fit in the file.
	ErrInternal = errors.New("internal error")
	// ErrUsage is returned by the command line layer on incorrect usage.
	ErrUsage = errors.New("incorrect usage")
)
