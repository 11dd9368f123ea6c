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

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/ianlancetaylor/demangle"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/byteripper/byteripper"
)

func newListCmd(a *app) *cobra.Command {
	var (
		input  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list -i <input>",
		Short: "List the exported functions without writing any files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("%w: input file required", byteripper.ErrUsage)
			}
			syms, err := a.extract(input)
			if err != nil {
				return err
			}
			if asJSON {
				return writeSymbolsJSON(cmd.OutOrStdout(), syms.Symbols())
			}
			writeSymbolsTable(cmd.OutOrStdout(), syms.Symbols())
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "shared library to read")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the symbols as JSON")
	return cmd
}

func writeSymbolsTable(out io.Writer, syms []byteripper.Symbol) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Name", "Offset", "Size", "Demangled"})
	table.SetAutoWrapText(false)
	for _, s := range syms {
		size := "-"
		if s.HasSize {
			size = fmt.Sprintf("%d", s.Size)
		}
		demangled := demangle.Filter(s.Name)
		if demangled == s.Name {
			demangled = ""
		}
		table.Append([]string{s.Name, fmt.Sprintf("%#x", s.Offset), size, demangled})
	}
	table.Render()

	sized := lo.Filter(syms, func(s byteripper.Symbol, _ int) bool { return s.HasSize })
	total := lo.SumBy(sized, func(s byteripper.Symbol) uint64 { return s.Size })
	fmt.Fprintf(out, "%d exported functions, %d with a known size, %s of code\n",
		len(syms), len(sized), humanize.IBytes(total))
}

func writeSymbolsJSON(out io.Writer, syms []byteripper.Symbol) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(syms)
}
