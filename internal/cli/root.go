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

// Package cli implements the byteripper command line.
package cli

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/byteripper/byteripper"
	"github.com/byteripper/byteripper/internal/config"
)

// app holds the state shared by all commands.
type app struct {
	fs      afero.Fs
	v       *viper.Viper
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger log.Logger
}

// NewRootCmd returns the byteripper command working on the OS filesystem.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, v: viper.New(), logger: log.NewNopLogger()}
	var input, outputDir string

	rootCmd := &cobra.Command{
		Use:   "byteripper -i <input> -o <output-dir>",
		Short: "Extract the code of exported functions from a shared library",
		Long: `byteripper reads an ELF or Mach-O shared library and writes the
machine code of every exported function to <output-dir>/<name>.bin.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("%w: input file required", byteripper.ErrUsage)
			}
			if outputDir == "" {
				return fmt.Errorf("%w: output directory required", byteripper.ErrUsage)
			}
			return a.dump(input, outputDir)
		},
	}

	rootCmd.Flags().StringVarP(&input, "input", "i", "", "shared library to read")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory the .bin files are written to")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.byteripper.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	pf.String("log-format", "logfmt", "log format, logfmt or json")
	pf.String("max-input-size", "1GiB", "largest input file accepted")
	a.v.BindPFlag("log.format", pf.Lookup("log-format"))
	a.v.BindPFlag("input.max_size", pf.Lookup("max-input-size"))

	rootCmd.AddCommand(newListCmd(a), newVersionCmd())
	return rootCmd
}

// Execute runs the byteripper command and exits with a non-zero status on
// failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and creates the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	searchPaths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append([]string{home}, searchPaths...)
	}

	cfg, err := config.NewLoader(a.v, a.cfgFile, searchPaths...).Load()
	if err != nil {
		return fmt.Errorf("%w: %w", byteripper.ErrUsage, err)
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	if used := a.v.ConfigFileUsed(); used != "" {
		level.Debug(a.logger).Log("msg", "using config file", "path", used)
	}
	return nil
}

func (a *app) extract(input string) (*byteripper.ExtractedSymbols, error) {
	if err := a.checkInputSize(input); err != nil {
		return nil, err
	}
	return byteripper.Extract(input, byteripper.WithFs(a.fs), byteripper.WithLogger(a.logger))
}

func (a *app) dump(input, outputDir string) error {
	syms, err := a.extract(input)
	if err != nil {
		return err
	}
	report, err := syms.Dump(outputDir, byteripper.WithFs(a.fs), byteripper.WithLogger(a.logger))
	if err != nil {
		return err
	}
	level.Info(a.logger).Log("msg", "done", "input", input, "output_dir", outputDir,
		"written", report.Written, "skipped", report.Skipped)
	return nil
}

// checkInputSize refuses inputs larger than the configured limit before
// they are read into memory.
func (a *app) checkInputSize(input string) error {
	fi, err := a.fs.Stat(input)
	if err != nil {
		return fmt.Errorf("%w: %w", byteripper.ErrIO, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("%w: %s is a directory", byteripper.ErrUsage, input)
	}
	if limit := a.cfg.MaxInputBytes(); uint64(fi.Size()) > limit {
		return fmt.Errorf("%w: %s is larger than the %s limit", byteripper.ErrUsage, input, a.cfg.Input.MaxSize)
	}
	return nil
}
