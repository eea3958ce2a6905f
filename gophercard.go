// This file is part of Gophercard.
//
// Gophercard is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gophercard is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gophercard.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/environment"
	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/preferences"
	"github.com/jetsetilly/gophercard/prefs"
	"github.com/jetsetilly/gophercard/version"
	"golang.org/x/term"
)

// CLI is the command line interface. Each command is implemented by a type
// with a Run() method.
type CLI struct {
	Version kong.VersionFlag `help:"Show the version and exit."`

	Log       bool   `help:"Echo the log to stderr."`
	Prefs     string `help:"Override preferences for this run (\"key::value; key::value\")."`
	PrefsFile string `name:"prefsfile" type:"path" help:"Use an alternative preferences file."`

	Info    InfoCmd    `cmd:"" help:"Show the header and usage of a card image."`
	List    ListCmd    `cmd:"" help:"List the saves on a card image."`
	Check   CheckCmd   `cmd:"" help:"Check a card image for problems."`
	Format  FormatCmd  `cmd:"" help:"Create a new card image."`
	Import  ImportCmd  `cmd:"" help:"Import save files into a card image."`
	Export  ExportCmd  `cmd:"" help:"Export a save from a card image."`
	Remove  RemoveCmd  `cmd:"" help:"Remove a save from a card image."`
	Convert ConvertCmd `cmd:"" help:"Convert a save file between GCI, GCS and SAV formats."`
	Dump    DumpCmd    `cmd:"" help:"Output the block layout of a card image as a graphviz graph."`
	Folder  FolderCmd  `cmd:"" help:"Open a folder of GCI files as a virtual card."`
	Peek    PeekCmd    `cmd:"" help:"Read bytes from a card image or folder through the card bus."`
}

// globals are made available to every command.
type globals struct {
	out io.Writer
	env *environment.Environment
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name(version.ApplicationName),
		kong.Description("Memory card image and save file tool."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := run(ctx, cli, os.Stdout)
	if err != nil {
		fmt.Printf("* error in %s: %v\n", ctx.Command(), err)
		os.Exit(20)
	}
}

// run the selected command with the global options applied.
func run(ctx *kong.Context, cli *CLI, out io.Writer) error {
	echoLog(cli.Log)

	if cli.Prefs != "" {
		prefs.PushCommandLineStack(cli.Prefs)
		defer func() {
			if s := prefs.PopCommandLineStack(); s != "" {
				logger.Logf(logger.Allow, "gophercard", "unused preferences: %s", s)
			}
		}()
	}

	p, err := loadPreferences(cli.PrefsFile)
	if err != nil {
		return err
	}

	env, err := environment.NewEnvironment(environment.MainEmulation, p)
	if err != nil {
		return err
	}

	return ctx.Run(&globals{out: out, env: env})
}

// echoLog sets the log echo. the log is colorized when stderr is a terminal.
func echoLog(enabled bool) {
	if !enabled {
		logger.SetEcho(nil)
		return
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		logger.SetEcho(logger.NewColorizer(os.Stderr))
	} else {
		logger.SetEcho(os.Stderr)
	}
}

func loadPreferences(filename string) (*preferences.Preferences, error) {
	var p *preferences.Preferences
	var err error

	if filename == "" {
		p, err = preferences.NewPreferences()
	} else {
		p, err = preferences.NewPreferencesFile(filename)
	}
	if err != nil {
		return nil, err
	}

	// a missing preferences file is not an error. the defaults are used
	err = p.Load()
	if err != nil && !curated.Is(err, prefs.NoPrefsFile) {
		return nil, err
	}

	return p, nil
}
