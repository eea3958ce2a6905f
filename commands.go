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
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/bradleyjkemp/memviz"
	"github.com/jetsetilly/gophercard/gcifolder"
	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/memcard/fixups"
	"github.com/jetsetilly/gophercard/memcard/savefile"
	"github.com/jetsetilly/gophercard/rawcard"
	"github.com/jetsetilly/gophercard/statsview"
)

// modification times in directory entries count from the start of 2000.
var saveEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type InfoCmd struct {
	Image string `arg:"" type:"existingfile" help:"Card image."`
}

func (cmd *InfoCmd) Run(g *globals) error {
	mc, issues, err := memcard.OpenFile(cmd.Image)
	if err != nil {
		return err
	}

	hdr := mc.Header()
	encoding := "Windows-1252"
	if hdr.IsShiftJIS() {
		encoding = "Shift-JIS"
	}

	fmt.Fprintf(g.out, "image:      %s\n", mc.Filename())
	fmt.Fprintf(g.out, "size:       %d Mbit (%d blocks)\n", mc.SizeMbits(), memcard.DataBlocks(mc.SizeMbits()))
	fmt.Fprintf(g.out, "encoding:   %s\n", encoding)
	fmt.Fprintf(g.out, "saves:      %d\n", mc.GetNumFiles())
	fmt.Fprintf(g.out, "free:       %d blocks\n", mc.GetFreeBlocks())

	d, b := mc.ActiveIndexes()
	fmt.Fprintf(g.out, "active:     directory %c, BAT %c\n", 'A'+d, 'A'+b)
	fmt.Fprintf(g.out, "issues:     %s\n", issues)

	return nil
}

type ListCmd struct {
	Image string `arg:"" type:"existingfile" help:"Card image."`
}

func (cmd *ListCmd) Run(g *globals) error {
	mc, _, err := memcard.OpenFile(cmd.Image)
	if err != nil {
		return err
	}

	for n := 0; n < mc.GetNumFiles(); n++ {
		idx, ok := mc.GetFileIndex(n)
		if !ok {
			break
		}

		e, err := mc.Entry(idx)
		if err != nil {
			return err
		}

		mod := saveEpoch.Add(time.Duration(e.ModificationTime) * time.Second)
		fmt.Fprintf(g.out, "%3d  %s%s  %-32s %4d  %s\n", n,
			e.GameCode[:], e.MakerCode[:], mc.DecodeText(e.FilenameBytes()),
			e.BlockCount, mod.Format(time.DateTime))

		// not every save has readable comments
		if c1, c2, err := mc.GetSaveComments(idx); err == nil {
			fmt.Fprintf(g.out, "     %s\n     %s\n", c1, c2)
		}
	}

	return nil
}

type CheckCmd struct {
	Image string `arg:"" type:"existingfile" help:"Card image."`
}

func (cmd *CheckCmd) Run(g *globals) error {
	_, issues, err := memcard.OpenFile(cmd.Image)
	fmt.Fprintf(g.out, "%s: %s\n", cmd.Image, issues)
	return err
}

type FormatCmd struct {
	Image string `arg:"" type:"path" help:"Card image to create."`
	Force bool   `help:"Replace an existing image."`
}

func (cmd *FormatCmd) Run(g *globals) error {
	if _, err := os.Stat(cmd.Image); err == nil {
		if !cmd.Force {
			return fmt.Errorf("%s already exists", cmd.Image)
		}
		if err := os.Remove(cmd.Image); err != nil {
			return err
		}
	}

	// a missing image is formatted when the card is opened
	c, err := rawcard.NewCard(g.env, cmd.Image)
	if err != nil {
		return err
	}
	c.Close()

	fmt.Fprintf(g.out, "formatted %s (%d Mbit)\n", cmd.Image, g.env.Prefs.CardSize())

	return nil
}

type ImportCmd struct {
	Image string   `arg:"" type:"existingfile" help:"Card image."`
	Saves []string `arg:"" type:"existingfile" help:"GCI, GCS or SAV files to import."`
}

func (cmd *ImportCmd) Run(g *globals) error {
	mc, _, err := memcard.OpenFile(cmd.Image)
	if err != nil {
		return err
	}
	mc.SetFixup(fixups.Apply)

	for _, fn := range cmd.Saves {
		sf, err := savefile.Load(fn)
		if err != nil {
			return err
		}
		if err := mc.ImportFile(sf); err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
		fmt.Fprintf(g.out, "imported %s\n", fn)
	}

	return mc.Save()
}

type ExportCmd struct {
	Image  string `arg:"" type:"existingfile" help:"Card image."`
	Save   int    `arg:"" help:"Save number as shown by the list command."`
	Output string `arg:"" type:"path" help:"File to write."`
	As     string `help:"Output format (gci, gcs or sav). Taken from the output filename by default."`
}

func (cmd *ExportCmd) Run(g *globals) error {
	mc, _, err := memcard.OpenFile(cmd.Image)
	if err != nil {
		return err
	}

	idx, ok := mc.GetFileIndex(cmd.Save)
	if !ok {
		return fmt.Errorf("no save numbered %d", cmd.Save)
	}

	sf, err := mc.ExportFile(idx)
	if err != nil {
		return err
	}

	return writeSaveFile(cmd.Output, cmd.As, sf)
}

func writeSaveFile(filename string, as string, sf memcard.SaveFile) error {
	format := savefile.FormatFromExtension(filename)
	if as != "" {
		var err error
		format, err = savefile.ParseFormat(as)
		if err != nil {
			return err
		}
	}
	return savefile.Save(filename, sf, format)
}

type RemoveCmd struct {
	Image string `arg:"" type:"existingfile" help:"Card image."`
	Save  int    `arg:"" help:"Save number as shown by the list command."`
}

func (cmd *RemoveCmd) Run(g *globals) error {
	mc, _, err := memcard.OpenFile(cmd.Image)
	if err != nil {
		return err
	}

	idx, ok := mc.GetFileIndex(cmd.Save)
	if !ok {
		return fmt.Errorf("no save numbered %d", cmd.Save)
	}

	if err := mc.RemoveFile(idx); err != nil {
		return err
	}

	return mc.Save()
}

type ConvertCmd struct {
	Input  string `arg:"" type:"existingfile" help:"Save file to convert."`
	Output string `arg:"" type:"path" help:"File to write."`
	As     string `help:"Output format (gci, gcs or sav). Taken from the output filename by default."`
}

func (cmd *ConvertCmd) Run(g *globals) error {
	sf, err := savefile.Load(cmd.Input)
	if err != nil {
		return err
	}
	return writeSaveFile(cmd.Output, cmd.As, sf)
}

type DumpCmd struct {
	Image string `arg:"" type:"existingfile" help:"Card image."`
}

func (cmd *DumpCmd) Run(g *globals) error {
	mc, _, err := memcard.OpenFile(cmd.Image)
	if err != nil {
		return err
	}

	l := mc.Layout()
	memviz.Map(g.out, &l)

	return nil
}

type FolderCmd struct {
	Dir       string `arg:"" type:"existingdir" help:"Folder of GCI files."`
	Game      string `required:"" help:"Four character game code of the running title."`
	Image     string `type:"path" help:"Write the virtual card as an image file."`
	Statsview bool   `help:"Run the runtime statistics server until interrupted."`
}

func (cmd *FolderCmd) Run(g *globals) error {
	if len(cmd.Game) != 4 {
		return fmt.Errorf("game code must be four characters (%q)", cmd.Game)
	}

	c, err := gcifolder.NewCard(g.env, cmd.Dir, gcifolder.GameID(cmd.Game))
	if err != nil {
		return err
	}
	defer c.Close()

	hdr := c.Header()
	for i := 0; i < memcard.DirLen; i++ {
		e, err := c.Entry(i)
		if err != nil || e.IsSentinel() {
			continue
		}
		fmt.Fprintf(g.out, "%3d  %s%s  %-32s %4d  @%d\n", i,
			e.GameCode[:], e.MakerCode[:], memcard.DecodeText(e.FilenameBytes(), hdr.IsShiftJIS()),
			e.BlockCount, e.FirstBlock)
	}

	if cmd.Image != "" {
		if err := os.WriteFile(cmd.Image, c.Image(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(g.out, "wrote %s\n", cmd.Image)
	}

	if cmd.Statsview {
		if !statsview.Available() {
			return fmt.Errorf("statsview not available in this build")
		}
		statsview.Launch(g.out)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		<-ctx.Done()
	}

	return nil
}

type PeekCmd struct {
	Source  string `arg:"" type:"path" help:"Card image or folder of GCI files."`
	Address uint32 `arg:"" help:"Card address."`
	Length  int    `arg:"" optional:"" default:"64" help:"Number of bytes."`
	Game    string `help:"Game code of the running title when the source is a folder."`
}

func (cmd *PeekCmd) Run(g *globals) error {
	st, err := os.Stat(cmd.Source)
	if err != nil {
		return err
	}

	var dev memcard.Device

	if st.IsDir() {
		c, err := gcifolder.NewCard(g.env, cmd.Source, gcifolder.GameID(cmd.Game))
		if err != nil {
			return err
		}
		defer c.Close()
		dev = c
	} else {
		c, err := rawcard.NewCard(g.env, cmd.Source)
		if err != nil {
			return err
		}
		defer c.Close()
		dev = c
	}

	_, err = fmt.Fprint(g.out, hex.Dump(dev.Read(cmd.Address, cmd.Length)))
	return err
}
