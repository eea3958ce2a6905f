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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/memcard/savefile"
	"github.com/jetsetilly/gophercard/test"
)

type harness struct {
	t         *testing.T
	dir       string
	prefsFile string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	return &harness{
		t:         t,
		dir:       dir,
		prefsFile: filepath.Join(dir, "preferences"),
	}
}

func (h *harness) path(name string) string {
	return filepath.Join(h.dir, name)
}

// run the command line with a small card size and a private preferences file.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	var cli CLI
	parser, err := kong.New(&cli, kong.Name("gophercard"))
	test.DemandSuccess(h.t, err)

	args = append([]string{"--prefsfile", h.prefsFile, "--prefs", "card.sizembits::4; gcifolder.flushdelay::10"}, args...)
	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	err = run(ctx, &cli, &out)
	return out.String(), err
}

func (h *harness) save(filename string, gameCode string, title string, numBlocks int) {
	h.t.Helper()

	sf := memcard.SaveFile{
		Blocks: make([]memcard.Block, numBlocks),
	}
	copy(sf.Entry.GameCode[:], gameCode)
	copy(sf.Entry.MakerCode[:], "01")
	sf.Entry.Unused1 = 0xff
	sf.Entry.Unused2 = 0xffff
	sf.Entry.SetFilename(title)
	sf.Entry.BlockCount = uint16(numBlocks)
	copy(sf.Blocks[0][:], "comment one")
	copy(sf.Blocks[0][memcard.CommentLength:], "comment two")

	test.DemandSuccess(h.t, savefile.Save(filename, sf, savefile.FormatFromExtension(filename)))
}

func TestCommands(t *testing.T) {
	h := newHarness(t)
	img := h.path("card.raw")

	_, err := h.run("format", img)
	test.DemandSuccess(t, err)

	// formatting an existing image requires the force flag
	_, err = h.run("format", img)
	test.ExpectFailure(t, err)
	_, err = h.run("format", "--force", img)
	test.ExpectSuccess(t, err)

	out, err := h.run("info", img)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "4 Mbit (59 blocks)"))
	test.ExpectSuccess(t, strings.Contains(out, "no issues"))

	h.save(h.path("a.gci"), "GAFE", "animal", 3)
	h.save(h.path("b.gcs"), "GZLE", "zelda", 2)
	_, err = h.run("import", img, h.path("a.gci"), h.path("b.gcs"))
	test.DemandSuccess(t, err)

	// same title again
	_, err = h.run("import", img, h.path("a.gci"))
	test.ExpectFailure(t, err)

	out, err = h.run("list", img)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "GAFE01  animal"))
	test.ExpectSuccess(t, strings.Contains(out, "GZLE01  zelda"))
	test.ExpectSuccess(t, strings.Contains(out, "comment one"))

	_, err = h.run("export", img, "1", h.path("zelda.sav"))
	test.DemandSuccess(t, err)
	sf, err := savefile.Load(h.path("zelda.sav"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, sf.Entry.BlockCount, 2)
	test.ExpectEquality(t, string(sf.Entry.FilenameBytes()), "zelda")

	_, err = h.run("export", img, "5", h.path("none.gci"))
	test.ExpectFailure(t, err)

	_, err = h.run("convert", h.path("zelda.sav"), h.path("zelda.out"), "--as", "gcs")
	test.DemandSuccess(t, err)
	_, format, err := savefile.ReadHeader(h.path("zelda.out"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, format, savefile.GCS)

	_, err = h.run("remove", img, "0")
	test.DemandSuccess(t, err)

	out, err = h.run("info", img)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "saves:      1"))
	test.ExpectSuccess(t, strings.Contains(out, "free:       57 blocks"))

	out, err = h.run("check", img)
	test.ExpectSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "no issues"))

	out, err = h.run("dump", img)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "digraph"))
}

func TestCheckCorrupt(t *testing.T) {
	h := newHarness(t)
	img := h.path("card.raw")

	_, err := h.run("format", img)
	test.DemandSuccess(t, err)

	// break both copies of the directory
	b, err := os.ReadFile(img)
	test.DemandSuccess(t, err)
	b[memcard.BlockSize+0x1ffc] ^= 0xff
	b[2*memcard.BlockSize+0x1ffc] ^= 0xff
	test.DemandSuccess(t, os.WriteFile(img, b, 0o644))

	out, err := h.run("check", img)
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "invalid checksum"))
}

func TestFolder(t *testing.T) {
	h := newHarness(t)
	folder := h.path("saves")
	test.DemandSuccess(t, os.Mkdir(folder, 0o755))

	h.save(filepath.Join(folder, "01-GAFE-animal.gci"), "GAFE", "animal", 3)
	h.save(filepath.Join(folder, "01-GZLE-zelda.gci"), "GZLE", "zelda", 2)

	img := h.path("folder.raw")
	out, err := h.run("folder", folder, "--game", "GAFE", "--image", img)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "GAFE01  animal"))

	mc, issues, err := memcard.OpenFile(img)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, issues, memcard.Issues(0))
	test.ExpectEquality(t, mc.GetNumFiles(), 2)
	test.ExpectEquality(t, mc.GetFreeBlocks(), 54)

	_, err = h.run("folder", folder, "--game", "GAF")
	test.ExpectFailure(t, err)

	// the first block of the first save is block 5
	out, err = h.run("peek", folder, "40960", "16", "--game", "GAFE")
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "comment one"))

	out, err = h.run("peek", img, "40960", "16")
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, strings.Contains(out, "comment one"))
}
