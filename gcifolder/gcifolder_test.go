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

package gcifolder

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/environment"
	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/memcard/savefile"
	"github.com/jetsetilly/gophercard/preferences"
	"github.com/jetsetilly/gophercard/test"
)

func newEnv(t *testing.T) *environment.Environment {
	t.Helper()

	p, err := preferences.NewPreferencesFile(filepath.Join(t.TempDir(), "preferences"))
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, p.SizeMbits.Set(int(memcard.MemCard59Mb)))

	// flushing is done explicitly unless a test says otherwise
	test.DemandSuccess(t, p.FlushDelay.Set(3600*1000))

	env, err := environment.NewEnvironment(environment.MainEmulation, p)
	test.DemandSuccess(t, err)
	return env
}

func writeGCI(t *testing.T, dir string, gameCode string, name string, numBlocks int, fill byte) (string, memcard.SaveFile) {
	t.Helper()

	sf := memcard.SaveFile{
		Blocks: make([]memcard.Block, numBlocks),
	}
	copy(sf.Entry.GameCode[:], gameCode)
	copy(sf.Entry.MakerCode[:], "01")
	sf.Entry.Unused1 = 0xff
	sf.Entry.Unused2 = 0xffff
	sf.Entry.SetFilename(name)
	sf.Entry.BlockCount = uint16(numBlocks)
	for i := range sf.Blocks {
		for j := range sf.Blocks[i] {
			sf.Blocks[i][j] = fill + byte(i)
		}
	}

	fn := filepath.Join(dir, sf.Entry.GCIFilename())
	test.DemandSuccess(t, savefile.Save(fn, sf, savefile.GCI))

	return fn, sf
}

// setup creates a folder with a save for the running title and a save for
// another title.
func setup(t *testing.T, env *environment.Environment) (*Card, string, string) {
	t.Helper()

	dir := t.TempDir()
	current, _ := writeGCI(t, dir, "GAFE", "current", 2, 0x10)
	other, _ := writeGCI(t, dir, "GZLE", "other", 3, 0x20)

	c, err := NewCard(env, dir, GameID("GAFE"))
	test.DemandSuccess(t, err)
	t.Cleanup(c.Close)

	return c, current, other
}

// writeImage writes the metadata blocks of the card image through the bus.
// the BAT is written before the directory as it would be by the console.
func writeImage(t *testing.T, c *Card, img []byte) {
	t.Helper()
	for _, blk := range []int{memcard.HeaderBlock, memcard.BATBlockA, memcard.BATBlockB, memcard.DirectoryBlockA, memcard.DirectoryBlockB} {
		n := c.Write(uint32(blk*memcard.BlockSize), img[blk*memcard.BlockSize:(blk+1)*memcard.BlockSize])
		test.DemandEquality(t, n, memcard.BlockSize)
	}
}

func TestConstruction(t *testing.T) {
	env := newEnv(t)
	c, _, _ := setup(t, env)

	test.ExpectEquality(t, c.NumFiles(), 2)

	e, err := c.Entry(0)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(e.FilenameBytes()), "current")
	test.ExpectEquality(t, e.FirstBlock, 5)

	e, err = c.Entry(1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(e.FilenameBytes()), "other")
	test.ExpectEquality(t, e.FirstBlock, 7)

	// the card as seen on the bus is a valid card
	mc, issues, err := memcard.Open(c.Image())
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, issues, memcard.Issues(0))
	test.ExpectEquality(t, mc.GetNumFiles(), 2)
	test.ExpectEquality(t, mc.GetFreeBlocks(), 54)

	sf, err := mc.ExportFile(1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, sf.Blocks[2][100], 0x22)

	sf, err = c.ExportFile(0)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, sf.Blocks[1][100], 0x11)
}

func TestCurrentGameOnly(t *testing.T) {
	env := newEnv(t)
	test.DemandSuccess(t, env.Prefs.CurrentGameOnly.Set(true))

	c, _, _ := setup(t, env)
	test.ExpectEquality(t, c.NumFiles(), 1)
}

func TestReserve(t *testing.T) {
	env := newEnv(t)
	dir := t.TempDir()

	// the running title is loaded even though it leaves less than the
	// reserve free
	writeGCI(t, dir, "GAFE", "big", 52, 0x10)
	writeGCI(t, dir, "GZLE", "other", 3, 0x20)

	c, err := NewCard(env, dir, GameID("GAFE"))
	test.DemandSuccess(t, err)
	defer c.Close()

	test.ExpectEquality(t, c.NumFiles(), 1)
}

func TestUnallocatedRead(t *testing.T) {
	env := newEnv(t)
	c, _, _ := setup(t, env)

	b := c.Read(40*memcard.BlockSize+0x123, 100)
	test.DemandEquality(t, len(b), 100)
	for _, v := range b {
		test.DemandEquality(t, v, 0xff)
	}

	// a read that crosses from an allocated block into an unallocated block
	b = c.Read(10*memcard.BlockSize-2, 4)
	test.ExpectBytes(t, b, []byte{0x22, 0x22, 0xff, 0xff})
}

func TestFlushAndEvict(t *testing.T) {
	env := newEnv(t)
	c, current, other := setup(t, env)

	otherBefore, err := os.ReadFile(other)
	test.DemandSuccess(t, err)
	otherEntry, err := c.Entry(1)
	test.DemandSuccess(t, err)

	// both saves are resident after loading
	test.ExpectSuccess(t, c.saves[0].blocks.Load() != nil)
	test.ExpectSuccess(t, c.saves[1].blocks.Load() != nil)

	n := c.Write(5*memcard.BlockSize+0x100, []byte("changed"))
	test.ExpectEquality(t, n, 7)
	test.ExpectSuccess(t, c.saves[0].dirty)

	test.DemandSuccess(t, c.FlushToFile())

	sf, err := savefile.Load(current)
	test.DemandSuccess(t, err)
	test.ExpectBytes(t, sf.Blocks[0][0x100:0x107], []byte("changed"))
	test.ExpectEquality(t, sf.Blocks[0][0x107], 0x10)
	test.ExpectEquality(t, sf.Blocks[1][0], 0x11)

	// the save for the other title is untouched but no longer resident
	otherAfter, err := os.ReadFile(other)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(otherBefore, otherAfter))
	test.ExpectSuccess(t, c.saves[0].blocks.Load() != nil)
	test.ExpectSuccess(t, c.saves[1].blocks.Load() == nil)

	e, err := c.Entry(1)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, e, otherEntry)

	// the evicted save is loaded again when it is read
	b := c.Read(8*memcard.BlockSize, 2)
	test.ExpectBytes(t, b, []byte{0x21, 0x21})
	test.ExpectSuccess(t, c.saves[1].blocks.Load() != nil)
}

func TestEntryChangeForEvictedSave(t *testing.T) {
	env := newEnv(t)
	c, _, other := setup(t, env)

	// taking the image reads every block so it must happen before the flush
	mc, _, err := memcard.Open(c.Image())
	test.DemandSuccess(t, err)

	// the save for the other title is evicted by the flush
	test.DemandSuccess(t, c.FlushToFile())
	test.DemandSuccess(t, c.saves[1].blocks.Load() == nil)

	d := mc.ActiveDirectory()
	d.Entries[1].ModificationTime = 0x12345
	d.UpdateCounter++
	mc.UpdateDirectory(d)

	writeImage(t, c, mc.Bytes())
	test.ExpectSuccess(t, c.saves[1].dirty)
	test.ExpectSuccess(t, c.saves[1].blocks.Load() == nil)

	test.DemandSuccess(t, c.FlushToFile())
	test.ExpectFailure(t, c.saves[1].dirty)

	entry, _, err := savefile.ReadHeader(other)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, entry.ModificationTime, 0x12345)

	// the save data in the file is unchanged
	sf, err := savefile.Load(other)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, sf.Blocks[0][0], 0x20)
	test.ExpectEquality(t, sf.Blocks[2][100], 0x22)
}

func TestEntryChangeWithMissingFile(t *testing.T) {
	env := newEnv(t)
	c, _, other := setup(t, env)

	mc, _, err := memcard.Open(c.Image())
	test.DemandSuccess(t, err)

	test.DemandSuccess(t, c.FlushToFile())
	test.DemandSuccess(t, os.Remove(other))

	d := mc.ActiveDirectory()
	d.Entries[1].ModificationTime = 0x12345
	d.UpdateCounter++
	mc.UpdateDirectory(d)
	writeImage(t, c, mc.Bytes())

	// the save data cannot be found so the save is kept for a later flush
	test.ExpectFailure(t, c.FlushToFile())
	test.ExpectSuccess(t, c.saves[1].dirty)
}

func TestAddressBeyondCard(t *testing.T) {
	env := newEnv(t)
	c, _, _ := setup(t, env)

	hdr := c.Read(0, 16)

	// block numbers that would wrap to the metadata blocks if truncated
	const beyond = 0x10000 * memcard.BlockSize

	test.ExpectBytes(t, c.Read(beyond, 4), []byte{0xff, 0xff, 0xff, 0xff})
	test.ExpectBytes(t, c.Read(60*memcard.BlockSize, 2), []byte{0xff, 0xff})

	test.ExpectEquality(t, c.Write(beyond, []byte{0x01, 0x02, 0x03, 0x04}), 0)
	test.ExpectBytes(t, c.Read(0, 16), hdr)

	c.ClearBlock(beyond)
	test.ExpectBytes(t, c.Read(0, 16), hdr)
	test.ExpectEquality(t, c.NumFiles(), 2)
}

func TestCreateSave(t *testing.T) {
	env := newEnv(t)
	c, _, _ := setup(t, env)

	mc, _, err := memcard.Open(c.Image())
	test.DemandSuccess(t, err)

	_, sf := writeGCI(t, t.TempDir(), "GAFE", "newsave", 2, 0x40)
	test.DemandSuccess(t, mc.ImportFile(sf))

	img := mc.Bytes()
	writeImage(t, c, img)
	test.ExpectEquality(t, c.NumFiles(), 3)

	var chain []uint16
	for _, s := range mc.Layout().Saves {
		if s.Filename == "newsave" {
			chain = s.Blocks
		}
	}
	test.DemandEquality(t, len(chain), 2)

	for _, b := range chain {
		n := c.Write(uint32(b)*memcard.BlockSize, img[int(b)*memcard.BlockSize:(int(b)+1)*memcard.BlockSize])
		test.ExpectEquality(t, n, memcard.BlockSize)
	}

	test.DemandSuccess(t, c.FlushToFile())

	loaded, err := savefile.Load(filepath.Join(c.Folder(), sf.Entry.GCIFilename()))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, loaded.Blocks[0], sf.Blocks[0])
	test.ExpectEquality(t, loaded.Blocks[1], sf.Blocks[1])
	test.ExpectEquality(t, loaded.Entry.FirstBlock, chain[0])
}

func TestDeleteSave(t *testing.T) {
	env := newEnv(t)
	c, current, _ := setup(t, env)

	mc, _, err := memcard.Open(c.Image())
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, mc.RemoveFile(0))

	writeImage(t, c, mc.Bytes())
	test.ExpectEquality(t, c.NumFiles(), 1)

	test.DemandSuccess(t, c.FlushToFile())

	_, err = os.Stat(current)
	test.ExpectFailure(t, err == nil)
	_, err = os.Stat(current + ".deleted")
	test.ExpectSuccess(t, err)
}

func TestClearBlock(t *testing.T) {
	env := newEnv(t)
	c, _, _ := setup(t, env)

	// unaligned addresses are ignored
	c.ClearBlock(6*memcard.BlockSize + 1)
	test.ExpectBytes(t, c.Read(6*memcard.BlockSize, 2), []byte{0x11, 0x11})

	c.ClearBlock(6 * memcard.BlockSize)
	test.ExpectBytes(t, c.Read(6*memcard.BlockSize, 2), []byte{0x00, 0x00})
	test.ExpectBytes(t, c.Read(7*memcard.BlockSize-1, 2), []byte{0x00, 0x20})
	test.ExpectSuccess(t, c.saves[0].dirty)

	// clearing a directory block does not change the saves until the block
	// is written again
	dirB := c.Read(memcard.DirectoryBlockB*memcard.BlockSize, memcard.BlockSize)
	c.ClearBlock(memcard.DirectoryBlockB * memcard.BlockSize)
	test.ExpectBytes(t, c.Read(memcard.DirectoryBlockB*memcard.BlockSize, 2), []byte{0x00, 0x00})
	test.ExpectEquality(t, c.NumFiles(), 2)
	test.ExpectFailure(t, c.saves[1].entry.IsSentinel())

	n := c.Write(memcard.DirectoryBlockB*memcard.BlockSize, dirB)
	test.ExpectEquality(t, n, memcard.BlockSize)
	test.ExpectEquality(t, c.NumFiles(), 2)
}

func TestLoadGCI(t *testing.T) {
	env := newEnv(t)
	c, current, _ := setup(t, env)

	err := c.LoadGCI(current)
	test.ExpectSuccess(t, curated.Is(err, AlreadyLoaded))

	// same identity in a different file
	dir := t.TempDir()
	fn, _ := writeGCI(t, dir, "GAFE", "current", 1, 0x50)
	err = c.LoadGCI(fn)
	test.ExpectSuccess(t, curated.Is(err, AlreadyLoaded))

	fn, _ = writeGCI(t, dir, "GAFE", "too big", 60, 0x50)
	err = c.LoadGCI(fn)
	test.ExpectSuccess(t, curated.Is(err, NoSpace))

	fn, _ = writeGCI(t, dir, "GAFE", "extra", 1, 0x50)
	test.DemandSuccess(t, c.LoadGCI(fn))
	test.ExpectEquality(t, c.NumFiles(), 3)
	test.ExpectBytes(t, c.Read(10*memcard.BlockSize, 1), []byte{0x50})
}

func TestState(t *testing.T) {
	env := newEnv(t)
	c, _, _ := setup(t, env)

	var state bytes.Buffer
	test.DemandSuccess(t, c.SaveState(&state))

	c.Write(5*memcard.BlockSize, []byte{0x99})
	test.ExpectBytes(t, c.Read(5*memcard.BlockSize, 1), []byte{0x99})

	test.DemandSuccess(t, c.RestoreState(&state))
	test.ExpectBytes(t, c.Read(5*memcard.BlockSize, 1), []byte{0x10})
	test.ExpectEquality(t, c.NumFiles(), 2)

	err := c.RestoreState(bytes.NewReader([]byte("not a state")))
	test.ExpectSuccess(t, curated.Is(err, StateError))
}

func TestBackgroundFlush(t *testing.T) {
	env := newEnv(t)
	test.DemandSuccess(t, env.Prefs.FlushDelay.Set(10))

	c, current, _ := setup(t, env)

	blk := make([]byte, memcard.BlockSize)
	for i := range blk {
		blk[i] = 0x77
	}

	// completing a block schedules a flush
	c.Write(5*memcard.BlockSize, blk)

	deadline := time.Now().Add(5 * time.Second)
	var flushed bool
	for !flushed && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		if sf, err := savefile.Load(current); err == nil {
			flushed = sf.Blocks[0][0] == 0x77
		}
	}
	test.ExpectSuccess(t, flushed)
}

func TestFlushDuringSteadyWrites(t *testing.T) {
	env := newEnv(t)
	test.DemandSuccess(t, env.Prefs.FlushDelay.Set(50))

	c, current, _ := setup(t, env)

	blk := make([]byte, memcard.BlockSize)

	// writes arrive more often than the flush delay. the save must still
	// reach the disk while the writes continue
	deadline := time.Now().Add(5 * time.Second)
	var flushed bool
	for v := byte(0x60); !flushed && time.Now().Before(deadline); v++ {
		for i := range blk {
			blk[i] = v
		}
		c.Write(5*memcard.BlockSize, blk)
		time.Sleep(10 * time.Millisecond)

		if sf, err := savefile.Load(current); err == nil {
			flushed = sf.Blocks[0][0] != 0x10
		}
	}
	test.ExpectSuccess(t, flushed)
}

func TestCloseFlushes(t *testing.T) {
	env := newEnv(t)
	dir := t.TempDir()
	current, _ := writeGCI(t, dir, "GAFE", "current", 1, 0x10)

	c, err := NewCard(env, dir, GameID("GAFE"))
	test.DemandSuccess(t, err)

	c.Write(5*memcard.BlockSize, []byte{0x88})
	c.Close()

	sf, err := savefile.Load(current)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, sf.Blocks[0][0], 0x88)
}

func TestReadOnly(t *testing.T) {
	env := newEnv(t)
	test.DemandSuccess(t, env.Prefs.Writable.Set(false))

	c, current, _ := setup(t, env)
	c.Write(5*memcard.BlockSize, []byte{0x88})
	test.DemandSuccess(t, c.FlushToFile())

	sf, err := savefile.Load(current)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, sf.Blocks[0][0], 0x10)
}
