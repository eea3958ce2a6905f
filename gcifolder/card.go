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
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/debounce"
	"github.com/jetsetilly/gophercard/environment"
	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/memcard/fixups"
	"github.com/jetsetilly/gophercard/memcard/savefile"
)

// Sentinal error patterns.
const (
	FolderError   = "gcifolder: %v"
	LoadGCIError  = "gcifolder: cannot load %s: %v"
	AlreadyLoaded = "gcifolder: save already loaded (%s)"
	NoSpace       = "gcifolder: no space for %s"
)

// the suffix added to the files of deleted saves.
const deletedSuffix = ".deleted"

// GameID returns the numeric form of a four character game code.
func GameID(gameCode string) uint32 {
	var b [4]byte
	copy(b[:], gameCode)
	return binary.BigEndian.Uint32(b[:])
}

// save is a single save file loaded into the card. the fields other than
// blocks are only accessed with the card's critical section locked.
type save struct {
	entry    memcard.DirEntry
	filename string
	dirty    bool

	// card blocks occupied by the save, in chain order
	usedBlocks []uint16

	// resident save data. nil if the save data has not been loaded
	blocks atomic.Pointer[[]memcard.Block]
}

// Card is a memory card backed by a folder of GCI files. It implements the
// memcard.Device interface.
type Card struct {
	env *environment.Environment

	dir       string
	gameID    uint32
	sizeMbits uint16
	maxBlock  uint16

	// write, clear and flush operations
	crit sync.Mutex

	// the header, directory and BAT blocks as they are seen on the bus
	meta [memcard.NumMetadataBlocks]memcard.Block

	// saves indexed by directory slot
	saves []*save

	// maps data blocks to saves. replaced rather than changed so that it can
	// be read without locking the critical section
	index atomic.Pointer[blockIndex]

	flush *debounce.Task
}

// NewCard creates a card from the GCI files in dir. The directory is created
// if it does not exist. The gameID is the game code of the running title,
// see GameID().
//
// The header of the card is created from the environment preferences. The
// flash ID of the card is derived from the path of the folder so that the
// card always has the same identity.
func NewCard(env *environment.Environment, dir string, gameID uint32) (*Card, error) {
	sizeMbits := env.Prefs.CardSize()

	c := &Card{
		env:       env,
		dir:       dir,
		gameID:    gameID,
		sizeMbits: sizeMbits,
		maxBlock:  uint16(memcard.TotalBlocks(sizeMbits)),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, curated.Errorf(FolderError, err)
	}

	hdr := memcard.NewHeader(env.Prefs.FormatParams(memcard.FlashID(dir), time.Now()))
	hdr.MarshalBlock(&c.meta[memcard.HeaderBlock])

	dir1 := memcard.NewDirectory()
	bat1 := memcard.NewBlockAlloc(sizeMbits)
	c.storeMeta(&dir1, &bat1)

	current, others, err := c.scan()
	if err != nil {
		return nil, err
	}

	// saves for the running title are always loaded
	for _, fn := range current {
		if err := c.loadGCI(fn); err != nil {
			logger.Log(c.env, "gcifolder", err.Error())
		}
	}

	if !env.Prefs.CurrentGameOnly.Get().(bool) {
		maxOthers := env.Prefs.MaxOtherSaves.Get().(int)
		reserve := memcard.DataBlocks(sizeMbits) * env.Prefs.Reserve.Get().(int) / 100

		for _, fn := range others {
			if len(c.liveSaves()) > maxOthers {
				logger.Logf(c.env, "gcifolder", "too many saves. not loading %s", filepath.Base(fn))
				break
			}

			entry, _, err := savefile.ReadHeader(fn)
			if err != nil {
				logger.Log(c.env, "gcifolder", err.Error())
				continue
			}

			_, bat := c.activeMeta()
			if int(bat.FreeBlocks)-reserve < int(entry.BlockCount) {
				logger.Logf(c.env, "gcifolder", "not enough free blocks for %s", filepath.Base(fn))
				continue
			}

			if err := c.loadGCI(fn); err != nil {
				logger.Log(c.env, "gcifolder", err.Error())
			}
		}
	}

	c.rebuildIndex()

	logger.Logf(c.env, "gcifolder", "%d saves loaded from %s", len(c.liveSaves()), dir)

	c.flush = debounce.NewTask(env.Prefs.FlushInterval(), func() {
		if err := c.FlushToFile(); err != nil {
			logger.Log(c.env, "gcifolder", err.Error())
		}
	})

	return c, nil
}

// scan the folder for GCI files and return the files for the running title
// and the files for other titles.
func (c *Card) scan() ([]string, []string, error) {
	ents, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, nil, curated.Errorf(FolderError, err)
	}

	var current, others []string
	for _, e := range ents {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".gci") {
			continue
		}

		fn := filepath.Join(c.dir, e.Name())
		entry, _, err := savefile.ReadHeader(fn)
		if err != nil {
			logger.Logf(c.env, "gcifolder", "ignoring %s: %v", e.Name(), err)
			continue
		}

		if entry.GameID() == c.gameID {
			current = append(current, fn)
		} else {
			others = append(others, fn)
		}
	}

	return current, others, nil
}

// Close the card. Any outstanding changes are written to disk.
func (c *Card) Close() {
	c.flush.Close()
}

// Folder returns the folder the card was created from.
func (c *Card) Folder() string {
	return c.dir
}

// Header returns the card header.
func (c *Card) Header() memcard.Header {
	c.crit.Lock()
	defer c.crit.Unlock()

	var hdr memcard.Header
	hdr.UnmarshalBlock(&c.meta[memcard.HeaderBlock])
	return hdr
}

// activeMeta returns the active directory and BAT as they are currently
// stored in the metadata blocks.
func (c *Card) activeMeta() (memcard.Directory, memcard.BlockAlloc) {
	var dirs [2]memcard.Directory
	dirs[0].UnmarshalBlock(&c.meta[memcard.DirectoryBlockA])
	dirs[1].UnmarshalBlock(&c.meta[memcard.DirectoryBlockB])

	var bats [2]memcard.BlockAlloc
	bats[0].UnmarshalBlock(&c.meta[memcard.BATBlockA])
	bats[1].UnmarshalBlock(&c.meta[memcard.BATBlockB])

	return dirs[memcard.SelectActive(dirs[0].UpdateCounter, dirs[1].UpdateCounter)],
		bats[memcard.SelectActive(bats[0].UpdateCounter, bats[1].UpdateCounter)]
}

// storeMeta writes the directory and BAT to both copies in the metadata
// blocks.
func (c *Card) storeMeta(dir *memcard.Directory, bat *memcard.BlockAlloc) {
	dir.FixChecksums()
	bat.FixChecksums()
	dir.MarshalBlock(&c.meta[memcard.DirectoryBlockA])
	dir.MarshalBlock(&c.meta[memcard.DirectoryBlockB])
	bat.MarshalBlock(&c.meta[memcard.BATBlockA])
	bat.MarshalBlock(&c.meta[memcard.BATBlockB])
}

// liveSaves returns the saves that have not been deleted.
func (c *Card) liveSaves() []*save {
	live := make([]*save, 0, len(c.saves))
	for _, s := range c.saves {
		if s != nil && !s.entry.IsSentinel() {
			live = append(live, s)
		}
	}
	return live
}

// LoadGCI adds the save in the named file to the card. The save is placed
// in the first free directory slot and occupies a contiguous run of blocks
// after the most recently allocated block.
//
// Saves should be added before the card is made available to the running
// title.
func (c *Card) LoadGCI(filename string) error {
	c.crit.Lock()
	defer c.crit.Unlock()

	if err := c.loadGCI(filename); err != nil {
		return err
	}
	c.rebuildIndex()

	return nil
}

func (c *Card) loadGCI(filename string) error {
	base := filepath.Base(filename)

	for _, s := range c.saves {
		if s != nil && s.filename == filename {
			return curated.Errorf(AlreadyLoaded, base)
		}
	}

	sf, err := savefile.Load(filename)
	if err != nil {
		return curated.Errorf(LoadGCIError, base, err)
	}

	for _, s := range c.saves {
		if s != nil && s.entry.SameIdentity(&sf.Entry) {
			return curated.Errorf(AlreadyLoaded, base)
		}
	}

	dir, bat := c.activeMeta()

	if int(sf.Entry.BlockCount) > memcard.DataBlocks(c.sizeMbits) {
		return curated.Errorf(NoSpace, fmt.Sprintf("%s (%d blocks is larger than the card)", base, sf.Entry.BlockCount))
	}
	if sf.Entry.BlockCount > bat.FreeBlocks {
		return curated.Errorf(NoSpace, fmt.Sprintf("%s (%d blocks required, %d free)", base, sf.Entry.BlockCount, bat.FreeBlocks))
	}

	slot := dir.FreeEntry()
	if slot < 0 {
		return curated.Errorf(NoSpace, fmt.Sprintf("%s (no free directory entries)", base))
	}

	first, ok := bat.AssignBlocksContiguous(sf.Entry.BlockCount)
	if !ok {
		return curated.Errorf(NoSpace, fmt.Sprintf("%s (no contiguous run of %d blocks)", base, sf.Entry.BlockCount))
	}
	sf.Entry.FirstBlock = first

	if fixups.HasCopyProtection(&sf.Entry) {
		var hdr memcard.Header
		hdr.UnmarshalBlock(&c.meta[memcard.HeaderBlock])
		fixups.Apply(&hdr, &sf.Entry, sf.Blocks)
	}

	dir.Replace(sf.Entry, slot)

	s := &save{
		entry:    sf.Entry,
		filename: filename,
	}
	s.blocks.Store(&sf.Blocks)

	used, ok := bat.Chain(first, sf.Entry.BlockCount)
	if !ok {
		return curated.Errorf(LoadGCIError, base, "block chain does not match block count")
	}
	s.usedBlocks = used

	for len(c.saves) <= slot {
		c.saves = append(c.saves, nil)
	}
	c.saves[slot] = s

	c.storeMeta(&dir, &bat)

	logger.Logf(c.env, "gcifolder", "loaded %s into slot %d", base, slot)

	return nil
}
