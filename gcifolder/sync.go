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
	"errors"
	"os"
	"path/filepath"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/memcard/savefile"
	"github.com/jetsetilly/gophercard/paths"
)

// SyncSaves compares the active directory with the loaded saves. Saves that
// have been created, changed or deleted are marked as needing to be written
// to disk.
//
// SyncSaves is called automatically when the directory is written to.
func (c *Card) SyncSaves() {
	c.crit.Lock()
	defer c.crit.Unlock()
	c.syncSaves()
}

// syncSaves must be called with the critical section locked.
func (c *Card) syncSaves() {
	dir, _ := c.activeMeta()

	for i := range dir.Entries {
		entry := dir.Entries[i]

		if !entry.IsSentinel() {
			added := false
			for len(c.saves) <= i {
				c.saves = append(c.saves, nil)
			}
			if c.saves[i] == nil {
				c.saves[i] = &save{entry: memcard.SentinelEntry()}
				added = true
			}

			s := c.saves[i]
			if !added && s.entry == entry {
				continue
			}

			s.dirty = true

			if !s.entry.IsSentinel() && s.entry.GameID() != entry.GameID() {
				logger.Logf(c.env, "gcifolder", "slot %d: %s overwritten by save for another title (%s)",
					i, s.entry.GCIFilename(), entry.GCIFilename())
			}

			if s.entry.FirstBlock != entry.FirstBlock {
				s.usedBlocks = nil
				s.blocks.Store(nil)
			}
			s.entry = entry

			logger.Logf(c.env, "gcifolder", "slot %d: %s changed", i, entry.GCIFilename())

		} else if i < len(c.saves) && c.saves[i] != nil && !c.saves[i].entry.IsSentinel() {
			s := c.saves[i]

			logger.Logf(c.env, "gcifolder", "slot %d: %s deleted", i, s.entry.GCIFilename())

			s.entry.GameCode = memcard.SentinelGameCode
			s.usedBlocks = nil
			s.blocks.Store(nil)
			s.dirty = true
		}
	}

	c.rebuildIndex()
}

// FlushToFile writes saves that have changed to disk. Saves that have been
// deleted have their file renamed. Resident save data for titles other than
// the running title is discarded.
//
// FlushToFile is called automatically some time after the card is written
// to. It is also called when the card is closed.
func (c *Card) FlushToFile() error {
	c.crit.Lock()
	defer c.crit.Unlock()

	writable := c.env.Prefs.Writable.Get().(bool)

	var errs []error

	for i, s := range c.saves {
		if s == nil {
			continue
		}

		if s.dirty {
			if !s.entry.IsSentinel() {
				if !writable {
					s.dirty = false
					continue
				}

				blocks, err := c.flushBlocks(s)
				if err != nil {
					// the save stays dirty so the flush is tried again
					logger.Logf(c.env, "gcifolder", "slot %d: %v", i, err)
					errs = append(errs, err)
					continue
				}

				if s.filename == "" {
					s.filename = paths.UniqueFilename(c.dir, s.entry.GCIFilename(), c.filenames())
				}

				if err := c.writeSave(s, blocks); err != nil {
					errs = append(errs, err)
				} else {
					s.dirty = false
				}

			} else if s.filename != "" {
				s.dirty = false

				if writable {
					if err := deleteSave(s.filename); err != nil {
						errs = append(errs, err)
					} else {
						logger.Logf(c.env, "gcifolder", "renamed %s", filepath.Base(s.filename)+deletedSuffix)
					}
				}

				s.filename = ""
				s.usedBlocks = nil
				s.blocks.Store(nil)
			}
		}

		if !s.dirty && s.entry.GameID() != c.gameID {
			s.blocks.Store(nil)
		}
	}

	c.rebuildIndex()

	if len(errs) > 0 {
		return curated.Errorf(FolderError, errors.Join(errs...))
	}
	return nil
}

// filenames of all loaded saves.
func (c *Card) filenames() []string {
	var fns []string
	for _, s := range c.saves {
		if s != nil && s.filename != "" {
			fns = append(fns, s.filename)
		}
	}
	return fns
}

// flushBlocks returns the save data to be written for the save. save data
// that is not resident is read from the save's file without making it
// resident. a save with no file and no resident data is blank.
func (c *Card) flushBlocks(s *save) ([]memcard.Block, error) {
	if p := s.blocks.Load(); p != nil {
		return *p, nil
	}

	blocks := make([]memcard.Block, s.entry.BlockCount)
	for i := range blocks {
		blocks[i].Erase()
	}

	if s.filename != "" {
		sf, err := savefile.Load(s.filename)
		if err != nil {
			return nil, err
		}
		copy(blocks, sf.Blocks)
	}

	return blocks, nil
}

func (c *Card) writeSave(s *save, blocks []memcard.Block) error {
	sf := memcard.SaveFile{
		Entry:  s.entry,
		Blocks: make([]memcard.Block, s.entry.BlockCount),
	}
	copy(sf.Blocks, blocks)

	if err := savefile.Save(s.filename, sf, savefile.GCI); err != nil {
		return err
	}

	logger.Logf(c.env, "gcifolder", "saved %s", filepath.Base(s.filename))

	return nil
}

// deleteSave renames the file of a deleted save. an existing file with the
// new name is replaced.
func deleteSave(filename string) error {
	deleted := filename + deletedSuffix
	if err := os.Remove(deleted); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(filename, deleted)
}
