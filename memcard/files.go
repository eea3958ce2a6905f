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

package memcard

import (
	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/logger"
)

// InvalidSaveFile is returned when the number of blocks in a save file does
// not agree with the directory entry.
const InvalidSaveFile = "memcard: invalid save file (%d blocks, entry says %d)"

// GetNumFiles returns the number of saves on the card.
func (c *Card) GetNumFiles() int {
	if !c.IsValid() {
		return 0
	}
	return c.directories[c.activeDirectory].NumFiles()
}

// GetFileIndex returns the directory index of the nth save on the card.
func (c *Card) GetFileIndex(n int) (int, bool) {
	if !c.IsValid() || n < 0 {
		return 0, false
	}

	d := &c.directories[c.activeDirectory]
	for i := range d.Entries {
		if d.Entries[i].IsSentinel() {
			continue
		}
		if n == 0 {
			return i, true
		}
		n--
	}

	return 0, false
}

// GetFreeBlocks returns the number of unallocated data blocks.
func (c *Card) GetFreeBlocks() uint16 {
	if !c.IsValid() {
		return 0
	}
	return c.bats[c.activeBat].FreeBlocks
}

// Entry returns the directory entry at index.
func (c *Card) Entry(index int) (DirEntry, error) {
	if !c.IsValid() {
		return DirEntry{}, curated.Errorf(NoMemcard)
	}
	if index < 0 || index >= DirLen {
		return DirEntry{}, curated.Errorf(InvalidIndex, index)
	}
	return c.directories[c.activeDirectory].Entries[index], nil
}

// TitlePresent returns true if a save with the same identity as the entry is
// already on the card.
func (c *Card) TitlePresent(entry DirEntry) bool {
	if !c.IsValid() {
		return false
	}
	return titlePresent(&c.directories[c.activeDirectory], &entry)
}

func titlePresent(d *Directory, entry *DirEntry) bool {
	for i := range d.Entries {
		if d.Entries[i].SameIdentity(entry) {
			return true
		}
	}
	return false
}

// GetSaveDataBytes returns length bytes from the save at index, starting at
// offset bytes into the save.
func (c *Card) GetSaveDataBytes(index int, offset int, length int) ([]byte, error) {
	if !c.IsValid() {
		return nil, curated.Errorf(NoMemcard)
	}
	if index < 0 || index >= DirLen || offset < 0 || length < 0 {
		return nil, curated.Errorf(Fail, index)
	}

	entry := &c.directories[c.activeDirectory].Entries[index]
	if entry.IsSentinel() {
		return nil, curated.Errorf(Fail, index)
	}

	bat := &c.bats[c.activeBat]
	maxBlock := uint16(TotalBlocks(c.sizeMbits))

	block := entry.FirstBlock
	for offset >= BlockSize {
		block = bat.GetNextBlock(block)
		if block < FirstDataBlock || block >= maxBlock {
			return nil, curated.Errorf(Fail, index)
		}
		offset -= BlockSize
	}

	out := make([]byte, 0, length)
	for length > 0 {
		if block < FirstDataBlock || block >= maxBlock {
			return nil, curated.Errorf(Fail, index)
		}

		n := min(BlockSize-offset, length)
		out = append(out, c.data[block-FirstDataBlock][offset:offset+n]...)
		length -= n
		offset = 0

		if length > 0 {
			block = bat.GetNextBlock(block)
		}
	}

	return out, nil
}

// ImportFile writes the save to the card. The save is placed in the first
// free directory entry and its blocks are allocated from the BAT, starting
// after the most recently allocated block.
func (c *Card) ImportFile(sf SaveFile) error {
	if !c.IsValid() {
		return curated.Errorf(NoMemcard)
	}

	dir := c.directories[c.activeDirectory]
	bat := c.bats[c.activeBat]

	if dir.NumFiles() >= DirLen {
		return curated.Errorf(OutOfDirEntries)
	}

	need := sf.Entry.BlockCount
	if need == 0 || int(need) != len(sf.Blocks) {
		return curated.Errorf(InvalidSaveFile, len(sf.Blocks), need)
	}
	if bat.FreeBlocks < need {
		return curated.Errorf(OutOfBlocks, need, bat.FreeBlocks)
	}
	if titlePresent(&dir, &sf.Entry) {
		return curated.Errorf(TitlePresent, sf.Entry.GCIFilename())
	}

	maxBlock := uint16(TotalBlocks(c.sizeMbits))

	first := bat.NextFreeBlock(maxBlock, bat.LastAllocatedBlock)
	if first == NoFreeBlock {
		return curated.Errorf(OutOfBlocks, need, bat.FreeBlocks)
	}

	slot := dir.FreeEntry()
	if slot < 0 {
		return curated.Errorf(OutOfDirEntries)
	}

	entry := sf.Entry
	entry.FirstBlock = first
	entry.CopyCounter++

	blocks := make([]Block, len(sf.Blocks))
	copy(blocks, sf.Blocks)

	if c.fixup != nil {
		if c.fixup(&c.header, &entry, blocks) {
			logger.Logf(logger.Allow, "memcard", "applied fixup to %s", entry.GCIFilename())
		}
	}

	placed := make([]uint16, need)
	current := first
	for i := range placed {
		if current == NoFreeBlock || current >= maxBlock {
			return curated.Errorf(OutOfBlocks, need, bat.FreeBlocks)
		}
		placed[i] = current

		// mark the block as used before searching so that the search does
		// not return it again
		bat.setLink(current, Link{Kind: LinkTerminal})
		bat.LastAllocatedBlock = current

		if i < len(placed)-1 {
			next := bat.NextFreeBlock(maxBlock, current+1)
			bat.setLink(current, Link{Kind: LinkNext, Next: next})
			current = next
		}
	}

	bat.FreeBlocks -= need
	bat.UpdateCounter++
	dir.Entries[slot] = entry
	dir.UpdateCounter++

	for i, b := range placed {
		c.data[b-FirstDataBlock] = blocks[i]
	}

	c.UpdateDirectory(dir)
	c.UpdateBat(bat)
	c.FixChecksums()

	return nil
}

// RemoveFile deletes the save at index and frees its blocks. The data in the
// freed blocks is left in place.
func (c *Card) RemoveFile(index int) error {
	if !c.IsValid() {
		return curated.Errorf(NoMemcard)
	}
	if index < 0 || index >= DirLen {
		return curated.Errorf(DeleteFail, index)
	}

	dir := c.directories[c.activeDirectory]
	bat := c.bats[c.activeBat]

	entry := dir.Entries[index]
	if entry.IsSentinel() {
		return curated.Errorf(DeleteFail, index)
	}

	if !bat.ClearBlocks(entry.FirstBlock, entry.BlockCount) {
		return curated.Errorf(DeleteFail, index)
	}
	bat.UpdateCounter++

	dir.Entries[index] = SentinelEntry()
	dir.UpdateCounter++

	c.UpdateDirectory(dir)
	c.UpdateBat(bat)
	c.FixChecksums()

	return nil
}

// ExportFile returns the save at index.
func (c *Card) ExportFile(index int) (SaveFile, error) {
	if !c.IsValid() {
		return SaveFile{}, curated.Errorf(NoMemcard)
	}
	if index < 0 || index >= DirLen {
		return SaveFile{}, curated.Errorf(InvalidIndex, index)
	}

	entry := c.directories[c.activeDirectory].Entries[index]
	if entry.IsSentinel() {
		return SaveFile{}, curated.Errorf(Fail, index)
	}

	chain, ok := c.bats[c.activeBat].Chain(entry.FirstBlock, entry.BlockCount)
	if !ok {
		return SaveFile{}, curated.Errorf(Fail, index)
	}

	maxBlock := uint16(TotalBlocks(c.sizeMbits))

	sf := SaveFile{
		Entry:  entry,
		Blocks: make([]Block, len(chain)),
	}
	for i, b := range chain {
		if b >= maxBlock {
			return SaveFile{}, curated.Errorf(Fail, index)
		}
		sf.Blocks[i] = c.data[b-FirstDataBlock]
	}

	return sf, nil
}
