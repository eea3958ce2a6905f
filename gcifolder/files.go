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

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/memcard"
)

// NumFiles returns the number of saves in the active directory.
func (c *Card) NumFiles() int {
	c.crit.Lock()
	defer c.crit.Unlock()

	dir, _ := c.activeMeta()
	return dir.NumFiles()
}

// Entry returns the directory entry in the active directory at index.
func (c *Card) Entry(index int) (memcard.DirEntry, error) {
	if index < 0 || index >= memcard.DirLen {
		return memcard.DirEntry{}, curated.Errorf(memcard.InvalidIndex, index)
	}

	c.crit.Lock()
	defer c.crit.Unlock()

	dir, _ := c.activeMeta()
	return dir.Entries[index], nil
}

// ExportFile returns the save at index in the active directory, as it is
// seen on the bus.
func (c *Card) ExportFile(index int) (memcard.SaveFile, error) {
	if index < 0 || index >= memcard.DirLen {
		return memcard.SaveFile{}, curated.Errorf(memcard.InvalidIndex, index)
	}

	c.crit.Lock()
	defer c.crit.Unlock()

	dir, bat := c.activeMeta()

	entry := dir.Entries[index]
	if entry.IsSentinel() {
		return memcard.SaveFile{}, curated.Errorf(memcard.Fail, index)
	}

	chain, ok := bat.Chain(entry.FirstBlock, entry.BlockCount)
	if !ok {
		return memcard.SaveFile{}, curated.Errorf(memcard.Fail, index)
	}

	sf := memcard.SaveFile{
		Entry:  entry,
		Blocks: make([]memcard.Block, len(chain)),
	}
	for i, b := range chain {
		blk := c.dataBlock(b)
		if blk == nil {
			return memcard.SaveFile{}, curated.Errorf(memcard.Fail, index)
		}
		sf.Blocks[i] = *blk
	}

	return sf, nil
}

// Image returns the entire card as a card image, suitable for memcard.Open().
func (c *Card) Image() []byte {
	var b bytes.Buffer
	b.Grow(memcard.ImageSize(c.sizeMbits))
	for blk := 0; blk < int(c.maxBlock); blk++ {
		b.Write(c.Read(uint32(blk*memcard.BlockSize), memcard.BlockSize))
	}
	return b.Bytes()
}
