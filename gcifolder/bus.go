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
	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/memcard/savefile"
)

// blockRef locates a card block within a save.
type blockRef struct {
	save *save

	// position of the block in the save
	pos int

	// copies of save fields needed to load the save data outside of the
	// critical section
	filename   string
	blockCount int
}

// blockIndex maps card blocks to saves. it is never changed once published.
type blockIndex struct {
	refs []blockRef
}

func (idx *blockIndex) lookup(block uint16) (blockRef, bool) {
	if idx == nil || int(block) >= len(idx.refs) || idx.refs[block].save == nil {
		return blockRef{}, false
	}
	return idx.refs[block], true
}

// setUsedBlocks walks the chain for the save in the BAT. the chain must agree
// with the block count of the save.
func (c *Card) setUsedBlocks(s *save, bat *memcard.BlockAlloc) bool {
	used, ok := bat.Chain(s.entry.FirstBlock, s.entry.BlockCount)
	if !ok {
		logger.Logf(c.env, "gcifolder", "block chain for %s does not match block count", s.entry.GCIFilename())
		s.usedBlocks = nil
		return false
	}
	s.usedBlocks = used
	return true
}

// rebuildIndex must be called with the critical section locked.
func (c *Card) rebuildIndex() {
	_, bat := c.activeMeta()

	idx := &blockIndex{
		refs: make([]blockRef, c.maxBlock),
	}

	for _, s := range c.saves {
		if s == nil || s.entry.IsSentinel() {
			continue
		}
		if len(s.usedBlocks) == 0 {
			c.setUsedBlocks(s, &bat)
		}
		for pos, b := range s.usedBlocks {
			if b >= c.maxBlock {
				continue
			}
			idx.refs[b] = blockRef{
				save:       s,
				pos:        pos,
				filename:   s.filename,
				blockCount: int(s.entry.BlockCount),
			}
		}
	}

	c.index.Store(idx)
}

// resident returns the save data for the save referred to by ref, loading it
// from disk if necessary. Saves that have no file are given blank save data.
func (c *Card) resident(ref blockRef) []memcard.Block {
	if p := ref.save.blocks.Load(); p != nil {
		return *p
	}

	blocks := make([]memcard.Block, ref.blockCount)
	for i := range blocks {
		blocks[i].Erase()
	}

	if ref.filename != "" {
		sf, err := savefile.Load(ref.filename)
		if err != nil {
			logger.Log(c.env, "gcifolder", err.Error())
		} else {
			copy(blocks, sf.Blocks)
		}
	}

	if ref.save.blocks.CompareAndSwap(nil, &blocks) {
		return blocks
	}
	return *ref.save.blocks.Load()
}

// dataBlock returns the save data for the block or nil if the block is not
// used by any save.
func (c *Card) dataBlock(block uint16) *memcard.Block {
	ref, ok := c.index.Load().lookup(block)
	if !ok {
		return nil
	}
	blocks := c.resident(ref)
	if ref.pos >= len(blocks) {
		return nil
	}
	return &blocks[ref.pos]
}

// split an address and length into the block, the offset into the block
// and the number of bytes that fall into the block. the block is not
// limited to the size of the card.
func split(address uint32, length int) (uint32, int, int) {
	block := address / memcard.BlockSize
	offset := int(address % memcard.BlockSize)
	n := min(length, memcard.BlockSize-offset)
	return block, offset, n
}

// Read implements the memcard.Device interface. Read does not wait for
// writes to complete.
func (c *Card) Read(address uint32, length int) []byte {
	out := make([]byte, 0, length)

	for length > 0 {
		block, offset, n := split(address, length)

		var src []byte
		if block < memcard.NumMetadataBlocks {
			src = c.meta[block][offset : offset+n]
		} else if block < uint32(c.maxBlock) {
			if blk := c.dataBlock(uint16(block)); blk != nil {
				src = blk[offset : offset+n]
			}
		}

		if src != nil {
			out = append(out, src...)
		} else {
			for i := 0; i < n; i++ {
				out = append(out, 0xff)
			}
		}

		address += uint32(n)
		length -= n
	}

	return out
}

// the offset in a directory block of the area after the last directory
// entry. the card writes this area last when updating the directory.
const directoryTail = memcard.DirLen * memcard.DirEntrySize

// Write implements the memcard.Device interface.
func (c *Card) Write(address uint32, data []byte) int {
	c.crit.Lock()
	defer c.crit.Unlock()

	var written int

	for len(data) > 0 {
		block, offset, n := split(address, len(data))

		switch block {
		case memcard.HeaderBlock, memcard.BATBlockA, memcard.BATBlockB:
			copy(c.meta[block][offset:], data[:n])
			written += n

		case memcard.DirectoryBlockA, memcard.DirectoryBlockB:
			copy(c.meta[block][offset:], data[:n])
			written += n

			// the update counter and checksums are at the end of the
			// block. a write there completes the update of the directory
			if offset+n > directoryTail {
				c.syncSaves()
			}

		default:
			if block >= uint32(c.maxBlock) {
				logger.Logf(c.env, "gcifolder", "write beyond end of card (%#x)", address)
			} else if c.writeData(uint16(block), offset, data[:n]) {
				written += n
			}
		}

		if offset+n == memcard.BlockSize {
			c.flush.Trigger()
		}

		address += uint32(n)
		data = data[n:]
	}

	return written
}

// writeData must be called with the critical section locked.
func (c *Card) writeData(block uint16, offset int, data []byte) bool {
	ref, ok := c.index.Load().lookup(block)
	if !ok {
		// the BAT may have changed since the index was built
		c.rebuildIndex()
		ref, ok = c.index.Load().lookup(block)
		if !ok {
			logger.Logf(c.env, "gcifolder", "write to unallocated block %d", block)
			return false
		}
	}

	blocks := c.resident(ref)
	if ref.pos >= len(blocks) {
		return false
	}
	copy(blocks[ref.pos][offset:], data)
	ref.save.dirty = true

	return true
}

// ClearBlock implements the memcard.Device interface. The block is filled
// with zero bytes.
func (c *Card) ClearBlock(address uint32) {
	if address%memcard.BlockSize != 0 {
		logger.Logf(c.env, "gcifolder", "clear block with unaligned address %#x", address)
		return
	}

	c.crit.Lock()
	defer c.crit.Unlock()

	block := address / memcard.BlockSize

	if block < memcard.NumMetadataBlocks {
		// a cleared directory is not synced. the console clears a block
		// before writing it and the directory is synced when the write
		// reaches the end of the block. an all zero directory would
		// otherwise be seen as 127 saves
		clear(c.meta[block][:])
		c.flush.Trigger()
		return
	}

	if block >= uint32(c.maxBlock) {
		logger.Logf(c.env, "gcifolder", "clear block beyond end of card (%#x)", address)
		return
	}

	var zero memcard.Block
	if c.writeData(uint16(block), 0, zero[:]) {
		c.flush.Trigger()
	}
}
