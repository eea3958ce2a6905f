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
	"encoding/binary"
	"fmt"
)

// BAT field offsets.
const (
	batChecksum           = 0x0000
	batChecksumInv        = 0x0002
	batUpdateCounter      = 0x0004
	batFreeBlocks         = 0x0006
	batLastAllocatedBlock = 0x0008
	batMap                = 0x000a
)

// raw values of a BAT map entry as stored on the card.
const (
	rawFree     uint16 = 0x0000
	rawTerminal uint16 = 0xffff
)

// NoFreeBlock is returned by NextFreeBlock() when there are no free blocks.
const NoFreeBlock uint16 = 0xffff

// LinkKind is the type of a BAT map entry.
type LinkKind uint8

// List of valid LinkKind values.
const (
	LinkFree LinkKind = iota
	LinkTerminal
	LinkNext
)

// Link is one entry in the BAT map. For LinkNext entries, Next is the card
// block index of the next block in the chain.
type Link struct {
	Kind LinkKind
	Next uint16
}

func (l Link) String() string {
	switch l.Kind {
	case LinkFree:
		return "free"
	case LinkTerminal:
		return "end"
	}
	return fmt.Sprintf("%d", l.Next)
}

func (l Link) raw() uint16 {
	switch l.Kind {
	case LinkFree:
		return rawFree
	case LinkTerminal:
		return rawTerminal
	}
	return l.Next
}

func linkFromRaw(v uint16) Link {
	switch v {
	case rawFree:
		return Link{Kind: LinkFree}
	case rawTerminal:
		return Link{Kind: LinkTerminal}
	}
	return Link{Kind: LinkNext, Next: v}
}

// BlockAlloc is the block allocation table. The map has one entry for every
// possible data block, indexed from the first data block.
type BlockAlloc struct {
	Checksum           uint16
	ChecksumInv        uint16
	UpdateCounter      uint16
	FreeBlocks         uint16
	LastAllocatedBlock uint16
	Map                [BATSize]Link
}

// NewBlockAlloc returns an empty BAT for a card of the given size.
func NewBlockAlloc(sizeMbits uint16) BlockAlloc {
	bat := BlockAlloc{
		FreeBlocks:         uint16(DataBlocks(sizeMbits)),
		LastAllocatedBlock: FirstDataBlock - 1,
	}
	bat.FixChecksums()
	return bat
}

// MarshalBlock writes the BAT to a block.
func (bat *BlockAlloc) MarshalBlock(b *Block) {
	binary.BigEndian.PutUint16(b[batChecksum:], bat.Checksum)
	binary.BigEndian.PutUint16(b[batChecksumInv:], bat.ChecksumInv)
	binary.BigEndian.PutUint16(b[batUpdateCounter:], bat.UpdateCounter)
	binary.BigEndian.PutUint16(b[batFreeBlocks:], bat.FreeBlocks)
	binary.BigEndian.PutUint16(b[batLastAllocatedBlock:], bat.LastAllocatedBlock)
	for i, l := range bat.Map {
		binary.BigEndian.PutUint16(b[batMap+i*2:], l.raw())
	}
}

// UnmarshalBlock reads the BAT from a block.
func (bat *BlockAlloc) UnmarshalBlock(b *Block) {
	bat.Checksum = binary.BigEndian.Uint16(b[batChecksum:])
	bat.ChecksumInv = binary.BigEndian.Uint16(b[batChecksumInv:])
	bat.UpdateCounter = binary.BigEndian.Uint16(b[batUpdateCounter:])
	bat.FreeBlocks = binary.BigEndian.Uint16(b[batFreeBlocks:])
	bat.LastAllocatedBlock = binary.BigEndian.Uint16(b[batLastAllocatedBlock:])
	for i := range bat.Map {
		bat.Map[i] = linkFromRaw(binary.BigEndian.Uint16(b[batMap+i*2:]))
	}
}

// CalculateChecksums over the checksummed region of the BAT.
func (bat *BlockAlloc) CalculateChecksums() (uint16, uint16) {
	var b Block
	bat.MarshalBlock(&b)
	return CalculateChecksums(b[batUpdateCounter:])
}

// FixChecksums updates the stored checksums.
func (bat *BlockAlloc) FixChecksums() {
	bat.Checksum, bat.ChecksumInv = bat.CalculateChecksums()
}

// inRange returns true if block is a data block that can be addressed by the
// BAT map.
func inRange(block uint16) bool {
	return block >= FirstDataBlock && int(block) < FirstDataBlock+BATSize
}

// Link returns the map entry for the block. Blocks outside of the map are
// reported as free.
func (bat *BlockAlloc) Link(block uint16) Link {
	if !inRange(block) {
		return Link{Kind: LinkFree}
	}
	return bat.Map[block-FirstDataBlock]
}

func (bat *BlockAlloc) setLink(block uint16, l Link) {
	bat.Map[block-FirstDataBlock] = l
}

// GetNextBlock returns the raw map entry for the block: zero for a free
// block, 0xffff for the last block in a chain, or the index of the next
// block. Blocks outside of the map return zero.
func (bat *BlockAlloc) GetNextBlock(block uint16) uint16 {
	return bat.Link(block).raw()
}

// NextFreeBlock searches for a free block starting at startingBlock and
// ending before maxBlock. If there is no free block in that range the search
// wraps around and continues from the first data block. Returns NoFreeBlock
// if there are no free blocks.
func (bat *BlockAlloc) NextFreeBlock(maxBlock uint16, startingBlock uint16) uint16 {
	if bat.FreeBlocks == 0 {
		return NoFreeBlock
	}

	startingBlock = clampBlock(startingBlock)
	maxBlock = clampBlock(maxBlock)
	if startingBlock > maxBlock {
		startingBlock = maxBlock
	}

	for i := startingBlock; i < maxBlock; i++ {
		if bat.Map[i-FirstDataBlock].Kind == LinkFree {
			return i
		}
	}
	for i := uint16(FirstDataBlock); i < startingBlock; i++ {
		if bat.Map[i-FirstDataBlock].Kind == LinkFree {
			return i
		}
	}

	return NoFreeBlock
}

func clampBlock(block uint16) uint16 {
	if block < FirstDataBlock {
		return FirstDataBlock
	}
	if block > FirstDataBlock+BATSize {
		return FirstDataBlock + BATSize
	}
	return block
}

// AssignBlocksContiguous claims length blocks immediately after the last
// allocated block and chains them together. Returns the first block of the
// chain.
//
// The only check made is that the number of free blocks is at least length.
// The claimed blocks are not checked individually. This is how the BAT is
// built for a virtual card, where every allocation is contiguous.
func (bat *BlockAlloc) AssignBlocksContiguous(length uint16) (uint16, bool) {
	if length == 0 || length > bat.FreeBlocks {
		return 0, false
	}

	starting := bat.LastAllocatedBlock + 1
	if !inRange(starting) || !inRange(starting+length-1) {
		return 0, false
	}

	current := starting
	for current-starting+1 < length {
		bat.setLink(current, Link{Kind: LinkNext, Next: current + 1})
		current++
	}
	bat.setLink(current, Link{Kind: LinkTerminal})

	bat.LastAllocatedBlock = current
	bat.FreeBlocks -= length
	bat.FixChecksums()

	return starting, true
}

// ClearBlocks frees the chain beginning at startingBlock. The chain must be
// exactly count blocks long, otherwise nothing is changed and false is
// returned.
func (bat *BlockAlloc) ClearBlocks(startingBlock uint16, count uint16) bool {
	blocks := make([]uint16, 0, count)

	current := startingBlock
	for current != rawTerminal && current != rawFree {
		// a chain longer than the map must contain a loop
		if len(blocks) > BATSize {
			return false
		}
		blocks = append(blocks, current)
		current = bat.GetNextBlock(current)
	}

	if current == rawFree || len(blocks) != int(count) {
		return false
	}

	for _, b := range blocks {
		bat.setLink(b, Link{Kind: LinkFree})
	}
	bat.FreeBlocks += count

	return true
}

// Chain follows the chain from firstBlock and returns the blocks visited. The
// chain must be exactly count blocks long and end with a terminal entry.
func (bat *BlockAlloc) Chain(firstBlock uint16, count uint16) ([]uint16, bool) {
	blocks := make([]uint16, 0, count)

	current := firstBlock
	for {
		if !inRange(current) {
			return blocks, false
		}

		blocks = append(blocks, current)
		if len(blocks) > int(count) {
			return blocks, false
		}

		l := bat.Map[current-FirstDataBlock]
		switch l.Kind {
		case LinkTerminal:
			return blocks, len(blocks) == int(count)
		case LinkFree:
			return blocks, false
		}

		current = l.Next
	}
}

// CountFree returns the number of free entries in the part of the map used by
// a card of the given size.
func (bat *BlockAlloc) CountFree(sizeMbits uint16) int {
	n := 0
	for i := 0; i < DataBlocks(sizeMbits) && i < BATSize; i++ {
		if bat.Map[i].Kind == LinkFree {
			n++
		}
	}
	return n
}

// CheckForErrors validates the BAT for a card of the given size.
func (bat *BlockAlloc) CheckForErrors(sizeMbits uint16) Issues {
	var issues Issues

	csum, inv := bat.CalculateChecksums()
	if bat.Checksum != csum || bat.ChecksumInv != inv {
		issues |= InvalidChecksum
	}

	available := DataBlocks(sizeMbits)
	if !IsValidSize(sizeMbits) || available > BATSize {
		issues |= BadCardSize
		return issues
	}

	if bat.CountFree(sizeMbits) != int(bat.FreeBlocks) {
		issues |= FreeBlockMismatch
	}

	// entries beyond the end of the card map to nothing and must be empty
	for i := available; i < BATSize; i++ {
		if bat.Map[i].Kind != LinkFree {
			issues |= DataInUnusedArea
			break
		}
	}

	return issues
}
