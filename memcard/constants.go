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

// BlockSize is the size of a single block on the card.
const BlockSize = 0x2000

// Block is the unit of storage on the card.
type Block [BlockSize]byte

// Erase fills the block with 0xff, the value of erased flash memory.
func (b *Block) Erase() {
	for i := range b {
		b[i] = 0xff
	}
}

// the number of blocks reserved for the header, directories and BATs.
const (
	NumMetadataBlocks = 5
	FirstDataBlock    = NumMetadataBlocks
)

// the index of each metadata block.
const (
	HeaderBlock = iota
	DirectoryBlockA
	DirectoryBlockB
	BATBlockA
	BATBlockB
)

// DirLen is the number of entries in a directory.
const DirLen = 127

// DirEntrySize is the size of one directory entry in bytes.
const DirEntrySize = 0x40

// BATSize is the number of entries in the block allocation table map. This
// is more than any card needs: the largest card has 2043 data blocks.
const BATSize = 0xffb

// Nominal card sizes in megabits. Cards are more commonly known by the number
// of blocks available for saves, which is how the constants are named.
const (
	MemCard59Mb   uint16 = 0x04
	MemCard123Mb  uint16 = 0x08
	MemCard251Mb  uint16 = 0x10
	MemCard507Mb  uint16 = 0x20
	MemCard1019Mb uint16 = 0x40
	MemCard2043Mb uint16 = 0x80
)

// MbitToBlocks is the number of blocks in one megabit.
const MbitToBlocks = (1024 * 1024) / (8 * BlockSize)

// MbitSize is the number of bytes in one megabit.
const MbitSize = 1024 * 1024 / 8

// SupportedSizes lists every supported card size in megabits.
var SupportedSizes = []uint16{
	MemCard59Mb, MemCard123Mb, MemCard251Mb, MemCard507Mb, MemCard1019Mb, MemCard2043Mb,
}

// IsValidSize returns true if the card size (in megabits) is supported.
func IsValidSize(sizeMbits uint16) bool {
	for _, s := range SupportedSizes {
		if s == sizeMbits {
			return true
		}
	}
	return false
}

// TotalBlocks returns the number of blocks on a card of the given size,
// including the metadata blocks.
func TotalBlocks(sizeMbits uint16) int {
	return int(sizeMbits) * MbitToBlocks
}

// DataBlocks returns the number of blocks available for save data on a card
// of the given size.
func DataBlocks(sizeMbits uint16) int {
	return TotalBlocks(sizeMbits) - NumMetadataBlocks
}

// ImageSize returns the size in bytes of a card image of the given size.
func ImageSize(sizeMbits uint16) int {
	return int(sizeMbits) * MbitSize
}

// sizeFromImageLength returns the card size in megabits for an image of the
// given length. Returns false if the length is not a supported size.
func sizeFromImageLength(n int) (uint16, bool) {
	if n%MbitSize != 0 {
		return 0, false
	}
	sizeMbits := n / MbitSize
	if sizeMbits > 0xffff || !IsValidSize(uint16(sizeMbits)) {
		return 0, false
	}
	return uint16(sizeMbits), true
}
