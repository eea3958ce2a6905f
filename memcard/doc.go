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

// Package memcard implements the GameCube memory card image format.
//
// A card image is a sequence of 8192 byte blocks. The first five blocks hold
// the card metadata:
//
//	block 0	header
//	block 1	directory (copy A)
//	block 2	directory (copy B)
//	block 3	block allocation table (copy A)
//	block 4	block allocation table (copy B)
//
// The remaining blocks hold save data. Each save file occupies a chain of
// data blocks. The chain is recorded in the block allocation table (BAT): the
// BAT entry for a block either points to the next block in the chain or marks
// the end of the chain.
//
// The directory and the BAT are both kept in two copies. Only one copy of
// each is active at any time, the one with the higher update counter. Changes
// are always made to the inactive copy, which then becomes the active copy.
// If the card is interrupted during an update the previous copy is still
// intact.
//
// The Card type represents an entire card image. Card images are opened with
// Open() or OpenFile(). A blank card is created with Format(). Once opened, a
// card can be queried and save files imported, exported and removed.
//
// Save files, independent of any card, are represented by the SaveFile type.
// The savefile package contains the codecs for the save file interchange
// formats.
//
// Some titles store the serial number of the card inside the save data and
// refuse to load a save copied from another card. A Fixup function can be
// registered with Card.SetFixup() to rewrite such saves when they are
// imported. The fixups package contains the fixups for known titles.
package memcard
