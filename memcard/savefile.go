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

// SaveFile is a directory entry and the blocks of the save, independent of
// any card.
type SaveFile struct {
	Entry  DirEntry
	Blocks []Block
}

// Clone returns a deep copy of the save file.
func (sf *SaveFile) Clone() SaveFile {
	cp := SaveFile{
		Entry:  sf.Entry,
		Blocks: make([]Block, len(sf.Blocks)),
	}
	copy(cp.Blocks, sf.Blocks)
	return cp
}

// Fixup functions rewrite a save before it is written to a card. The header
// is the header of the destination card. The function should return true if
// the save was changed.
type Fixup func(hdr *Header, entry *DirEntry, blocks []Block) bool
