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

import "encoding/binary"

// directory field offsets.
const (
	dirPadding       = DirLen * DirEntrySize
	dirUpdateCounter = 0x1ffa
	dirChecksum      = 0x1ffc
	dirChecksumInv   = 0x1ffe
)

// Directory is the table of save files on the card.
type Directory struct {
	Entries [DirLen]DirEntry

	// should always be filled with 0xff
	Padding [dirUpdateCounter - dirPadding]byte

	UpdateCounter uint16
	Checksum      uint16
	ChecksumInv   uint16
}

// NewDirectory returns an empty directory with correct checksums.
func NewDirectory() Directory {
	var d Directory
	for i := range d.Entries {
		d.Entries[i] = SentinelEntry()
	}
	for i := range d.Padding {
		d.Padding[i] = 0xff
	}
	d.FixChecksums()
	return d
}

// MarshalBlock writes the directory to a block.
func (d *Directory) MarshalBlock(b *Block) {
	for i := range d.Entries {
		d.Entries[i].Marshal(b[i*DirEntrySize:])
	}
	copy(b[dirPadding:], d.Padding[:])
	binary.BigEndian.PutUint16(b[dirUpdateCounter:], d.UpdateCounter)
	binary.BigEndian.PutUint16(b[dirChecksum:], d.Checksum)
	binary.BigEndian.PutUint16(b[dirChecksumInv:], d.ChecksumInv)
}

// UnmarshalBlock reads the directory from a block.
func (d *Directory) UnmarshalBlock(b *Block) {
	for i := range d.Entries {
		d.Entries[i].Unmarshal(b[i*DirEntrySize:])
	}
	copy(d.Padding[:], b[dirPadding:])
	d.UpdateCounter = binary.BigEndian.Uint16(b[dirUpdateCounter:])
	d.Checksum = binary.BigEndian.Uint16(b[dirChecksum:])
	d.ChecksumInv = binary.BigEndian.Uint16(b[dirChecksumInv:])
}

// Replace the entry at index. The update counter is not changed; the caller
// is responsible for that.
func (d *Directory) Replace(entry DirEntry, index int) {
	d.Entries[index] = entry
	d.FixChecksums()
}

// CalculateChecksums over the checksummed region of the directory.
func (d *Directory) CalculateChecksums() (uint16, uint16) {
	var b Block
	d.MarshalBlock(&b)
	return CalculateChecksums(b[:dirChecksum])
}

// FixChecksums updates the stored checksums.
func (d *Directory) FixChecksums() {
	d.Checksum, d.ChecksumInv = d.CalculateChecksums()
}

// NumFiles returns the number of used entries.
func (d *Directory) NumFiles() int {
	n := 0
	for i := range d.Entries {
		if !d.Entries[i].IsSentinel() {
			n++
		}
	}
	return n
}

// FreeEntry returns the index of the first unused entry. Returns -1 if there
// are no unused entries.
func (d *Directory) FreeEntry() int {
	for i := range d.Entries {
		if d.Entries[i].IsSentinel() {
			return i
		}
	}
	return -1
}

// CheckForErrors validates the directory in isolation.
func (d *Directory) CheckForErrors() Issues {
	var issues Issues

	csum, inv := d.CalculateChecksums()
	if d.Checksum != csum || d.ChecksumInv != inv {
		issues |= InvalidChecksum
	}

	if !allFF(d.Padding[:]) {
		issues |= DataInUnusedArea
	}

	return issues
}

// CheckForErrorsWithBat validates the directory and also checks that the
// chain of every save in the BAT has the length recorded in the directory.
func (d *Directory) CheckForErrorsWithBat(bat *BlockAlloc) Issues {
	issues := d.CheckForErrors()

	for i := range d.Entries {
		e := &d.Entries[i]
		if e.IsSentinel() {
			continue
		}
		if _, ok := bat.Chain(e.FirstBlock, e.BlockCount); !ok {
			issues |= DirBatInconsistent
		}
	}

	return issues
}
