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

// Package fixups rewrites saves for titles that tie their saves to the card
// they were created on.
//
// These titles store the card serial number inside the save data, protected
// by a checksum. When such a save is moved to another card the serial number
// is replaced with the serial number of the new card and the checksum is
// recalculated.
//
// The Apply() function is suitable for use with memcard.Card.SetFixup().
package fixups

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/memcard"
)

const (
	fzeroFilename = "f_zero.dat"
	psoFilename   = "PSO_SYSTEM"
	pso3Filename  = "PSO3_SYSTEM"
)

// HasCopyProtection returns true if the save is for a title that requires
// a fixup when moved between cards.
func HasCopyProtection(entry *memcard.DirEntry) bool {
	switch string(entry.FilenameBytes()) {
	case fzeroFilename, psoFilename, pso3Filename:
		return true
	}
	return false
}

// Apply the fixup for the save, if there is one. Returns true if the save
// data was changed.
func Apply(hdr *memcard.Header, entry *memcard.DirEntry, blocks []memcard.Block) bool {
	name := entry.FilenameBytes()

	var changed bool
	switch {
	case bytes.Equal(name, []byte(fzeroFilename)):
		changed = fzero(hdr, blocks)
	case bytes.Equal(name, []byte(psoFilename)):
		changed = pso(hdr, blocks, 0x00)
	case bytes.Equal(name, []byte(pso3Filename)):
		changed = pso(hdr, blocks, 0x10)
	}

	if changed {
		logger.Logf(logger.Allow, "fixups", "%s: serial number and checksum updated", name)
	}

	return changed
}

// the f-zero save is exactly four blocks. the checksum covers all of it
// except for the checksum itself.
func fzero(hdr *memcard.Header, blocks []memcard.Block) bool {
	if len(blocks) != 4 {
		return false
	}

	serial1, serial2 := hdr.CalculateSerial()

	binary.BigEndian.PutUint16(blocks[1][0x0066:], uint16(serial1>>16))
	binary.BigEndian.PutUint16(blocks[3][0x1580:], uint16(serial2>>16))
	binary.BigEndian.PutUint16(blocks[1][0x0060:], uint16(serial1))
	binary.BigEndian.PutUint16(blocks[1][0x0200:], uint16(serial2))

	crc := uint16(0xffff)
	for i := 0x02; i < 4*memcard.BlockSize; i++ {
		crc = crc16Update(crc, blocks[i/memcard.BlockSize][i%memcard.BlockSize])
	}
	binary.BigEndian.PutUint16(blocks[0][0x0000:], ^crc)

	return true
}

// crc16Update adds one byte to a reflected CRC-16/CCITT checksum.
func crc16Update(crc uint16, b byte) uint16 {
	crc ^= uint16(b)
	for i := 0; i < 8; i++ {
		if crc&1 == 1 {
			crc = (crc >> 1) ^ 0x8408
		} else {
			crc >>= 1
		}
	}
	return crc
}

// the system file for PSO episodes I, II and III. the checksummed area in the
// episode III file is slightly longer.
func pso(hdr *memcard.Header, blocks []memcard.Block, extent int) bool {
	if len(blocks) < 2 {
		return false
	}

	serial1, serial2 := hdr.CalculateSerial()

	binary.BigEndian.PutUint32(blocks[1][0x0158:], serial1)
	binary.BigEndian.PutUint32(blocks[1][0x015c:], serial2)

	// the checksum is a standard CRC-32 with an unusual seed
	crc := crc32.Update(^uint32(0xdebb20e3), crc32.IEEETable, blocks[1][0x004c:0x0164+extent])
	binary.BigEndian.PutUint32(blocks[1][0x0048:], crc)

	return true
}
