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
	"crypto/sha256"
	"encoding/binary"
	"path/filepath"
	"time"
)

// header field offsets.
const (
	hdrSerial        = 0x0000
	hdrFormatTime    = 0x000c
	hdrSRAMBias      = 0x0014
	hdrSRAMLanguage  = 0x0018
	hdrDTVStatus     = 0x001c
	hdrDeviceID      = 0x0020
	hdrSizeMbits     = 0x0022
	hdrEncoding      = 0x0024
	hdrUnused1       = 0x0026
	hdrUpdateCounter = 0x01fa
	hdrChecksum      = 0x01fc
	hdrChecksumInv   = 0x01fe
	hdrUnused2       = 0x0200
)

// Encoding values for the Header.Encoding field.
const (
	EncodingWindows1252 uint16 = 0
	EncodingShiftJIS    uint16 = 1
)

// Header is the first block of a card. It is written when the card is
// formatted and never changed afterwards.
type Header struct {
	// the serial is derived from the flash ID of the console and the format
	// time
	Serial       [12]byte
	FormatTime   uint64
	SRAMBias     uint32
	SRAMLanguage uint32
	DTVStatus    [4]byte

	// 0 if formatted in slot A or 1 if formatted in slot B
	DeviceID uint16

	SizeMbits uint16
	Encoding  uint16

	// should always be filled with 0xff
	Unused1 [hdrUpdateCounter - hdrUnused1]byte

	UpdateCounter uint16
	Checksum      uint16
	ChecksumInv   uint16

	// should always be filled with 0xff
	Unused2 [BlockSize - hdrUnused2]byte
}

// FormatParams are the values required to create a new card Header.
type FormatParams struct {
	FlashID    [12]byte
	SizeMbits  uint16
	ShiftJIS   bool
	RTCBias    uint32
	Language   uint32
	FormatTime uint64
}

// FlashID returns a flash ID for a card stored at the named path. The same
// path always produces the same ID.
func FlashID(path string) [12]byte {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))

	var id [12]byte
	copy(id[:], sum[:])
	return id
}

// the console timebase runs at 40.5MHz and counts from the start of 2000.
const timebaseFrequency = 40500000

var consoleEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// FormatTime converts a wall clock time to the console timebase. Times before
// the console epoch are returned as zero.
func FormatTime(t time.Time) uint64 {
	d := t.Sub(consoleEpoch)
	if d < 0 {
		return 0
	}
	return uint64(d/time.Second)*timebaseFrequency + uint64(d%time.Second)*timebaseFrequency/uint64(time.Second)
}

// NewHeader creates a Header as the console would when formatting a card.
func NewHeader(params FormatParams) Header {
	var hdr Header

	for i := range hdr.Unused1 {
		hdr.Unused1[i] = 0xff
	}
	for i := range hdr.Unused2 {
		hdr.Unused2[i] = 0xff
	}

	hdr.SizeMbits = params.SizeMbits
	if params.ShiftJIS {
		hdr.Encoding = EncodingShiftJIS
	}
	hdr.FormatTime = params.FormatTime

	// the serial is the flash ID scrambled with a linear congruential
	// generator seeded with the format time. the constants are fixed by the
	// console's format routine
	rand := params.FormatTime
	for i := range hdr.Serial {
		rand = ((rand * 0x41c64e6d) + 0x3039) >> 16
		hdr.Serial[i] = params.FlashID[i] + uint8(rand)
		rand = ((rand * 0x41c64e6d) + 0x3039) >> 16
		rand &= 0x7fff
	}

	hdr.SRAMBias = params.RTCBias
	hdr.SRAMLanguage = params.Language
	hdr.FixChecksums()

	return hdr
}

// MarshalBlock writes the header to a block.
func (hdr *Header) MarshalBlock(b *Block) {
	copy(b[hdrSerial:], hdr.Serial[:])
	binary.BigEndian.PutUint64(b[hdrFormatTime:], hdr.FormatTime)
	binary.BigEndian.PutUint32(b[hdrSRAMBias:], hdr.SRAMBias)
	binary.BigEndian.PutUint32(b[hdrSRAMLanguage:], hdr.SRAMLanguage)
	copy(b[hdrDTVStatus:], hdr.DTVStatus[:])
	binary.BigEndian.PutUint16(b[hdrDeviceID:], hdr.DeviceID)
	binary.BigEndian.PutUint16(b[hdrSizeMbits:], hdr.SizeMbits)
	binary.BigEndian.PutUint16(b[hdrEncoding:], hdr.Encoding)
	copy(b[hdrUnused1:], hdr.Unused1[:])
	binary.BigEndian.PutUint16(b[hdrUpdateCounter:], hdr.UpdateCounter)
	binary.BigEndian.PutUint16(b[hdrChecksum:], hdr.Checksum)
	binary.BigEndian.PutUint16(b[hdrChecksumInv:], hdr.ChecksumInv)
	copy(b[hdrUnused2:], hdr.Unused2[:])
}

// UnmarshalBlock reads the header from a block.
func (hdr *Header) UnmarshalBlock(b *Block) {
	copy(hdr.Serial[:], b[hdrSerial:])
	hdr.FormatTime = binary.BigEndian.Uint64(b[hdrFormatTime:])
	hdr.SRAMBias = binary.BigEndian.Uint32(b[hdrSRAMBias:])
	hdr.SRAMLanguage = binary.BigEndian.Uint32(b[hdrSRAMLanguage:])
	copy(hdr.DTVStatus[:], b[hdrDTVStatus:])
	hdr.DeviceID = binary.BigEndian.Uint16(b[hdrDeviceID:])
	hdr.SizeMbits = binary.BigEndian.Uint16(b[hdrSizeMbits:])
	hdr.Encoding = binary.BigEndian.Uint16(b[hdrEncoding:])
	copy(hdr.Unused1[:], b[hdrUnused1:])
	hdr.UpdateCounter = binary.BigEndian.Uint16(b[hdrUpdateCounter:])
	hdr.Checksum = binary.BigEndian.Uint16(b[hdrChecksum:])
	hdr.ChecksumInv = binary.BigEndian.Uint16(b[hdrChecksumInv:])
	copy(hdr.Unused2[:], b[hdrUnused2:])
}

// CalculateChecksums over the checksummed region of the header.
func (hdr *Header) CalculateChecksums() (uint16, uint16) {
	var b Block
	hdr.MarshalBlock(&b)
	return CalculateChecksums(b[:hdrChecksum])
}

// FixChecksums updates the stored checksums.
func (hdr *Header) FixChecksums() {
	hdr.Checksum, hdr.ChecksumInv = hdr.CalculateChecksums()
}

// CheckForErrors validates the header for a card of the given size.
func (hdr *Header) CheckForErrors(sizeMbits uint16) Issues {
	var issues Issues

	csum, inv := hdr.CalculateChecksums()
	if hdr.Checksum != csum || hdr.ChecksumInv != inv {
		issues |= InvalidChecksum
	}

	if hdr.SizeMbits != sizeMbits {
		issues |= MismatchedCardSize
	}

	if !allFF(hdr.Unused1[:]) || !allFF(hdr.Unused2[:]) {
		issues |= DataInUnusedArea
	}

	return issues
}

// IsShiftJIS returns true if text on the card is encoded with Shift-JIS.
func (hdr *Header) IsShiftJIS() bool {
	return hdr.Encoding == EncodingShiftJIS
}

// CalculateSerial folds the first 32 bytes of the header into two 32-bit
// words. Some titles store these words in their save data to tie the save to
// the card.
func (hdr *Header) CalculateSerial() (uint32, uint32) {
	var b Block
	hdr.MarshalBlock(&b)

	var serial1, serial2 uint32
	for i := 0; i < 32; i += 8 {
		serial1 ^= binary.BigEndian.Uint32(b[i:])
		serial2 ^= binary.BigEndian.Uint32(b[i+4:])
	}

	return serial1, serial2
}

func allFF(b []byte) bool {
	for _, v := range b {
		if v != 0xff {
			return false
		}
	}
	return true
}
