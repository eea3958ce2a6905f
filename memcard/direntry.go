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
	"bytes"
	"encoding/binary"
	"strings"
)

// directory entry field offsets.
const (
	deGameCode         = 0x00
	deMakerCode        = 0x04
	deUnused1          = 0x06
	deBannerIconFlags  = 0x07
	deFilename         = 0x08
	deModificationTime = 0x28
	deImageOffset      = 0x2c
	deIconFormat       = 0x30
	deAnimationSpeed   = 0x32
	dePermissions      = 0x34
	deCopyCounter      = 0x35
	deFirstBlock       = 0x36
	deBlockCount       = 0x38
	deUnused2          = 0x3a
	deCommentsAddress  = 0x3c
)

// FilenameLength is the size of the filename field in a directory entry.
const FilenameLength = 32

// SentinelGameCode is the game code of an unused directory entry.
var SentinelGameCode = [4]byte{0xff, 0xff, 0xff, 0xff}

// DirEntry describes one save file on the card.
type DirEntry struct {
	GameCode  [4]byte
	MakerCode [2]byte

	// always 0xff
	Unused1 uint8

	BannerIconFlags uint8

	// the filename is compared as a null terminated string. bytes after the
	// first null are not required to be null
	Filename [FilenameLength]byte

	// seconds since 2000-01-01
	ModificationTime uint32

	// offset of the banner and icon data in the save file
	ImageOffset uint32

	// two bits per icon frame
	IconFormat uint16

	// two bits per icon frame
	AnimationSpeed uint16

	Permissions uint8
	CopyCounter uint8

	// the first block of the save's chain. this is a card block index, not a
	// BAT map index
	FirstBlock uint16

	BlockCount uint16

	// always 0xffff
	Unused2 uint16

	// offset of the two comment strings in the save file
	CommentsAddress uint32
}

// SentinelEntry returns a directory entry as found in an unused directory
// slot. Every byte of an unused entry is 0xff.
func SentinelEntry() DirEntry {
	var e DirEntry
	var b [DirEntrySize]byte
	for i := range b {
		b[i] = 0xff
	}
	e.Unmarshal(b[:])
	return e
}

// IsSentinel returns true if the directory entry is unused.
func (e *DirEntry) IsSentinel() bool {
	return e.GameCode == SentinelGameCode
}

// Marshal the directory entry into b, which must be at least DirEntrySize
// bytes long.
func (e *DirEntry) Marshal(b []byte) {
	_ = b[DirEntrySize-1]
	copy(b[deGameCode:], e.GameCode[:])
	copy(b[deMakerCode:], e.MakerCode[:])
	b[deUnused1] = e.Unused1
	b[deBannerIconFlags] = e.BannerIconFlags
	copy(b[deFilename:], e.Filename[:])
	binary.BigEndian.PutUint32(b[deModificationTime:], e.ModificationTime)
	binary.BigEndian.PutUint32(b[deImageOffset:], e.ImageOffset)
	binary.BigEndian.PutUint16(b[deIconFormat:], e.IconFormat)
	binary.BigEndian.PutUint16(b[deAnimationSpeed:], e.AnimationSpeed)
	b[dePermissions] = e.Permissions
	b[deCopyCounter] = e.CopyCounter
	binary.BigEndian.PutUint16(b[deFirstBlock:], e.FirstBlock)
	binary.BigEndian.PutUint16(b[deBlockCount:], e.BlockCount)
	binary.BigEndian.PutUint16(b[deUnused2:], e.Unused2)
	binary.BigEndian.PutUint32(b[deCommentsAddress:], e.CommentsAddress)
}

// Bytes returns the encoded directory entry.
func (e *DirEntry) Bytes() []byte {
	b := make([]byte, DirEntrySize)
	e.Marshal(b)
	return b
}

// Unmarshal the directory entry from b, which must be at least DirEntrySize
// bytes long.
func (e *DirEntry) Unmarshal(b []byte) {
	_ = b[DirEntrySize-1]
	copy(e.GameCode[:], b[deGameCode:])
	copy(e.MakerCode[:], b[deMakerCode:])
	e.Unused1 = b[deUnused1]
	e.BannerIconFlags = b[deBannerIconFlags]
	copy(e.Filename[:], b[deFilename:])
	e.ModificationTime = binary.BigEndian.Uint32(b[deModificationTime:])
	e.ImageOffset = binary.BigEndian.Uint32(b[deImageOffset:])
	e.IconFormat = binary.BigEndian.Uint16(b[deIconFormat:])
	e.AnimationSpeed = binary.BigEndian.Uint16(b[deAnimationSpeed:])
	e.Permissions = b[dePermissions]
	e.CopyCounter = b[deCopyCounter]
	e.FirstBlock = binary.BigEndian.Uint16(b[deFirstBlock:])
	e.BlockCount = binary.BigEndian.Uint16(b[deBlockCount:])
	e.Unused2 = binary.BigEndian.Uint16(b[deUnused2:])
	e.CommentsAddress = binary.BigEndian.Uint32(b[deCommentsAddress:])
}

// FilenameBytes returns the filename up to but not including the first null
// byte.
func (e *DirEntry) FilenameBytes() []byte {
	if i := bytes.IndexByte(e.Filename[:], 0); i >= 0 {
		return e.Filename[:i]
	}
	return e.Filename[:]
}

// SetFilename sets the filename field. The name is truncated if necessary
// and the remainder of the field is filled with null bytes.
func (e *DirEntry) SetFilename(name string) {
	e.Filename = [FilenameLength]byte{}
	copy(e.Filename[:], name)
}

// SameIdentity returns true if both entries refer to the same save. The
// filename comparison stops at the first null byte.
func (e *DirEntry) SameIdentity(o *DirEntry) bool {
	return e.GameCode == o.GameCode && e.MakerCode == o.MakerCode &&
		bytes.Equal(e.FilenameBytes(), o.FilenameBytes())
}

// GameID returns the game code as a 32-bit value. Used to decide which saves
// belong to the title that is currently running.
func (e *DirEntry) GameID() uint32 {
	return binary.BigEndian.Uint32(e.GameCode[:])
}

// GCIFilename returns the conventional host filename for the save:
//
//	<maker code>-<game code>-<filename>.gci
//
// Characters that are not safe in a host filename are escaped as "-xx"
// where xx is the hexadecimal value of the byte.
func (e *DirEntry) GCIFilename() string {
	s := strings.Builder{}
	s.Write(e.MakerCode[:])
	s.WriteRune('-')
	s.Write(e.GameCode[:])
	s.WriteRune('-')
	s.Write(e.FilenameBytes())
	return escapeFilename(s.String()) + ".gci"
}

func escapeFilename(fn string) string {
	const hex = "0123456789abcdef"

	s := strings.Builder{}
	for i := 0; i < len(fn); i++ {
		c := fn[i]
		switch {
		case c < 0x20 || c >= 0x7f:
			fallthrough
		case strings.IndexByte(`"*/:<>?\|`, c) >= 0:
			s.WriteByte('-')
			s.WriteByte(hex[c>>4])
			s.WriteByte(hex[c&0x0f])
		default:
			s.WriteByte(c)
		}
	}

	// "." and ".." are not usable as filenames
	switch s.String() {
	case ".":
		return "-2e"
	case "..":
		return "-2e-2e"
	}

	return s.String()
}
