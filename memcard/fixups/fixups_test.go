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

package fixups_test

import (
	"encoding/binary"
	"testing"

	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/memcard/fixups"
	"github.com/jetsetilly/gophercard/test"
)

func header() memcard.Header {
	params := memcard.FormatParams{
		SizeMbits:  memcard.MemCard59Mb,
		FormatTime: 0x0102030405060708,
	}
	copy(params.FlashID[:], "abcdefghijkl")
	return memcard.NewHeader(params)
}

func entry(name string) memcard.DirEntry {
	var e memcard.DirEntry
	copy(e.GameCode[:], "GFZE")
	copy(e.MakerCode[:], "8P")
	e.SetFilename(name)
	return e
}

func blocks(n int) []memcard.Block {
	b := make([]memcard.Block, n)
	for i := range b {
		for j := range b[i] {
			b[i][j] = byte(i*3 + j)
		}
	}
	return b
}

// reference implementations of the checksums, one bit at a time

func crc16(data []byte) uint16 {
	crc := uint16(0xffff)
	for _, v := range data {
		crc ^= uint16(v)
		for i := 0; i < 8; i++ {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

func crc32(data []byte) uint32 {
	crc := uint32(0xdebb20e3)
	for _, v := range data {
		crc ^= uint32(v)
		for i := 0; i < 8; i++ {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ 0xedb88320
			} else {
				crc >>= 1
			}
		}
	}
	return crc ^ 0xffffffff
}

func TestHasCopyProtection(t *testing.T) {
	for _, n := range []string{"f_zero.dat", "PSO_SYSTEM", "PSO3_SYSTEM"} {
		e := entry(n)
		test.ExpectSuccess(t, fixups.HasCopyProtection(&e), n)
	}
	e := entry("f_zero.dat2")
	test.ExpectFailure(t, fixups.HasCopyProtection(&e))
}

func TestFZero(t *testing.T) {
	hdr := header()
	e := entry("f_zero.dat")
	b := blocks(4)

	test.DemandSuccess(t, fixups.Apply(&hdr, &e, b))

	s1, s2 := hdr.CalculateSerial()
	test.ExpectEquality(t, binary.BigEndian.Uint16(b[1][0x66:]), uint16(s1>>16))
	test.ExpectEquality(t, binary.BigEndian.Uint16(b[1][0x60:]), uint16(s1))
	test.ExpectEquality(t, binary.BigEndian.Uint16(b[3][0x1580:]), uint16(s2>>16))
	test.ExpectEquality(t, binary.BigEndian.Uint16(b[1][0x200:]), uint16(s2))

	var flat []byte
	for i := range b {
		flat = append(flat, b[i][:]...)
	}
	test.ExpectEquality(t, binary.BigEndian.Uint16(b[0][0:]), ^crc16(flat[2:]))

	// the save must be exactly four blocks
	b = blocks(3)
	test.ExpectFailure(t, fixups.Apply(&hdr, &e, b))
	test.ExpectEquality(t, b[1][0x66], blocks(3)[1][0x66])
}

func TestPSO(t *testing.T) {
	hdr := header()
	s1, s2 := hdr.CalculateSerial()

	for name, extent := range map[string]int{"PSO_SYSTEM": 0, "PSO3_SYSTEM": 0x10} {
		e := entry(name)
		b := blocks(3)

		test.DemandSuccess(t, fixups.Apply(&hdr, &e, b), name)
		test.ExpectEquality(t, binary.BigEndian.Uint32(b[1][0x158:]), s1, name)
		test.ExpectEquality(t, binary.BigEndian.Uint32(b[1][0x15c:]), s2, name)
		test.ExpectEquality(t, binary.BigEndian.Uint32(b[1][0x48:]), crc32(b[1][0x4c:0x164+extent]), name)
	}
}

func TestUnprotected(t *testing.T) {
	hdr := header()
	e := entry("other")
	b := blocks(4)
	test.ExpectFailure(t, fixups.Apply(&hdr, &e, b))
	test.ExpectEquality(t, b[0], blocks(4)[0])
}

func TestCardImport(t *testing.T) {
	c, err := memcard.Format(memcard.FormatParams{SizeMbits: memcard.MemCard59Mb, FormatTime: 12345})
	test.DemandSuccess(t, err)
	c.SetFixup(fixups.Apply)

	sf := memcard.SaveFile{
		Entry:  entry("PSO_SYSTEM"),
		Blocks: blocks(2),
	}
	sf.Entry.BlockCount = 2
	test.DemandSuccess(t, c.ImportFile(sf))

	hdr := c.Header()
	s1, _ := hdr.CalculateSerial()
	out, err := c.ExportFile(0)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, binary.BigEndian.Uint32(out.Blocks[1][0x158:]), s1)
}
