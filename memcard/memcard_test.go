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
	"testing"
	"time"

	"github.com/jetsetilly/gophercard/test"
)

func TestChecksums(t *testing.T) {
	csum, inv := CalculateChecksums([]byte{0x00, 0x01, 0x00, 0x02})
	test.ExpectEquality(t, csum, 0x0003)
	test.ExpectEquality(t, inv, 0xfffb)

	// a checksum of 0xffff is folded to zero
	csum, inv = CalculateChecksums([]byte{0xff, 0xff})
	test.ExpectEquality(t, csum, 0x0000)
	test.ExpectEquality(t, inv, 0x0000)

	csum, inv = CalculateChecksums([]byte{0x00, 0x00})
	test.ExpectEquality(t, csum, 0x0000)
	test.ExpectEquality(t, inv, 0x0000)
}

func TestSelectActive(t *testing.T) {
	test.ExpectEquality(t, SelectActive(0, 0), 0)
	test.ExpectEquality(t, SelectActive(1, 0), 0)
	test.ExpectEquality(t, SelectActive(0, 1), 1)

	// counters are compared as signed values
	test.ExpectEquality(t, SelectActive(0x8000, 0x7fff), 1)
	test.ExpectEquality(t, SelectActive(0xffff, 0x0000), 1)
}

func TestLink(t *testing.T) {
	test.ExpectEquality(t, linkFromRaw(0x0000), Link{Kind: LinkFree})
	test.ExpectEquality(t, linkFromRaw(0xffff), Link{Kind: LinkTerminal})
	test.ExpectEquality(t, linkFromRaw(0x0010), Link{Kind: LinkNext, Next: 0x10})
	test.ExpectEquality(t, Link{Kind: LinkNext, Next: 0x20}.raw(), 0x0020)
	test.ExpectEquality(t, Link{Kind: LinkTerminal}.raw(), 0xffff)
}

func TestBlockAlloc(t *testing.T) {
	bat := NewBlockAlloc(MemCard59Mb)
	test.ExpectEquality(t, bat.FreeBlocks, 59)
	test.ExpectEquality(t, bat.LastAllocatedBlock, 4)
	test.ExpectEquality(t, bat.CheckForErrors(MemCard59Mb), Issues(0))

	first, ok := bat.AssignBlocksContiguous(3)
	test.DemandEquality(t, ok, true)
	test.ExpectEquality(t, first, 5)
	test.ExpectEquality(t, bat.GetNextBlock(5), 6)
	test.ExpectEquality(t, bat.GetNextBlock(6), 7)
	test.ExpectEquality(t, bat.GetNextBlock(7), 0xffff)
	test.ExpectEquality(t, bat.GetNextBlock(8), 0)
	test.ExpectEquality(t, bat.GetNextBlock(4), 0)
	test.ExpectEquality(t, bat.FreeBlocks, 56)
	test.ExpectEquality(t, bat.LastAllocatedBlock, 7)
	test.ExpectEquality(t, bat.CheckForErrors(MemCard59Mb), Issues(0))

	chain, ok := bat.Chain(5, 3)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, len(chain), 3)
	_, ok = bat.Chain(5, 2)
	test.ExpectEquality(t, ok, false)

	_, ok = bat.AssignBlocksContiguous(57)
	test.ExpectEquality(t, ok, false)

	// a chain of the wrong length is not cleared
	test.ExpectEquality(t, bat.ClearBlocks(5, 2), false)
	test.ExpectEquality(t, bat.FreeBlocks, 56)
	test.ExpectEquality(t, bat.ClearBlocks(5, 3), true)
	test.ExpectEquality(t, bat.FreeBlocks, 59)
	test.ExpectEquality(t, bat.GetNextBlock(5), 0)

	// clearing a free block fails
	test.ExpectEquality(t, bat.ClearBlocks(5, 1), false)
}

func TestNextFreeBlock(t *testing.T) {
	bat := NewBlockAlloc(MemCard59Mb)
	maxBlock := uint16(TotalBlocks(MemCard59Mb))

	test.ExpectEquality(t, bat.NextFreeBlock(maxBlock, 0), 5)
	test.ExpectEquality(t, bat.NextFreeBlock(maxBlock, 20), 20)

	bat.setLink(63, Link{Kind: LinkTerminal})
	test.ExpectEquality(t, bat.NextFreeBlock(maxBlock, 63), 5)

	// searches past the end of the card wrap to the start
	test.ExpectEquality(t, bat.NextFreeBlock(maxBlock, 1000), 5)

	bat.FreeBlocks = 0
	test.ExpectEquality(t, bat.NextFreeBlock(maxBlock, 5), NoFreeBlock)
}

func TestBlockAllocErrors(t *testing.T) {
	bat := NewBlockAlloc(MemCard59Mb)
	bat.FreeBlocks = 10
	bat.FixChecksums()
	test.ExpectSuccess(t, bat.CheckForErrors(MemCard59Mb).Has(FreeBlockMismatch))

	bat = NewBlockAlloc(MemCard59Mb)
	bat.Map[100] = Link{Kind: LinkTerminal}
	bat.FixChecksums()
	issues := bat.CheckForErrors(MemCard59Mb)
	test.ExpectSuccess(t, issues.Has(DataInUnusedArea))
	test.ExpectSuccess(t, !issues.HasCriticalErrors())

	bat = NewBlockAlloc(MemCard59Mb)
	bat.UpdateCounter++
	test.ExpectSuccess(t, bat.CheckForErrors(MemCard59Mb).Has(InvalidChecksum))

	var b Block
	bat = NewBlockAlloc(MemCard507Mb)
	_, _ = bat.AssignBlocksContiguous(10)
	bat.MarshalBlock(&b)
	var other BlockAlloc
	other.UnmarshalBlock(&b)
	test.ExpectEquality(t, other, bat)
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	test.ExpectEquality(t, d.NumFiles(), 0)
	test.ExpectEquality(t, d.FreeEntry(), 0)
	test.ExpectEquality(t, d.CheckForErrors(), Issues(0))

	var e DirEntry
	copy(e.GameCode[:], "GAME")
	copy(e.MakerCode[:], "01")
	e.SetFilename("name")
	e.FirstBlock = 5
	e.BlockCount = 2

	d.Replace(e, 3)
	test.ExpectEquality(t, d.NumFiles(), 1)
	test.ExpectEquality(t, d.CheckForErrors(), Issues(0))

	var b Block
	d.MarshalBlock(&b)
	var other Directory
	other.UnmarshalBlock(&b)
	test.ExpectEquality(t, other, d)

	bat := NewBlockAlloc(MemCard59Mb)
	test.ExpectSuccess(t, d.CheckForErrorsWithBat(&bat).Has(DirBatInconsistent))
	_, _ = bat.AssignBlocksContiguous(2)
	test.ExpectEquality(t, d.CheckForErrorsWithBat(&bat), Issues(0))

	d.Padding[0] = 0
	d.FixChecksums()
	issues := d.CheckForErrors()
	test.ExpectSuccess(t, issues.Has(DataInUnusedArea))
	test.ExpectSuccess(t, !issues.HasCriticalErrors())
}

func TestDirEntry(t *testing.T) {
	e := SentinelEntry()
	test.ExpectSuccess(t, e.IsSentinel())
	for _, v := range e.Bytes() {
		test.DemandEquality(t, v, 0xff)
	}

	copy(e.GameCode[:], "GZLE")
	copy(e.MakerCode[:], "01")
	e.SetFilename("gczelda/sav")
	test.ExpectSuccess(t, !e.IsSentinel())
	test.ExpectEquality(t, e.GCIFilename(), "01-GZLE-gczelda-2fsav.gci")
	test.ExpectEquality(t, e.GameID(), 0x475a4c45)

	// only the filename up to the first null is significant
	o := e
	o.Filename[20] = 'x'
	test.ExpectSuccess(t, e.SameIdentity(&o))
	o.MakerCode[1] = '2'
	test.ExpectSuccess(t, !e.SameIdentity(&o))

	e.ModificationTime = 0x01020304
	e.BlockCount = 0x0506
	var u DirEntry
	u.Unmarshal(e.Bytes())
	test.ExpectEquality(t, u, e)
}

func TestHeader(t *testing.T) {
	params := FormatParams{
		SizeMbits:  MemCard251Mb,
		ShiftJIS:   true,
		FormatTime: FormatTime(time.Date(2001, 9, 14, 0, 0, 0, 0, time.UTC)),
	}
	copy(params.FlashID[:], "flashid00001")

	hdr := NewHeader(params)
	test.ExpectEquality(t, hdr.CheckForErrors(MemCard251Mb), Issues(0))
	test.ExpectSuccess(t, hdr.CheckForErrors(MemCard59Mb).Has(MismatchedCardSize))
	test.ExpectSuccess(t, hdr.IsShiftJIS())

	// the serial depends on the format time
	other := params
	other.FormatTime++
	test.ExpectInequality(t, NewHeader(other).Serial, hdr.Serial)

	var b Block
	hdr.MarshalBlock(&b)
	var u Header
	u.UnmarshalBlock(&b)
	test.ExpectEquality(t, u, hdr)

	s1, s2 := hdr.CalculateSerial()
	var x1, x2 uint32
	for i := 0; i < 32; i += 8 {
		x1 ^= uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3])
		x2 ^= uint32(b[i+4])<<24 | uint32(b[i+5])<<16 | uint32(b[i+6])<<8 | uint32(b[i+7])
	}
	test.ExpectEquality(t, s1, x1)
	test.ExpectEquality(t, s2, x2)

	test.ExpectEquality(t, FormatTime(consoleEpoch), 0)
	test.ExpectEquality(t, FormatTime(consoleEpoch.Add(time.Second)), timebaseFrequency)
	test.ExpectEquality(t, FormatTime(consoleEpoch.Add(-time.Second)), 0)

	// bad padding in the header is reported but is not critical
	hdr.Unused2[0] = 0
	hdr.FixChecksums()
	issues := hdr.CheckForErrors(MemCard251Mb)
	test.ExpectEquality(t, issues, DataInUnusedArea)
	test.ExpectFailure(t, issues.HasCriticalErrors())

	// a bad checksum is critical
	hdr.Checksum++
	test.ExpectSuccess(t, hdr.CheckForErrors(MemCard251Mb).HasCriticalErrors())
}
