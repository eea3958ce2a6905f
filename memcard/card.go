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
	"io"
	"os"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/logger"
)

// Card is a memory card image held entirely in memory.
//
// All mutating operations work on copies of the active directory and BAT.
// The copies are only written back to the card once the operation has
// succeeded, so a failed operation never changes the card.
type Card struct {
	filename  string
	valid     bool
	sizeMbits uint16

	header      Header
	directories [2]Directory
	bats        [2]BlockAlloc

	// data blocks. block n of the card is data[n-FirstDataBlock]
	data []Block

	activeDirectory int
	activeBat       int

	fixup Fixup
}

// Open parses a card image. The returned Issues value describes any problems
// found with the image, including problems that were repaired.
//
// A card with a single damaged directory or BAT is recovered from the other
// copy. If more than one of those blocks is damaged the card will not open.
func Open(data []byte) (*Card, Issues, error) {
	sizeMbits, ok := sizeFromImageLength(len(data))
	if !ok {
		return nil, BadCardSize, curated.Errorf(InvalidCardSize, len(data))
	}

	c := &Card{
		sizeMbits: sizeMbits,
		data:      make([]Block, DataBlocks(sizeMbits)),
	}

	var blk Block

	copy(blk[:], data[HeaderBlock*BlockSize:])
	c.header.UnmarshalBlock(&blk)
	copy(blk[:], data[DirectoryBlockA*BlockSize:])
	c.directories[0].UnmarshalBlock(&blk)
	copy(blk[:], data[DirectoryBlockB*BlockSize:])
	c.directories[1].UnmarshalBlock(&blk)
	copy(blk[:], data[BATBlockA*BlockSize:])
	c.bats[0].UnmarshalBlock(&blk)
	copy(blk[:], data[BATBlockB*BlockSize:])
	c.bats[1].UnmarshalBlock(&blk)

	for i := range c.data {
		copy(c.data[i][:], data[(FirstDataBlock+i)*BlockSize:])
	}

	issues := c.header.CheckForErrors(sizeMbits)
	if issues.HasCriticalErrors() {
		return nil, issues, curated.Errorf(CriticalErrors, "header: "+issues.String())
	}

	dirIssues := [2]Issues{
		c.directories[0].CheckForErrors(),
		c.directories[1].CheckForErrors(),
	}
	batIssues := [2]Issues{
		c.bats[0].CheckForErrors(sizeMbits),
		c.bats[1].CheckForErrors(sizeMbits),
	}

	var broken int
	for i := 0; i < 2; i++ {
		if dirIssues[i].HasCriticalErrors() {
			broken++
		}
		if batIssues[i].HasCriticalErrors() {
			broken++
		}
	}

	if broken > 1 {
		issues |= dirIssues[0] | dirIssues[1] | batIssues[0] | batIssues[1]
		return nil, issues, curated.Errorf(CriticalErrors, issues)
	}

	// a single damaged block is replaced by its sibling. the update counter
	// is advanced so that the repaired copy becomes the active one
	for i := 0; i < 2; i++ {
		j := 1 - i
		if dirIssues[i].HasCriticalErrors() {
			logger.Logf(logger.Allow, "memcard", "recovering directory %c from backup", 'A'+rune(i))
			issues |= dirIssues[i]
			c.directories[i] = c.directories[j]
			c.directories[i].UpdateCounter++
			c.directories[i].FixChecksums()
			dirIssues[i] = c.directories[i].CheckForErrors()
		}
		if batIssues[i].HasCriticalErrors() {
			logger.Logf(logger.Allow, "memcard", "recovering BAT %c from backup", 'A'+rune(i))
			issues |= batIssues[i]
			c.bats[i] = c.bats[j]
			c.bats[i].UpdateCounter++
			c.bats[i].FixChecksums()
			batIssues[i] = c.bats[i].CheckForErrors(sizeMbits)
		}
	}

	for i := 0; i < 2; i++ {
		if dirIssues[i].HasCriticalErrors() || batIssues[i].HasCriticalErrors() {
			issues |= dirIssues[i] | batIssues[i]
			return nil, issues, curated.Errorf(CriticalErrors, issues)
		}
		issues |= dirIssues[i] | batIssues[i]
	}

	c.activeDirectory = SelectActive(c.directories[0].UpdateCounter, c.directories[1].UpdateCounter)
	c.activeBat = SelectActive(c.bats[0].UpdateCounter, c.bats[1].UpdateCounter)

	consistency := c.directories[c.activeDirectory].CheckForErrorsWithBat(&c.bats[c.activeBat])
	issues |= consistency
	if consistency.HasCriticalErrors() {
		return nil, issues, curated.Errorf(CriticalErrors, consistency)
	}

	c.valid = true

	return c, issues, nil
}

// SelectActive returns the index of the active copy of the directory or BAT
// given the update counters of the two copies. The counters are compared as
// signed values and ties go to the first copy.
func SelectActive(counter0 uint16, counter1 uint16) int {
	if int16(counter0) >= int16(counter1) {
		return 0
	}
	return 1
}

// OpenFile opens the card image in the named file. Saving the card will
// write back to the same file.
func OpenFile(filename string) (*Card, Issues, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, 0, curated.Errorf(FailedToOpen, err)
	}

	c, issues, err := Open(data)
	if err != nil {
		return nil, issues, curated.Errorf(FailedToOpen, err)
	}
	c.filename = filename

	return c, issues, nil
}

// Filename returns the file the card was opened from. Empty if the card was
// created in memory.
func (c *Card) Filename() string {
	return c.filename
}

// IsValid returns false if the card could not be opened.
func (c *Card) IsValid() bool {
	return c != nil && c.valid
}

// SizeMbits returns the size of the card in megabits.
func (c *Card) SizeMbits() uint16 {
	return c.sizeMbits
}

// Header returns a copy of the card header.
func (c *Card) Header() Header {
	return c.header
}

// SetFixup sets the function that is applied to every save as it is
// imported. A nil value disables fixups.
func (c *Card) SetFixup(fixup Fixup) {
	c.fixup = fixup
}

// WriteTo implements the io.WriterTo interface. The image is written in
// block order.
func (c *Card) WriteTo(w io.Writer) (int64, error) {
	if !c.IsValid() {
		return 0, curated.Errorf(NoMemcard)
	}

	var blk Block
	var total int64

	write := func() error {
		n, err := w.Write(blk[:])
		total += int64(n)
		if err != nil {
			return curated.Errorf(IoError, err)
		}
		return nil
	}

	c.header.MarshalBlock(&blk)
	if err := write(); err != nil {
		return total, err
	}
	for i := range c.directories {
		c.directories[i].MarshalBlock(&blk)
		if err := write(); err != nil {
			return total, err
		}
	}
	for i := range c.bats {
		c.bats[i].MarshalBlock(&blk)
		if err := write(); err != nil {
			return total, err
		}
	}
	for i := range c.data {
		blk = c.data[i]
		if err := write(); err != nil {
			return total, err
		}
	}

	return total, nil
}

// Bytes returns the card image.
func (c *Card) Bytes() []byte {
	var b bytes.Buffer
	b.Grow(ImageSize(c.sizeMbits))
	_, _ = c.WriteTo(&b)
	return b.Bytes()
}

// Save writes the card back to the file it was opened from.
func (c *Card) Save() error {
	if c.filename == "" {
		return curated.Errorf(IoError, "card has no filename")
	}
	return c.SaveAs(c.filename)
}

// SaveAs writes the card to the named file. The file is written in full
// before replacing any existing file.
func (c *Card) SaveAs(filename string) error {
	if !c.IsValid() {
		return curated.Errorf(NoMemcard)
	}

	tmp := filename + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return curated.Errorf(IoError, err)
	}

	if _, err := c.WriteTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return curated.Errorf(IoError, err)
	}

	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return curated.Errorf(IoError, err)
	}

	c.filename = filename
	logger.Logf(logger.Allow, "memcard", "saved card to %s", filename)

	return nil
}

// FixChecksums recalculates the checksums of the header and of both copies
// of the directory and BAT.
func (c *Card) FixChecksums() {
	c.header.FixChecksums()
	for i := range c.directories {
		c.directories[i].FixChecksums()
	}
	for i := range c.bats {
		c.bats[i].FixChecksums()
	}
}

// ActiveDirectory returns a copy of the active directory.
func (c *Card) ActiveDirectory() Directory {
	return c.directories[c.activeDirectory]
}

// ActiveBat returns a copy of the active BAT.
func (c *Card) ActiveBat() BlockAlloc {
	return c.bats[c.activeBat]
}

// ActiveIndexes returns the index of the active directory and active BAT.
func (c *Card) ActiveIndexes() (int, int) {
	return c.activeDirectory, c.activeBat
}

// UpdateDirectory replaces the inactive directory with the one supplied and
// makes it active. The previously active directory is left intact as the
// backup.
func (c *Card) UpdateDirectory(d Directory) {
	d.FixChecksums()
	inactive := 1 - c.activeDirectory
	c.directories[inactive] = d
	c.activeDirectory = inactive
}

// UpdateBat replaces the inactive BAT with the one supplied and makes it
// active.
func (c *Card) UpdateBat(bat BlockAlloc) {
	bat.FixChecksums()
	inactive := 1 - c.activeBat
	c.bats[inactive] = bat
	c.activeBat = inactive
}
