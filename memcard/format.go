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
	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/logger"
)

// Format creates a blank card as the console would when formatting a card.
// Data blocks are erased and both copies of the directory and BAT are empty.
func Format(params FormatParams) (*Card, error) {
	if !IsValidSize(params.SizeMbits) {
		return nil, curated.Errorf(InvalidCardSize, ImageSize(params.SizeMbits))
	}

	c := &Card{
		valid:     true,
		sizeMbits: params.SizeMbits,
		header:    NewHeader(params),
		data:      make([]Block, DataBlocks(params.SizeMbits)),
	}

	c.directories[0] = NewDirectory()
	c.directories[1] = NewDirectory()
	c.bats[0] = NewBlockAlloc(params.SizeMbits)
	c.bats[1] = NewBlockAlloc(params.SizeMbits)

	for i := range c.data {
		c.data[i].Erase()
	}

	c.FixChecksums()

	return c, nil
}

// Create formats a new card and writes it to the named file.
func Create(filename string, params FormatParams) (*Card, error) {
	c, err := Format(params)
	if err != nil {
		return nil, err
	}

	if err := c.SaveAs(filename); err != nil {
		return nil, err
	}

	logger.Logf(logger.Allow, "memcard", "formatted %d block card", DataBlocks(params.SizeMbits))

	return c, nil
}
