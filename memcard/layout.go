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

// LayoutSave describes where a single save is stored.
type LayoutSave struct {
	Slot     int
	Filename string
	GameCode string
	Blocks   []uint16
}

// Layout summarises the allocation state of the card.
type Layout struct {
	SizeMbits       uint16
	FreeBlocks      uint16
	ActiveDirectory int
	ActiveBat       int
	Saves           []LayoutSave
}

// Layout returns a summary of which blocks belong to which save.
func (c *Card) Layout() Layout {
	l := Layout{
		SizeMbits:       c.sizeMbits,
		FreeBlocks:      c.GetFreeBlocks(),
		ActiveDirectory: c.activeDirectory,
		ActiveBat:       c.activeBat,
	}

	d := &c.directories[c.activeDirectory]
	bat := &c.bats[c.activeBat]

	for i := range d.Entries {
		e := &d.Entries[i]
		if e.IsSentinel() {
			continue
		}
		chain, _ := bat.Chain(e.FirstBlock, e.BlockCount)
		l.Saves = append(l.Saves, LayoutSave{
			Slot:     i,
			Filename: string(e.FilenameBytes()),
			GameCode: string(e.GameCode[:]),
			Blocks:   chain,
		})
	}

	return l
}
