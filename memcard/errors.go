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

import "strings"

// Sentinal error patterns for card operations.
const (
	FailedToOpen    = "memcard: failed to open: %v"
	IoError         = "memcard: i/o error: %v"
	InvalidCardSize = "memcard: invalid card size (%d bytes)"
	CriticalErrors  = "memcard: card has critical errors: %v"
	NoMemcard       = "memcard: card is not valid"
	OutOfDirEntries = "memcard: no free directory entries"
	OutOfBlocks     = "memcard: not enough free blocks (%d required, %d free)"
	TitlePresent    = "memcard: save already present (%s)"
	DeleteFail      = "memcard: cannot delete save in slot %d"
	Fail            = "memcard: cannot read save in slot %d"
	InvalidIndex    = "memcard: invalid directory index (%d)"
)

// Issues is a set of problems found when validating the card structures.
type Issues uint16

// List of validity issues.
const (
	InvalidChecksum Issues = 1 << iota
	MismatchedCardSize
	FreeBlockMismatch
	DirBatInconsistent
	DataInUnusedArea
	BadCardSize
)

// critical issues cause a card to fail to open. all other issues are
// advisory.
const criticalIssues = InvalidChecksum | MismatchedCardSize | FreeBlockMismatch | DirBatInconsistent | BadCardSize

// Has returns true if any of the issues in i are present.
func (is Issues) Has(i Issues) bool {
	return is&i != 0
}

// HasCriticalErrors returns true if the set contains any issue other than an
// advisory one.
func (is Issues) HasCriticalErrors() bool {
	return is&criticalIssues != 0
}

func (is Issues) String() string {
	if is == 0 {
		return "no issues"
	}

	s := make([]string, 0, 6)
	if is.Has(InvalidChecksum) {
		s = append(s, "invalid checksum")
	}
	if is.Has(MismatchedCardSize) {
		s = append(s, "mismatched card size")
	}
	if is.Has(FreeBlockMismatch) {
		s = append(s, "free block mismatch")
	}
	if is.Has(DirBatInconsistent) {
		s = append(s, "directory and BAT are inconsistent")
	}
	if is.Has(DataInUnusedArea) {
		s = append(s, "data in unused area")
	}
	if is.Has(BadCardSize) {
		s = append(s, "invalid card size")
	}

	return strings.Join(s, ", ")
}
