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
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// CommentLength is the size of each of the two comment strings in a save.
const CommentLength = 32

// DecodeText converts a null terminated string from the card to UTF-8. Cards
// formatted for the Japanese market use Shift-JIS. All other cards use
// Windows-1252.
func DecodeText(b []byte, shiftJIS bool) string {
	if i := bytes.IndexByte(b, 0x00); i >= 0 {
		b = b[:i]
	}

	var enc encoding.Encoding = charmap.Windows1252
	if shiftJIS {
		enc = japanese.ShiftJIS
	}

	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}

	return strings.TrimRight(string(s), " ")
}

// DecodeText converts text from the card to UTF-8 using the encoding named
// in the card header.
func (c *Card) DecodeText(b []byte) string {
	return DecodeText(b, c.header.IsShiftJIS())
}

// GetSaveComments returns the two comment strings of the save at index. The
// first string is usually the name of the game and the second describes the
// save.
func (c *Card) GetSaveComments(index int) (string, string, error) {
	entry, err := c.Entry(index)
	if err != nil {
		return "", "", err
	}

	b, err := c.GetSaveDataBytes(index, int(entry.CommentsAddress), CommentLength*2)
	if err != nil {
		return "", "", err
	}

	return c.DecodeText(b[:CommentLength]), c.DecodeText(b[CommentLength:]), nil
}
