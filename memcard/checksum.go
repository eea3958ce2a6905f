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

import "encoding/binary"

// CalculateChecksums returns the additive and inverse checksums of the data.
// The data is treated as a sequence of big-endian 16-bit words. A checksum
// that would be 0xffff is stored as zero.
func CalculateChecksums(data []byte) (uint16, uint16) {
	var csum, inv uint16

	for i := 0; i+1 < len(data); i += 2 {
		w := binary.BigEndian.Uint16(data[i:])
		csum += w
		inv += ^w
	}

	if csum == 0xffff {
		csum = 0
	}
	if inv == 0xffff {
		inv = 0
	}

	return csum, inv
}
