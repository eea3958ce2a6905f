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

// Device is the byte addressed surface of a memory card as seen by the
// console's memory card interface. Addresses are byte offsets into the card.
type Device interface {
	// Read returns length bytes starting at address. Addresses that are not
	// backed by any data read as 0xff.
	Read(address uint32, length int) []byte

	// Write stores data at address and returns the number of bytes written.
	Write(address uint32, data []byte) int

	// ClearBlock erases the block starting at address. The address must be
	// block aligned.
	ClearBlock(address uint32)
}
