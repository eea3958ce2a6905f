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

// Package savefile reads and writes single save files in the interchange
// formats used by save managers and other emulators.
//
// Three formats are supported. GCI files are the directory entry followed by
// the save's blocks. GCS and SAV files have a larger header, identified by a
// magic string, with the directory entry embedded within it. SAV files also
// byte swap some of the 16-bit fields of the directory entry.
//
// The format of a file is detected from its size and contents. The extension
// of the filename is not considered when reading.
package savefile
