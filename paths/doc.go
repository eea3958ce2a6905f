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

// Package paths contains functions to prepare paths for gophercard resources
// and for files written by the program.
//
// The ResourcePath() function returns the correct path to a resource
// directory/file. Resources are kept in the ".gophercard" directory. If that
// directory exists in the current working directory then it is used.
// Otherwise the directory is rooted in the user's configuration directory. On
// modern Linux systems the full path would be something like:
//
//	/home/user/.config/gophercard/
//
// The UniqueFilename() function is used when writing a file that must not
// overwrite an existing file. For example, when a save file that has been
// created on a virtual card is written to the folder for the first time.
package paths
