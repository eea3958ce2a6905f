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

// Package prefs facilitates the storage of preference values to disk.
//
// Preference values are declared with one of the types in the package
// (Bool, String, Int) and then added to a Disk instance with a key:
//
//	var delay prefs.Int
//	dsk, _ := prefs.NewDisk(pth)
//	dsk.Add("gcifolder.flushdelay", &delay)
//	dsk.Load(true)
//
// The file on disk is a plain text file with one "key :: value" entry per
// line. More than one Disk instance can share the same file; entries not
// managed by a Disk instance are preserved when it saves.
//
// Values can be overridden for the lifetime of a single run with the command
// line stack. See PushCommandLineStack().
package prefs
