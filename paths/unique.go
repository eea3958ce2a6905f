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

package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UniqueFilename returns a path in dir for the filename that does not collide
// with an existing file or with any of the names in the reserved list. If the
// plain filename is not available a numeric suffix is inserted before the
// extension:
//
//	01-GAFE-save.gci
//	01-GAFE-save-1.gci
//	01-GAFE-save-2.gci
func UniqueFilename(dir string, filename string, reserved []string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	candidate := filepath.Join(dir, filename)
	for n := 1; isTaken(candidate, reserved); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}

	return candidate
}

func isTaken(pth string, reserved []string) bool {
	for _, r := range reserved {
		if r == pth {
			return true
		}
	}
	_, err := os.Stat(pth)
	return err == nil
}
