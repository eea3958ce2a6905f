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

package paths_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jetsetilly/gophercard/paths"
	"github.com/jetsetilly/gophercard/test"
)

func TestUniqueFilename(t *testing.T) {
	dir := t.TempDir()

	fn := paths.UniqueFilename(dir, "01-GAFE-save.gci", nil)
	test.ExpectEquality(t, fn, filepath.Join(dir, "01-GAFE-save.gci"))

	err := os.WriteFile(fn, []byte{0}, 0600)
	test.DemandSuccess(t, err)

	fn = paths.UniqueFilename(dir, "01-GAFE-save.gci", nil)
	test.ExpectEquality(t, fn, filepath.Join(dir, "01-GAFE-save-1.gci"))

	fn = paths.UniqueFilename(dir, "01-GAFE-save.gci", []string{filepath.Join(dir, "01-GAFE-save-1.gci")})
	test.ExpectEquality(t, fn, filepath.Join(dir, "01-GAFE-save-2.gci"))
}
