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

package environment_test

import (
	"path/filepath"
	"testing"

	"github.com/jetsetilly/gophercard/environment"
	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/preferences"
	"github.com/jetsetilly/gophercard/test"
)

func TestPermission(t *testing.T) {
	p, err := preferences.NewPreferencesFile(filepath.Join(t.TempDir(), "prefs"))
	test.DemandSuccess(t, err)

	main, err := environment.NewEnvironment(environment.MainEmulation, p)
	test.DemandSuccess(t, err)
	other, err := environment.NewEnvironment("thumbnail", p)
	test.DemandSuccess(t, err)

	var perm logger.Permission = main
	test.ExpectSuccess(t, perm.AllowLogging())
	perm = other
	test.ExpectFailure(t, perm.AllowLogging())

	test.ExpectSuccess(t, other.IsEmulation("thumbnail"))

	// both environments share preferences
	test.DemandSuccess(t, main.Prefs.Reserve.Set(50))
	test.ExpectEquality(t, other.Prefs.Reserve.Get().(int), 50)
	other.Normalise()
	test.ExpectEquality(t, main.Prefs.Reserve.Get().(int), 10)
}
