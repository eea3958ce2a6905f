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

// Package test bundles functions that remove common boilerplate from tests
// written with the standard go test harness.
//
// The Expect functions report a failure with t.Errorf() and let the test
// continue. The Demand functions report with t.Fatalf() and should be used
// when later parts of the test depend on the value being correct. For
// example, demanding that a card opened successfully before inspecting its
// directory.
//
// Success and failure are judged according to the type of the value:
//
//	bool  -> true is success
//	error -> nil is success
//	nil   -> success
//
// Note that nil is considered a success. This is because of how errors are
// usually returned: a nil error indicates that there was no error.
//
// The CompareWriter type implements io.Writer and should be used to capture
// output that is to be compared with an expected string.
package test
