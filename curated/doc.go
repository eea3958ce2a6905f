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

// Package curated is a helper package for the plain Go language error type.
// Curated errors implement the error interface.
//
// Curated errors are created with the Errorf() function. The first argument
// is a pattern rather than a format string because the pattern is how one
// curated error is told apart from another. For example:
//
//	const OutOfBlocks = "memcard: not enough free blocks (%d required)"
//
//	err := curated.Errorf(OutOfBlocks, 12)
//
//	if curated.Is(err, OutOfBlocks) {
//		fmt.Println("card is full")
//	}
//
// The Has() function is similar but checks if a pattern occurs somewhere in
// the error chain.
//
//	f := curated.Errorf("import: %v", err)
//
//	curated.Has(f, OutOfBlocks) // true
//	curated.Is(f, OutOfBlocks)  // false
//
// Sentinal patterns should be stored as a const string, suitably named and
// commented, in the package that raises them.
//
// The Error() function normalises the message so that duplicate adjacent
// parts do not appear. Parts of the chain are separated by the sub-string
// ": ". If two functions in a call stack both wrap with the same prefix:
//
//	return curated.Errorf("memcard: %v", err)
//
// Then the message will read "memcard: ..." and not "memcard: memcard: ...".
//
// Curated errors also support the Unwrap() convention of the standard
// library errors package. The first error value in the list of values is
// treated as the wrapped error. This means that errors.Is() can see through
// a curated error to an underlying os.PathError, for example.
package curated
