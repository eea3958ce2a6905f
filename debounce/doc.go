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

// Package debounce runs a function in the background a fixed time after the
// first of a burst of triggers.
//
// It is used to write changes to disk without writing on every change. A
// Task is created with the function to run and the interval that must pass
// after a trigger before the function is run:
//
//	t := debounce.NewTask(time.Second, flush)
//	defer t.Close()
//
// Triggers that arrive during the interval are folded into the coming run
// and do not extend the interval, so a steady stream of triggers still runs
// the function once per interval. Close() stops the task and runs the
// function one last time.
package debounce
