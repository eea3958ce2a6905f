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

// Package gcifolder presents a folder of GCI save files as a memory card.
//
// The card is assembled when it is created. Every save for the running title
// is loaded, along with as many saves for other titles as will fit while
// leaving some of the card free. The directory and BAT of the card are built
// from the loaded saves with each save occupying a contiguous run of blocks.
//
// The card is accessed through the memcard.Device interface. Writes to the
// directory are compared with the loaded saves so that saves that have been
// created, changed or deleted by the running title can be written back to the
// folder. Changes are written some time after the most recent write, in a
// background task.
//
// Saves that are deleted by the running title are not removed from the
// folder. Instead the file is renamed with the ".deleted" suffix.
package gcifolder
