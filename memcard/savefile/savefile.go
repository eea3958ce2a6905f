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

package savefile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/memcard"
)

// Sentinal error patterns.
const (
	UnknownFormat = "savefile: unknown format: %s"
	ReadError     = "savefile: read: %v"
	WriteError    = "savefile: write: %v"
	InvalidSave   = "savefile: invalid save: %s"
)

// Format of a save file.
type Format int

// List of valid Format values.
const (
	GCI Format = iota
	GCS
	SAV
)

func (f Format) String() string {
	switch f {
	case GCI:
		return "gci"
	case GCS:
		return "gcs"
	case SAV:
		return "sav"
	}
	return fmt.Sprintf("unknown (%d)", int(f))
}

// FormatFromExtension returns the format implied by the filename extension.
// Used when writing. Unknown extensions are treated as GCI.
func FormatFromExtension(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gcs":
		return GCS
	case ".sav":
		return SAV
	}
	return GCI
}

// ParseFormat converts a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "gci":
		return GCI, nil
	case "gcs":
		return GCS, nil
	case "sav":
		return SAV, nil
	}
	return GCI, curated.Errorf(UnknownFormat, s)
}

// header sizes for each format. the directory entry is at the end of each
// header.
const (
	gciHeaderSize = memcard.DirEntrySize
	gcsHeaderSize = 0x150
	savHeaderSize = 0xc0
)

const (
	gcsMagic = "GCSAVE"
	savMagic = "DATELGC_SAVE"
)

func (f Format) headerSize() int {
	switch f {
	case GCS:
		return gcsHeaderSize
	case SAV:
		return savHeaderSize
	}
	return gciHeaderSize
}

func (f Format) entryOffset() int {
	return f.headerSize() - memcard.DirEntrySize
}

// Detect the format of a file from its size and the first bytes of the
// file. The header slice must contain at least as many bytes as the largest
// header, or all of the file if it is shorter.
func Detect(header []byte, size int64) (Format, error) {
	switch size % memcard.BlockSize {
	case gciHeaderSize:
		return GCI, nil
	case gcsHeaderSize:
		if bytes.HasPrefix(header, []byte(gcsMagic)) {
			return GCS, nil
		}
		return GCI, curated.Errorf(UnknownFormat, "missing GCS magic")
	case savHeaderSize:
		if bytes.HasPrefix(header, []byte(savMagic)) {
			return SAV, nil
		}
		return GCI, curated.Errorf(UnknownFormat, "missing SAV magic")
	}
	return GCI, curated.Errorf(UnknownFormat, fmt.Sprintf("unexpected file size (%d bytes)", size))
}

// swapSAV swaps the bytes of the fields that are stored in the wrong order
// by SAV files. the operation is its own inverse.
func swapSAV(entry []byte) {
	entry[0x06], entry[0x07] = entry[0x07], entry[0x06]
	for i := 0x2c; i < memcard.DirEntrySize; i += 2 {
		entry[i], entry[i+1] = entry[i+1], entry[i]
	}
}

// decodeEntry extracts the directory entry from a header of the given
// format. the block count is fixed up for GCS files.
func decodeEntry(header []byte, f Format, size int64) (memcard.DirEntry, error) {
	var entry memcard.DirEntry

	raw := make([]byte, memcard.DirEntrySize)
	copy(raw, header[f.entryOffset():])

	if f == SAV {
		swapSAV(raw)
	}
	entry.Unmarshal(raw)

	blocks := (size - int64(f.headerSize())) / memcard.BlockSize

	switch f {
	case GCS:
		// the block count stored in GCS files is not reliable
		entry.BlockCount = uint16(blocks)
	default:
		if int64(entry.BlockCount) != blocks {
			return entry, curated.Errorf(InvalidSave,
				fmt.Sprintf("entry says %d blocks but file has %d", entry.BlockCount, blocks))
		}
	}

	if entry.IsSentinel() {
		return entry, curated.Errorf(InvalidSave, "unused directory entry")
	}
	if entry.BlockCount == 0 {
		return entry, curated.Errorf(InvalidSave, "no data blocks")
	}

	return entry, nil
}

// ReadHeader reads just enough of the file to return the directory entry.
// The save data is not read.
func ReadHeader(filename string) (memcard.DirEntry, Format, error) {
	f, err := os.Open(filename)
	if err != nil {
		return memcard.DirEntry{}, GCI, curated.Errorf(ReadError, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return memcard.DirEntry{}, GCI, curated.Errorf(ReadError, err)
	}

	header := make([]byte, gcsHeaderSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return memcard.DirEntry{}, GCI, curated.Errorf(ReadError, err)
	}
	header = header[:n]

	format, err := Detect(header, st.Size())
	if err != nil {
		return memcard.DirEntry{}, GCI, err
	}
	if n < format.headerSize() {
		return memcard.DirEntry{}, format, curated.Errorf(InvalidSave, "truncated header")
	}

	entry, err := decodeEntry(header, format, st.Size())
	if err != nil {
		return entry, format, err
	}

	return entry, format, nil
}

// Read a save file of the given size from r.
func Read(r io.Reader, size int64) (memcard.SaveFile, Format, error) {
	var sf memcard.SaveFile

	header := make([]byte, min(size, gcsHeaderSize))
	if _, err := io.ReadFull(r, header); err != nil {
		return sf, GCI, curated.Errorf(ReadError, err)
	}

	format, err := Detect(header, size)
	if err != nil {
		return sf, GCI, err
	}
	if len(header) < format.headerSize() {
		return sf, format, curated.Errorf(InvalidSave, "truncated header")
	}

	sf.Entry, err = decodeEntry(header, format, size)
	if err != nil {
		return sf, format, err
	}

	// some of the first block may have been read along with the header
	pending := header[format.headerSize():]

	sf.Blocks = make([]memcard.Block, sf.Entry.BlockCount)
	for i := range sf.Blocks {
		n := copy(sf.Blocks[i][:], pending)
		pending = pending[n:]
		if _, err := io.ReadFull(r, sf.Blocks[i][n:]); err != nil {
			return sf, format, curated.Errorf(ReadError, err)
		}
	}

	return sf, format, nil
}

// Load the named save file.
func Load(filename string) (memcard.SaveFile, error) {
	f, err := os.Open(filename)
	if err != nil {
		return memcard.SaveFile{}, curated.Errorf(ReadError, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return memcard.SaveFile{}, curated.Errorf(ReadError, err)
	}

	sf, format, err := Read(f, st.Size())
	if err != nil {
		return memcard.SaveFile{}, err
	}

	if format != GCI {
		logger.Logf(logger.Allow, "savefile", "converted %s file: %s", format, filepath.Base(filename))
	}

	return sf, nil
}

// Write the save file to w in the specified format.
func Write(w io.Writer, sf memcard.SaveFile, format Format) error {
	if int(sf.Entry.BlockCount) != len(sf.Blocks) {
		return curated.Errorf(InvalidSave,
			fmt.Sprintf("entry says %d blocks but save has %d", sf.Entry.BlockCount, len(sf.Blocks)))
	}

	header := make([]byte, format.headerSize())

	entry := sf.Entry
	switch format {
	case GCS:
		copy(header, gcsMagic)
		entry.BlockCount = 1
	case SAV:
		copy(header, savMagic)
	}

	raw := header[format.entryOffset():]
	entry.Marshal(raw)
	if format == SAV {
		swapSAV(raw)
	}

	if _, err := w.Write(header); err != nil {
		return curated.Errorf(WriteError, err)
	}
	for i := range sf.Blocks {
		if _, err := w.Write(sf.Blocks[i][:]); err != nil {
			return curated.Errorf(WriteError, err)
		}
	}

	return nil
}

// Save writes the save file to the named file. The file is written in full
// before replacing any existing file.
func Save(filename string, sf memcard.SaveFile, format Format) error {
	tmp := filename + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return curated.Errorf(WriteError, err)
	}

	if err := Write(f, sf, format); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return curated.Errorf(WriteError, err)
	}

	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return curated.Errorf(WriteError, err)
	}

	return nil
}
