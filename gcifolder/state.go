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

package gcifolder

import (
	"encoding/gob"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/memcard"
)

// Sentinal error patterns.
const (
	StateError = "gcifolder: state: %v"
)

// the version of the state format. state of a different version cannot be
// restored.
const stateVersion = 1

type saveState struct {
	Entry      memcard.DirEntry
	Filename   string
	Dirty      bool
	UsedBlocks []uint16
	Resident   bool
	Blocks     []memcard.Block
}

type cardState struct {
	Version   int
	Dir       string
	SizeMbits uint16
	Meta      [memcard.NumMetadataBlocks]memcard.Block

	// saves by directory slot. deleted slots are included so that the slot
	// numbers are preserved
	Saves []saveState
}

// SaveState writes the state of the card to w. The state is compressed.
func (c *Card) SaveState(w io.Writer) error {
	c.crit.Lock()
	defer c.crit.Unlock()

	st := cardState{
		Version:   stateVersion,
		Dir:       c.dir,
		SizeMbits: c.sizeMbits,
		Meta:      c.meta,
		Saves:     make([]saveState, len(c.saves)),
	}

	for i, s := range c.saves {
		if s == nil {
			st.Saves[i].Entry = memcard.SentinelEntry()
			continue
		}
		st.Saves[i] = saveState{
			Entry:      s.entry,
			Filename:   s.filename,
			Dirty:      s.dirty,
			UsedBlocks: s.usedBlocks,
		}
		if p := s.blocks.Load(); p != nil {
			st.Saves[i].Resident = true
			st.Saves[i].Blocks = *p
		}
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return curated.Errorf(StateError, err)
	}

	if err := gob.NewEncoder(zw).Encode(&st); err != nil {
		_ = zw.Close()
		return curated.Errorf(StateError, err)
	}

	if err := zw.Close(); err != nil {
		return curated.Errorf(StateError, err)
	}

	return nil
}

// RestoreState replaces the state of the card with the state read from r.
func (c *Card) RestoreState(r io.Reader) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return curated.Errorf(StateError, err)
	}
	defer zr.Close()

	var st cardState
	if err := gob.NewDecoder(zr).Decode(&st); err != nil {
		return curated.Errorf(StateError, err)
	}

	if st.Version != stateVersion {
		return curated.Errorf(StateError, "unsupported state version")
	}
	if st.SizeMbits != c.sizeMbits {
		return curated.Errorf(StateError, "card size does not match")
	}

	saves := make([]*save, len(st.Saves))
	for i, ss := range st.Saves {
		s := &save{
			entry:      ss.Entry,
			filename:   ss.Filename,
			dirty:      ss.Dirty,
			usedBlocks: ss.UsedBlocks,
		}
		if ss.Resident {
			blocks := ss.Blocks
			s.blocks.Store(&blocks)
		}
		saves[i] = s
	}

	c.crit.Lock()
	defer c.crit.Unlock()

	c.dir = st.Dir
	c.meta = st.Meta
	c.saves = saves
	c.rebuildIndex()

	return nil
}
