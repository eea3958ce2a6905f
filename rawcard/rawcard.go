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

package rawcard

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/debounce"
	"github.com/jetsetilly/gophercard/environment"
	"github.com/jetsetilly/gophercard/logger"
	"github.com/jetsetilly/gophercard/memcard"
)

// Sentinal error patterns.
const (
	ImageError = "rawcard: %v"
)

// Card is a memory card backed by an image file. It implements the
// memcard.Device interface.
type Card struct {
	env      *environment.Environment
	filename string

	// write, clear and flush operations
	crit sync.Mutex

	// amend data only with the critical section locked
	data  []byte
	dirty bool

	flush *debounce.Task
}

// NewCard opens the image file, creating it if it does not exist.
func NewCard(env *environment.Environment, filename string) (*Card, error) {
	c := &Card{
		env:      env,
		filename: filename,
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, curated.Errorf(ImageError, err)
		}

		params := env.Prefs.FormatParams(memcard.FlashID(filename), time.Now())
		mc, err := memcard.Create(filename, params)
		if err != nil {
			return nil, curated.Errorf(ImageError, err)
		}
		data = mc.Bytes()

		logger.Logf(c.env, "rawcard", "created %s", filename)
	} else {
		// the image is used as it is even if it has problems. the console
		// will report those problems to the running title
		_, issues, err := memcard.Open(data)
		if err != nil {
			if issues.Has(memcard.BadCardSize) {
				return nil, curated.Errorf(ImageError, err)
			}
			logger.Logf(c.env, "rawcard", "%s: %v", filename, err)
		} else if issues != 0 {
			logger.Logf(c.env, "rawcard", "%s: %v", filename, issues)
		}

		logger.Logf(c.env, "rawcard", "loaded %s", filename)
	}

	c.data = data

	c.flush = debounce.NewTask(env.Prefs.FlushInterval(), func() {
		if err := c.Flush(); err != nil {
			logger.Log(c.env, "rawcard", err.Error())
		}
	})

	return c, nil
}

// Close the card. Any outstanding changes are written to disk.
func (c *Card) Close() {
	c.flush.Close()
}

// Filename returns the name of the image file.
func (c *Card) Filename() string {
	return c.filename
}

// Read implements the memcard.Device interface. Read does not wait for
// writes to complete.
func (c *Card) Read(address uint32, length int) []byte {
	out := make([]byte, length)

	var n int
	if int(address) < len(c.data) {
		n = copy(out, c.data[address:])
	}
	for i := n; i < length; i++ {
		out[i] = 0xff
	}

	return out
}

// Write implements the memcard.Device interface.
func (c *Card) Write(address uint32, data []byte) int {
	c.crit.Lock()
	defer c.crit.Unlock()

	if int(address) >= len(c.data) {
		logger.Logf(c.env, "rawcard", "write beyond end of card (%#x)", address)
		return 0
	}

	n := copy(c.data[address:], data)
	c.dirty = true
	c.flush.Trigger()

	return n
}

// ClearBlock implements the memcard.Device interface. The block is filled
// with zero bytes.
func (c *Card) ClearBlock(address uint32) {
	if address%memcard.BlockSize != 0 {
		logger.Logf(c.env, "rawcard", "clear block with unaligned address %#x", address)
		return
	}

	c.crit.Lock()
	defer c.crit.Unlock()

	if int(address)+memcard.BlockSize > len(c.data) {
		logger.Logf(c.env, "rawcard", "clear block beyond end of card (%#x)", address)
		return
	}

	clear(c.data[address : address+memcard.BlockSize])
	c.dirty = true
	c.flush.Trigger()
}

// Flush writes the image to disk if it has changed.
func (c *Card) Flush() error {
	c.crit.Lock()
	if !c.dirty {
		c.crit.Unlock()
		return nil
	}
	buf := make([]byte, len(c.data))
	copy(buf, c.data)
	c.dirty = false
	c.crit.Unlock()

	if !c.env.Prefs.Writable.Get().(bool) {
		return nil
	}

	tmp := c.filename + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return curated.Errorf(ImageError, err)
	}
	if err := os.Rename(tmp, c.filename); err != nil {
		_ = os.Remove(tmp)
		return curated.Errorf(ImageError, err)
	}

	logger.Logf(c.env, "rawcard", "saved %s", c.filename)

	return nil
}

// Memcard parses the current contents of the card.
func (c *Card) Memcard() (*memcard.Card, memcard.Issues, error) {
	c.crit.Lock()
	buf := make([]byte, len(c.data))
	copy(buf, c.data)
	c.crit.Unlock()

	return memcard.Open(buf)
}
