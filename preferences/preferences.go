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

package preferences

import (
	"fmt"
	"time"

	"github.com/jetsetilly/gophercard/curated"
	"github.com/jetsetilly/gophercard/memcard"
	"github.com/jetsetilly/gophercard/paths"
	"github.com/jetsetilly/gophercard/prefs"
)

// Preferences defines and collates all the preference values used by the
// memory cards.
type Preferences struct {
	dsk *prefs.Disk

	// only load saves for the running title into a GCI folder card
	CurrentGameOnly prefs.Bool

	// milliseconds after the last write before changes are written to disk
	FlushDelay prefs.Int

	// percentage of the card kept free when loading saves for other titles
	Reserve prefs.Int

	// maximum number of directory entries used by saves for other titles
	MaxOtherSaves prefs.Int

	// size of a virtual card in megabits
	SizeMbits prefs.Int

	// encoding and console settings written to the header of new cards
	ShiftJIS prefs.Bool
	Language prefs.Int
	RTCBias  prefs.Int

	// if false then changes to a card are not written to disk
	Writable prefs.Bool
}

func (p *Preferences) String() string {
	return p.dsk.String()
}

// NewPreferences is the preferred method of initialisation for the
// Preferences type.
func NewPreferences() (*Preferences, error) {
	pth, err := paths.ResourcePath("", prefs.DefaultPrefsFile)
	if err != nil {
		return nil, err
	}
	return NewPreferencesFile(pth)
}

// NewPreferencesFile is like NewPreferences but with the preferences file
// specified.
func NewPreferencesFile(pth string) (*Preferences, error) {
	p := &Preferences{}
	p.SetDefaults()

	p.SizeMbits.SetHookPre(func(v prefs.Value) error {
		n, ok := v.(int)
		if !ok || n < 0 || n > 0xffff || !memcard.IsValidSize(uint16(n)) {
			return fmt.Errorf("unsupported card size (%v)", v)
		}
		return nil
	})
	p.Reserve.SetHookPre(func(v prefs.Value) error {
		if n, ok := v.(int); !ok || n < 0 || n > 100 {
			return fmt.Errorf("reserve must be a percentage (%v)", v)
		}
		return nil
	})
	p.MaxOtherSaves.SetHookPre(func(v prefs.Value) error {
		if n, ok := v.(int); !ok || n < 0 || n > memcard.DirLen {
			return fmt.Errorf("too many saves (%v)", v)
		}
		return nil
	})

	var err error
	p.dsk, err = prefs.NewDisk(pth)
	if err != nil {
		return nil, err
	}

	err = p.dsk.Add("gcifolder.currentgameonly", &p.CurrentGameOnly)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("gcifolder.flushdelay", &p.FlushDelay)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("gcifolder.reserve", &p.Reserve)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("gcifolder.maxothersaves", &p.MaxOtherSaves)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("card.sizembits", &p.SizeMbits)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("card.shiftjis", &p.ShiftJIS)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("card.language", &p.Language)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("card.rtcbias", &p.RTCBias)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("card.writable", &p.Writable)
	if err != nil {
		return nil, err
	}

	err = p.dsk.Load(true)
	if err != nil {
		// ignore missing prefs file errors
		if !curated.Is(err, prefs.NoPrefsFile) {
			return nil, err
		}
	}

	return p, nil
}

// SetDefaults reverts all preferences to their default values.
func (p *Preferences) SetDefaults() {
	_ = p.CurrentGameOnly.Set(false)
	_ = p.FlushDelay.Set(1000)
	_ = p.Reserve.Set(10)
	_ = p.MaxOtherSaves.Set(112)
	_ = p.SizeMbits.Set(int(memcard.MemCard2043Mb))
	_ = p.ShiftJIS.Set(false)
	_ = p.Language.Set(0)
	_ = p.RTCBias.Set(0)
	_ = p.Writable.Set(true)
}

// Load current preferences from disk.
func (p *Preferences) Load() error {
	return p.dsk.Load(false)
}

// Save current preferences to disk.
func (p *Preferences) Save() error {
	return p.dsk.Save()
}

// FlushInterval returns the FlushDelay value as a time.Duration.
func (p *Preferences) FlushInterval() time.Duration {
	return time.Duration(p.FlushDelay.Get().(int)) * time.Millisecond
}

// CardSize returns the SizeMbits value.
func (p *Preferences) CardSize() uint16 {
	return uint16(p.SizeMbits.Get().(int))
}

// FormatParams returns the parameters for formatting a new card with the
// current preferences. The flash ID identifies the physical card.
func (p *Preferences) FormatParams(flashID [12]byte, formatTime time.Time) memcard.FormatParams {
	return memcard.FormatParams{
		FlashID:    flashID,
		SizeMbits:  p.CardSize(),
		ShiftJIS:   p.ShiftJIS.Get().(bool),
		RTCBias:    uint32(p.RTCBias.Get().(int)),
		Language:   uint32(p.Language.Get().(int)),
		FormatTime: memcard.FormatTime(formatTime),
	}
}
