// Package decoder turns raw evdev keycodes into keysyms and text.
//
// A Decoder owns one compiled keymap and the modifier state of one
// keyboard. It is not safe for concurrent use; hand decoded results to
// other goroutines instead of sharing the Decoder.
package decoder

import (
	"fmt"
	"unicode/utf8"

	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/keymap"
)

type Decoder struct {
	keymap *keymap.Keymap
	state  *keymap.State
	syms   []keymap.Keysym
}

// New compiles the keymap for layout. An empty layout means the keymap
// default. There is no decoder without a keymap, so the error is fatal to
// the caller.
func New(layout string) (*Decoder, error) {
	km, err := keymap.Compile(layout)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	return &Decoder{keymap: km, state: keymap.NewState(km)}, nil
}

func (d *Decoder) Keymap() *keymap.Keymap { return d.keymap }

func (d *Decoder) Layout() string { return d.keymap.Layout() }

// Mods returns the effective modifiers.
func (d *Decoder) Mods() keymap.Modifier { return d.state.Mods() }

func xkbCode(raw uint32) uint32 { return raw + keymap.EvdevOffset }

// Keysyms returns the keysyms bound to a raw keycode under the current
// state. The slice is owned by the Decoder and is only valid until the
// next call; copy it to keep it.
func (d *Decoder) Keysyms(raw uint32) []keymap.Keysym {
	d.syms = append(d.syms[:0], d.state.KeySyms(xkbCode(raw))...)
	return d.syms
}

// Chars returns the characters a raw keycode types under the current
// state. Keys that type nothing, such as modifiers and function keys,
// return an empty slice.
func (d *Decoder) Chars(raw uint32) []rune {
	syms := d.state.KeySyms(xkbCode(raw))
	ctrl := d.state.Mods()&keymap.ModControl != 0
	chars := make([]rune, 0, len(syms))
	for _, s := range syms {
		r := s.Rune()
		if r == 0 {
			continue
		}
		if ctrl {
			r = controlChar(r)
		}
		chars = append(chars, r)
	}
	return chars
}

// Text is Chars encoded as UTF-8.
func (d *Decoder) Text(raw uint32) string {
	chars := d.Chars(raw)
	buf := make([]byte, 0, len(chars)*utf8.UTFMax)
	for _, r := range chars {
		buf = utf8.AppendRune(buf, r)
	}
	return string(buf)
}

// UpdateKey feeds a key transition into the modifier state. Repeats never
// change state. It reports whether the state changed.
func (d *Decoder) UpdateKey(raw uint32, state event.KeyState) bool {
	switch state {
	case event.KeyPressed:
		return d.state.UpdateKey(xkbCode(raw), true)
	case event.KeyReleased:
		return d.state.UpdateKey(xkbCode(raw), false)
	}
	return false
}

// SetGroup locks the active layout group.
func (d *Decoder) SetGroup(g int) { d.state.SetGroup(g) }

// Reset drops all held modifiers and locks, e.g. after the session lost
// its devices and key releases may have been missed.
func (d *Decoder) Reset() { d.state.Reset() }

// controlChar applies the Control transformation: @, letters and [\]^_
// map to C0 controls and space maps to NUL.
func controlChar(r rune) rune {
	switch {
	case r >= '@' && r < '\x7f':
		return r & 0x1f
	case r == ' ':
		return 0
	}
	return r
}
