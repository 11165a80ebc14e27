// Package inject types text through a uinput virtual keyboard. Keys are
// chosen with the keymap's reverse lookup, so the text comes out right as
// long as the compositor uses the same layout.
package inject

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bendahl/uinput"

	"github.com/andresousadotpt/seatkeys/internal/keymap"
)

// DevicePath is the uinput control node.
const DevicePath = "/dev/uinput"

// DefaultDelay paces keystrokes so slow consumers do not drop them.
const DefaultDelay = 8 * time.Millisecond

var ErrUntypable = errors.New("no key types this character")

// Keyboard is the part of uinput.Keyboard typing needs.
type Keyboard interface {
	KeyDown(key int) error
	KeyUp(key int) error
	KeyPress(key int) error
}

// NewVirtualKeyboard creates a uinput keyboard. The caller closes it.
func NewVirtualKeyboard(name string) (uinput.Keyboard, error) {
	kbd, err := uinput.CreateKeyboard(DevicePath, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	return kbd, nil
}

// Stroke is one key press with the modifiers held around it. Key is an
// evdev keycode.
type Stroke struct {
	Key   int
	Shift bool
	AltGr bool
}

func (s Stroke) String() string {
	prefix := ""
	if s.Shift {
		prefix += "shift+"
	}
	if s.AltGr {
		prefix += "altgr+"
	}
	return fmt.Sprintf("%s%d", prefix, s.Key)
}

type Typist struct {
	kbd   Keyboard
	km    *keymap.Keymap
	delay time.Duration
	log   *slog.Logger
}

func NewTypist(kbd Keyboard, km *keymap.Keymap, delay time.Duration, log *slog.Logger) *Typist {
	if log == nil {
		log = slog.Default()
	}
	return &Typist{kbd: kbd, km: km, delay: delay, log: log}
}

var controlKeysyms = map[rune]keymap.Keysym{
	'\n': keymap.KeyReturn,
	'\r': keymap.KeyReturn,
	'\t': keymap.KeyTab,
	'\b': keymap.KeyBackSpace,
	0x1b: keymap.KeyEscape,
}

func keysymFor(r rune) keymap.Keysym {
	if s, ok := controlKeysyms[r]; ok {
		return s
	}
	return keymap.FromRune(r)
}

// find locates sym in the first group, since a virtual keyboard cannot
// switch the compositor's group.
func (t *Typist) find(sym keymap.Keysym) (keymap.Position, bool) {
	if p, ok := t.km.Lookup(sym); ok && p.Group == 0 {
		return p, true
	}
	for _, code := range t.km.Keycodes() {
		for l := 0; l < t.km.NumLevels(code, 0); l++ {
			for _, s := range t.km.KeySyms(code, 0, l) {
				if s == sym {
					return keymap.Position{Keycode: code, Level: l}, true
				}
			}
		}
	}
	return keymap.Position{}, false
}

// Plan returns the strokes that type text, without sending anything.
func (t *Typist) Plan(text string) ([]Stroke, error) {
	strokes := make([]Stroke, 0, len(text))
	for i, r := range text {
		p, ok := t.find(keysymFor(r))
		if !ok {
			return nil, fmt.Errorf("%q at offset %d: %w", r, i, ErrUntypable)
		}
		strokes = append(strokes, Stroke{
			Key:   int(p.Keycode - keymap.EvdevOffset),
			Shift: p.Level%2 == 1,
			AltGr: p.Level >= 2,
		})
	}
	return strokes, nil
}

// Type sends text. Nothing is sent when any character is untypable.
func (t *Typist) Type(text string) error {
	strokes, err := t.Plan(text)
	if err != nil {
		return err
	}
	for _, s := range strokes {
		if err := t.stroke(s); err != nil {
			return err
		}
		time.Sleep(t.delay)
	}
	t.log.Debug("typed text", "strokes", len(strokes), "layout", t.km.Layout())
	return nil
}

func (t *Typist) stroke(s Stroke) (err error) {
	var held []int
	if s.Shift {
		held = append(held, uinput.KeyLeftshift)
	}
	if s.AltGr {
		held = append(held, uinput.KeyRightalt)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			err = errors.Join(err, t.kbd.KeyUp(held[i]))
		}
	}()
	for _, k := range held {
		if err := t.kbd.KeyDown(k); err != nil {
			return fmt.Errorf("press modifier %d: %w", k, err)
		}
	}
	if err := t.kbd.KeyPress(s.Key); err != nil {
		return fmt.Errorf("press key %d: %w", s.Key, err)
	}
	return nil
}
