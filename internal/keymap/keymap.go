// Package keymap compiles keyboard layouts into immutable keycode → keysym
// tables and tracks the modifier state used to pick a level.
//
// Keycodes in this package are XKB keycodes, i.e. evdev codes plus
// EvdevOffset.
package keymap

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	evdev "github.com/holoplot/go-evdev"
)

// EvdevOffset is added to an evdev keycode to get the XKB keycode. It comes
// from the X11 keycode range, which starts at 8.
const EvdevOffset = 8

// DefaultLayout is compiled for the empty (auto) identifier when system
// keymaps are unavailable.
const DefaultLayout = "us"

const maxGroups = 4

var (
	ErrUnknownLayout   = errors.New("unknown layout")
	ErrMalformedLayout = errors.New("malformed layout identifier")
)

// CompileError reports a layout identifier that cannot be compiled.
type CompileError struct {
	Layout string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("keymap compilation for layout %q: %v", e.Layout, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

type keyKind int

const (
	kindOneLevel keyKind = iota
	kindTwoLevel
	kindAlphabetic
	kindFourLevel
	kindFourLevelAlphabetic
	kindKeypad
)

type key struct {
	kind   keyKind
	levels [][]Keysym
}

// Keymap is a compiled layout. It is immutable and safe to share, but the
// slices it returns must not be modified.
type Keymap struct {
	id      string
	groups  []string
	keys    map[uint32][]*key
	codes   []uint32
	reverse map[Keysym]Position
}

// Position locates a keysym in a keymap.
type Position struct {
	Keycode uint32
	Group   int
	Level   int
}

var layoutElem = regexp.MustCompile(`^([a-z]{2,})(?:\(([a-z0-9_-]*)\))?$`)

// GroupToggle is the xkb option multi-group keymaps are compiled with:
// Alt pressed while Shift is held locks the next group.
const GroupToggle = "grp:alt_shift_toggle"

// Compile builds the keymap for a layout identifier of the form
// layout[(variant)][,layout...]. Each comma-separated layout becomes a
// group. Built-in layouts are compiled from this package's tables. When
// the binary is built with system keymaps, other layouts and the empty
// (auto) identifier are compiled by libxkbcommon from the system's xkb
// data; otherwise the empty identifier compiles DefaultLayout.
func Compile(id string) (*Keymap, error) {
	if id == "" && SystemKeymaps {
		return compileSystem(id)
	}
	names, err := parseLayouts(id)
	if errors.Is(err, ErrUnknownLayout) && SystemKeymaps {
		return compileSystem(id)
	}
	if err != nil {
		return nil, &CompileError{Layout: id, Err: err}
	}

	km := newKeymap(id, names)
	for g, name := range names {
		def := layouts[name]
		for code, syms := range commonKeys(def.level3) {
			km.set(uint32(code)+EvdevOffset, g, newKey(syms))
		}
		for code, chars := range def.keys {
			syms := make([]Keysym, 0, len(chars))
			for _, r := range chars {
				syms = append(syms, FromRune(r))
			}
			km.set(uint32(code)+EvdevOffset, g, newKey(syms))
		}
		if len(names) > 1 {
			km.set(uint32(evdev.KEY_LEFTALT)+EvdevOffset, g, newKey([]Keysym{KeyAltL, KeyNextGroup}))
		}
	}
	km.index()
	return km, nil
}

func newKeymap(id string, groups []string) *Keymap {
	return &Keymap{
		id:      id,
		groups:  groups,
		keys:    make(map[uint32][]*key),
		reverse: make(map[Keysym]Position),
	}
}

// index sorts the keycodes and builds the reverse lookup table.
func (km *Keymap) index() {
	km.codes = km.codes[:0]
	for code := range km.keys {
		km.codes = append(km.codes, code)
	}
	sort.Slice(km.codes, func(i, j int) bool { return km.codes[i] < km.codes[j] })
	for _, code := range km.codes {
		for g, k := range km.keys[code] {
			if k == nil {
				continue
			}
			for l, syms := range k.levels {
				for _, s := range syms {
					if _, seen := km.reverse[s]; !seen && s != NoSymbol {
						km.reverse[s] = Position{Keycode: code, Group: g, Level: l}
					}
				}
			}
		}
	}
}

type layoutElement struct {
	name, variant string
}

// splitLayouts parses an identifier without checking the names against
// the built-in tables.
func splitLayouts(id string) ([]layoutElement, error) {
	parts := strings.Split(id, ",")
	if len(parts) > maxGroups {
		return nil, fmt.Errorf("%w: more than %d groups", ErrMalformedLayout, maxGroups)
	}
	elems := make([]layoutElement, 0, len(parts))
	for _, p := range parts {
		m := layoutElem.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedLayout, p)
		}
		elems = append(elems, layoutElement{name: m[1], variant: m[2]})
	}
	return elems, nil
}

func parseLayouts(id string) ([]string, error) {
	if id == "" {
		return []string{DefaultLayout}, nil
	}
	elems, err := splitLayouts(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(elems))
	for _, e := range elems {
		if _, ok := layouts[e.name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, e.name)
		}
		if e.variant != "" {
			return nil, fmt.Errorf("%w: variant %q of %q", ErrUnknownLayout, e.variant, e.name)
		}
		names = append(names, e.name)
	}
	return names, nil
}

func (km *Keymap) set(code uint32, group int, k *key) {
	groups := km.keys[code]
	for len(groups) <= group {
		groups = append(groups, nil)
	}
	groups[group] = k
	km.keys[code] = groups
}

func newKey(syms []Keysym) *key {
	k := &key{levels: make([][]Keysym, len(syms))}
	for i, s := range syms {
		k.levels[i] = []Keysym{s}
	}
	switch {
	case len(syms) == 1:
		k.kind = kindOneLevel
	case isKeypad(syms[0]):
		k.kind = kindKeypad
	case len(syms) == 2 && isAlphabetic(syms):
		k.kind = kindAlphabetic
	case len(syms) == 2:
		k.kind = kindTwoLevel
	case isAlphabetic(syms):
		k.kind = kindFourLevelAlphabetic
	default:
		k.kind = kindFourLevel
	}
	return k
}

func isKeypad(s Keysym) bool {
	return s >= KeyKPSpace && s <= KeyKPEqual
}

func isAlphabetic(syms []Keysym) bool {
	lo, up := syms[0].Rune(), syms[1].Rune()
	return unicode.IsLower(lo) && unicode.ToUpper(lo) == up
}

// Layout returns the identifier the keymap was compiled from.
func (km *Keymap) Layout() string { return km.id }

// Groups returns the layout name of each group.
func (km *Keymap) Groups() []string { return km.groups }

// Keycodes returns every keycode with at least one binding, ascending.
func (km *Keymap) Keycodes() []uint32 { return km.codes }

func (km *Keymap) key(code uint32, group int) *key {
	groups := km.keys[code]
	if len(groups) == 0 {
		return nil
	}
	if group < 0 || group >= len(groups) || groups[group] == nil {
		group = 0
	}
	return groups[group]
}

// NumLevels returns how many shift levels a key has in a group.
func (km *Keymap) NumLevels(code uint32, group int) int {
	k := km.key(code, group)
	if k == nil {
		return 0
	}
	return len(k.levels)
}

// KeySyms returns the keysyms bound to a keycode at a group and level. A
// group the key does not define falls back to the first group. The result
// aliases the keymap and must not be modified.
func (km *Keymap) KeySyms(code uint32, group, level int) []Keysym {
	k := km.key(code, group)
	if k == nil || level < 0 || level >= len(k.levels) {
		return nil
	}
	return k.levels[level]
}

// Lookup finds the lowest keycode, group and level producing s.
func (km *Keymap) Lookup(s Keysym) (Position, bool) {
	p, ok := km.reverse[s]
	return p, ok
}
