package keymap

import (
	"slices"
	"strings"
)

// Modifier is a bit set of active modifiers.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCapsLock
	ModControl
	ModAlt
	ModNumLock
	ModSuper
	ModLevel3
)

const lockMods = ModCapsLock | ModNumLock

func (m Modifier) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, p := range []struct {
		mod  Modifier
		name string
	}{
		{ModShift, "shift"}, {ModCapsLock, "caps"}, {ModControl, "ctrl"}, {ModAlt, "alt"},
		{ModNumLock, "num"}, {ModSuper, "super"}, {ModLevel3, "level3"},
	} {
		if m&p.mod != 0 {
			parts = append(parts, p.name)
		}
	}
	return strings.Join(parts, "+")
}

// State is the mutable modifier, lock and group state of one keyboard.
// It is not safe for concurrent use.
type State struct {
	km     *Keymap
	held   map[uint32]Modifier
	locked Modifier
	group  int
}

func NewState(km *Keymap) *State {
	return &State{km: km, held: make(map[uint32]Modifier)}
}

// Mods returns the effective modifiers: held keys plus active locks.
func (s *State) Mods() Modifier {
	m := s.locked
	for _, h := range s.held {
		m |= h
	}
	return m
}

func (s *State) Group() int { return s.group }

// SetGroup locks a group, wrapping out-of-range values.
func (s *State) SetGroup(g int) {
	n := len(s.km.groups)
	s.group = ((g % n) + n) % n
}

// Reset releases every held key and clears locks and the group.
func (s *State) Reset() {
	clear(s.held)
	s.locked = 0
	s.group = 0
}

// Level returns the shift level a keycode resolves to under the current
// state.
func (s *State) Level(code uint32) int {
	k := s.km.key(code, s.group)
	if k == nil || len(k.levels) == 1 {
		return 0
	}
	mods := s.Mods()
	shift := mods&ModShift != 0
	switch k.kind {
	case kindAlphabetic, kindFourLevelAlphabetic:
		if mods&ModCapsLock != 0 {
			shift = !shift
		}
	case kindKeypad:
		if mods&ModNumLock != 0 {
			shift = !shift
		}
	}
	level := 0
	if shift {
		level = 1
	}
	if mods&ModLevel3 != 0 && len(k.levels) > 2 {
		level += 2
	}
	if level >= len(k.levels) {
		level = len(k.levels) - 1
	}
	return level
}

// KeySyms returns the keysyms a keycode produces under the current state.
// The result aliases the keymap and must not be modified.
func (s *State) KeySyms(code uint32) []Keysym {
	return s.km.KeySyms(code, s.group, s.Level(code))
}

// UpdateKey applies a key transition. It reports whether the modifier,
// lock or group state changed. Keys that are not modifiers leave the
// state untouched. Group switching follows the key's current level, so
// with GroupToggle Shift+Alt locks the next group while Alt alone stays
// a modifier.
func (s *State) UpdateKey(code uint32, pressed bool) bool {
	if !pressed {
		if _, ok := s.held[code]; ok {
			delete(s.held, code)
			return true
		}
	}
	if slices.Contains(s.KeySyms(code), KeyNextGroup) {
		if pressed && len(s.km.groups) > 1 {
			s.SetGroup(s.group + 1)
			return true
		}
		return false
	}

	syms := s.km.KeySyms(code, s.group, 0)
	if len(syms) == 0 {
		return false
	}
	mod := modifierOf(syms[0])
	switch {
	case mod == 0, !pressed:
		return false
	case mod&lockMods != 0:
		s.locked ^= mod
		return true
	case s.held[code] == mod:
		return false
	}
	s.held[code] = mod
	return true
}
