package keymap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Keysym is an X11 keysym value: the meaning of a key independent of its
// physical position.
type Keysym uint32

const (
	NoSymbol Keysym = 0

	KeySpace Keysym = 0x0020

	KeyBackSpace  Keysym = 0xff08
	KeyTab        Keysym = 0xff09
	KeyLinefeed   Keysym = 0xff0a
	KeyClear      Keysym = 0xff0b
	KeyReturn     Keysym = 0xff0d
	KeyPause      Keysym = 0xff13
	KeyScrollLock Keysym = 0xff14
	KeySysReq     Keysym = 0xff15
	KeyEscape     Keysym = 0xff1b
	KeyDelete     Keysym = 0xffff

	KeyHome     Keysym = 0xff50
	KeyLeft     Keysym = 0xff51
	KeyUp       Keysym = 0xff52
	KeyRight    Keysym = 0xff53
	KeyDown     Keysym = 0xff54
	KeyPageUp   Keysym = 0xff55
	KeyPageDown Keysym = 0xff56
	KeyEnd      Keysym = 0xff57
	KeyBegin    Keysym = 0xff58
	KeyPrint    Keysym = 0xff61
	KeyInsert   Keysym = 0xff63
	KeyMenu     Keysym = 0xff67
	KeyNumLock  Keysym = 0xff7f

	KeyKPSpace    Keysym = 0xff80
	KeyKPTab      Keysym = 0xff89
	KeyKPEnter    Keysym = 0xff8d
	KeyKPHome     Keysym = 0xff95
	KeyKPLeft     Keysym = 0xff96
	KeyKPUp       Keysym = 0xff97
	KeyKPRight    Keysym = 0xff98
	KeyKPDown     Keysym = 0xff99
	KeyKPPageUp   Keysym = 0xff9a
	KeyKPPageDown Keysym = 0xff9b
	KeyKPEnd      Keysym = 0xff9c
	KeyKPBegin    Keysym = 0xff9d
	KeyKPInsert   Keysym = 0xff9e
	KeyKPDelete   Keysym = 0xff9f
	KeyKPEqual    Keysym = 0xffbd
	KeyKPMultiply Keysym = 0xffaa
	KeyKPAdd      Keysym = 0xffab
	KeyKPSep      Keysym = 0xffac
	KeyKPSubtract Keysym = 0xffad
	KeyKPDecimal  Keysym = 0xffae
	KeyKPDivide   Keysym = 0xffaf
	KeyKP0        Keysym = 0xffb0

	KeyF1 Keysym = 0xffbe

	KeyShiftL    Keysym = 0xffe1
	KeyShiftR    Keysym = 0xffe2
	KeyControlL  Keysym = 0xffe3
	KeyControlR  Keysym = 0xffe4
	KeyCapsLock  Keysym = 0xffe5
	KeyMetaL     Keysym = 0xffe7
	KeyMetaR     Keysym = 0xffe8
	KeyAltL      Keysym = 0xffe9
	KeyAltR      Keysym = 0xffea
	KeySuperL    Keysym = 0xffeb
	KeySuperR    Keysym = 0xffec
	KeyLevel3    Keysym = 0xfe03 // ISO_Level3_Shift
	KeyNextGroup Keysym = 0xfe08 // ISO_Next_Group

	KeyEuroSign Keysym = 0x20ac

	unicodeOffset Keysym = 0x01000000
)

// KeyF returns the keysym of function key n (1-based).
func KeyF(n int) Keysym { return KeyF1 + Keysym(n-1) }

var symNames = map[Keysym]string{
	KeyBackSpace: "BackSpace", KeyTab: "Tab", KeyLinefeed: "Linefeed", KeyClear: "Clear",
	KeyReturn: "Return", KeyPause: "Pause", KeyScrollLock: "Scroll_Lock", KeySysReq: "Sys_Req",
	KeyEscape: "Escape", KeyDelete: "Delete",
	KeyHome: "Home", KeyLeft: "Left", KeyUp: "Up", KeyRight: "Right", KeyDown: "Down",
	KeyPageUp: "Prior", KeyPageDown: "Next", KeyEnd: "End", KeyBegin: "Begin",
	KeyPrint: "Print", KeyInsert: "Insert", KeyMenu: "Menu", KeyNumLock: "Num_Lock",
	KeyKPSpace: "KP_Space", KeyKPTab: "KP_Tab", KeyKPEnter: "KP_Enter",
	KeyKPHome: "KP_Home", KeyKPLeft: "KP_Left", KeyKPUp: "KP_Up", KeyKPRight: "KP_Right",
	KeyKPDown: "KP_Down", KeyKPPageUp: "KP_Prior", KeyKPPageDown: "KP_Next", KeyKPEnd: "KP_End",
	KeyKPBegin: "KP_Begin", KeyKPInsert: "KP_Insert", KeyKPDelete: "KP_Delete", KeyKPEqual: "KP_Equal",
	KeyKPMultiply: "KP_Multiply", KeyKPAdd: "KP_Add", KeyKPSep: "KP_Separator",
	KeyKPSubtract: "KP_Subtract", KeyKPDecimal: "KP_Decimal", KeyKPDivide: "KP_Divide",
	KeyShiftL: "Shift_L", KeyShiftR: "Shift_R", KeyControlL: "Control_L", KeyControlR: "Control_R",
	KeyCapsLock: "Caps_Lock", KeyMetaL: "Meta_L", KeyMetaR: "Meta_R", KeyAltL: "Alt_L", KeyAltR: "Alt_R",
	KeySuperL: "Super_L", KeySuperR: "Super_R", KeyLevel3: "ISO_Level3_Shift", KeyNextGroup: "ISO_Next_Group",
	KeyEuroSign: "EuroSign",

	' ': "space", '!': "exclam", '"': "quotedbl", '#': "numbersign", '$': "dollar", '%': "percent",
	'&': "ampersand", '\'': "apostrophe", '(': "parenleft", ')': "parenright", '*': "asterisk",
	'+': "plus", ',': "comma", '-': "minus", '.': "period", '/': "slash", ':': "colon",
	';': "semicolon", '<': "less", '=': "equal", '>': "greater", '?': "question", '@': "at",
	'[': "bracketleft", '\\': "backslash", ']': "bracketright", '^': "asciicircum",
	'_': "underscore", '`': "grave", '{': "braceleft", '|': "bar", '}': "braceright", '~': "asciitilde",

	0xa3: "sterling", 0xa4: "currency", 0xa6: "brokenbar", 0xa7: "section", 0xa8: "diaeresis",
	0xac: "notsign", 0xb0: "degree", 0xb2: "twosuperior", 0xb3: "threesuperior", 0xb4: "acute",
	0xb5: "mu", 0xdf: "ssharp", 0xe0: "agrave", 0xe4: "adiaeresis", 0xe7: "ccedilla",
	0xe8: "egrave", 0xe9: "eacute", 0xf6: "odiaeresis", 0xf9: "ugrave", 0xfc: "udiaeresis",
	0xc4: "Adiaeresis", 0xd6: "Odiaeresis", 0xdc: "Udiaeresis",
}

var nameSyms = func() map[string]Keysym {
	m := make(map[string]Keysym, len(symNames))
	for s, n := range symNames {
		m[n] = s
	}
	return m
}()

// String returns the keysym's conventional name, "U<hex>" for other
// Unicode keysyms, or "0x<hex>" when it has no name.
func (s Keysym) String() string {
	if n, ok := symNames[s]; ok {
		return n
	}
	if s >= KeyF1 && s < KeyF1+35 {
		return "F" + strconv.Itoa(int(s-KeyF1)+1)
	}
	if s >= KeyKP0 && s <= KeyKP0+9 {
		return "KP_" + strconv.Itoa(int(s-KeyKP0))
	}
	if s == NoSymbol {
		return "NoSymbol"
	}
	if ('0' <= s && s <= '9') || ('a' <= s && s <= 'z') || ('A' <= s && s <= 'Z') {
		return string(rune(s))
	}
	if r := s.Rune(); r != 0 && unicode.IsPrint(r) {
		return fmt.Sprintf("U%04X", r)
	}
	return fmt.Sprintf("0x%x", uint32(s))
}

// ParseKeysym is the inverse of String. A single printable character is
// also accepted.
func ParseKeysym(name string) (Keysym, bool) {
	if s, ok := nameSyms[name]; ok {
		return s, true
	}
	if name == "NoSymbol" {
		return NoSymbol, true
	}
	if len(name) > 1 && name[0] == 'F' {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 35 {
			return KeyF(n), true
		}
	}
	if strings.HasPrefix(name, "KP_") {
		if n, err := strconv.Atoi(name[3:]); err == nil && n >= 0 && n <= 9 {
			return KeyKP0 + Keysym(n), true
		}
	}
	if len(name) > 1 && name[0] == 'U' {
		if cp, err := strconv.ParseUint(name[1:], 16, 32); err == nil {
			return FromRune(rune(cp)), true
		}
	}
	if len(name) > 2 && strings.HasPrefix(name, "0x") {
		if v, err := strconv.ParseUint(name[2:], 16, 32); err == nil {
			return Keysym(v), true
		}
	}
	if r := []rune(name); len(r) == 1 {
		return FromRune(r[0]), true
	}
	return NoSymbol, false
}

// FromRune returns the keysym that types r.
func FromRune(r rune) Keysym {
	switch {
	case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
		return Keysym(r)
	case r == 0x20ac:
		return KeyEuroSign
	}
	return unicodeOffset + Keysym(r)
}

var controlRunes = map[Keysym]rune{
	KeyBackSpace: '\b', KeyTab: '\t', KeyLinefeed: '\n', KeyClear: '\v',
	KeyReturn: '\r', KeyEscape: 0x1b, KeyDelete: 0x7f,
	KeyKPSpace: ' ', KeyKPTab: '\t', KeyKPEnter: '\r', KeyKPEqual: '=',
	KeyKPMultiply: '*', KeyKPAdd: '+', KeyKPSep: ',', KeyKPSubtract: '-',
	KeyKPDecimal: '.', KeyKPDivide: '/',
}

// Rune returns the character s produces, or 0 for keys that produce no
// text such as modifiers and function keys.
func (s Keysym) Rune() rune {
	switch {
	case s >= 0x20 && s <= 0x7e, s >= 0xa0 && s <= 0xff:
		return rune(s)
	case s == KeyEuroSign:
		return 0x20ac
	case s >= unicodeOffset+0x100 && s <= unicodeOffset+0x10ffff:
		return rune(s - unicodeOffset)
	case s >= KeyKP0 && s <= KeyKP0+9:
		return '0' + rune(s-KeyKP0)
	}
	return controlRunes[s]
}

// modifierOf reports which modifier a keysym drives.
func modifierOf(s Keysym) Modifier {
	switch s {
	case KeyShiftL, KeyShiftR:
		return ModShift
	case KeyControlL, KeyControlR:
		return ModControl
	case KeyAltL, KeyAltR, KeyMetaL, KeyMetaR:
		return ModAlt
	case KeySuperL, KeySuperR:
		return ModSuper
	case KeyLevel3:
		return ModLevel3
	case KeyCapsLock:
		return ModCapsLock
	case KeyNumLock:
		return ModNumLock
	}
	return 0
}
