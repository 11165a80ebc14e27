package keymap

import evdev "github.com/holoplot/go-evdev"

// layoutDef maps evdev key codes to the characters at each shift level:
// base, Shift, AltGr, Shift+AltGr. Keys that produce no text come from
// commonKeys.
type layoutDef struct {
	keys   map[evdev.EvCode]string
	level3 bool // right Alt is AltGr
}

var layouts = map[string]layoutDef{
	"us": {keys: usKeys()},
	"gb": {keys: gbKeys(), level3: true},
	"de": {keys: deKeys(), level3: true},
	"fr": {keys: frKeys(), level3: true},
}

// Names returns the built-in layout names.
func Names() []string {
	return []string{"us", "gb", "de", "fr"}
}

var qwertyLetters = map[evdev.EvCode]rune{
	evdev.KEY_Q: 'q', evdev.KEY_W: 'w', evdev.KEY_E: 'e', evdev.KEY_R: 'r',
	evdev.KEY_T: 't', evdev.KEY_Y: 'y', evdev.KEY_U: 'u', evdev.KEY_I: 'i',
	evdev.KEY_O: 'o', evdev.KEY_P: 'p',
	evdev.KEY_A: 'a', evdev.KEY_S: 's', evdev.KEY_D: 'd', evdev.KEY_F: 'f',
	evdev.KEY_G: 'g', evdev.KEY_H: 'h', evdev.KEY_J: 'j', evdev.KEY_K: 'k',
	evdev.KEY_L: 'l',
	evdev.KEY_Z: 'z', evdev.KEY_X: 'x', evdev.KEY_C: 'c', evdev.KEY_V: 'v',
	evdev.KEY_B: 'b', evdev.KEY_N: 'n', evdev.KEY_M: 'm',
}

// letters builds the two-level letter keys, with swap remapping physical
// keys (e.g. QWERTZ swaps Y and Z).
func letters(swap map[evdev.EvCode]rune) map[evdev.EvCode]string {
	m := make(map[evdev.EvCode]string, len(qwertyLetters))
	for code, r := range qwertyLetters {
		if s, ok := swap[code]; ok {
			r = s
		}
		m[code] = string(r) + string(r-'a'+'A')
	}
	return m
}

func merge(dst map[evdev.EvCode]string, src map[evdev.EvCode]string) map[evdev.EvCode]string {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func usKeys() map[evdev.EvCode]string {
	return merge(letters(nil), map[evdev.EvCode]string{
		evdev.KEY_GRAVE: "`~",
		evdev.KEY_1:     "1!", evdev.KEY_2: "2@", evdev.KEY_3: "3#", evdev.KEY_4: "4$",
		evdev.KEY_5: "5%", evdev.KEY_6: "6^", evdev.KEY_7: "7&", evdev.KEY_8: "8*",
		evdev.KEY_9: "9(", evdev.KEY_0: "0)",
		evdev.KEY_MINUS:      "-_",
		evdev.KEY_EQUAL:      "=+",
		evdev.KEY_LEFTBRACE:  "[{",
		evdev.KEY_RIGHTBRACE: "]}",
		evdev.KEY_BACKSLASH:  "\\|",
		evdev.KEY_SEMICOLON:  ";:",
		evdev.KEY_APOSTROPHE: "'\"",
		evdev.KEY_COMMA:      ",<",
		evdev.KEY_DOT:        ".>",
		evdev.KEY_SLASH:      "/?",
		evdev.KEY_102ND:      "<>",
		evdev.KEY_SPACE:      " ",
	})
}

func gbKeys() map[evdev.EvCode]string {
	return merge(usKeys(), map[evdev.EvCode]string{
		evdev.KEY_GRAVE:      "`¬¦",
		evdev.KEY_2:          "2\"",
		evdev.KEY_3:          "3£",
		evdev.KEY_4:          "4$€",
		evdev.KEY_APOSTROPHE: "'@",
		evdev.KEY_BACKSLASH:  "#~",
		evdev.KEY_102ND:      "\\|",
	})
}

func deKeys() map[evdev.EvCode]string {
	return merge(letters(map[evdev.EvCode]rune{evdev.KEY_Y: 'z', evdev.KEY_Z: 'y'}), map[evdev.EvCode]string{
		evdev.KEY_GRAVE: "^°",
		evdev.KEY_1:     "1!", evdev.KEY_2: "2\"²", evdev.KEY_3: "3§³", evdev.KEY_4: "4$",
		evdev.KEY_5: "5%", evdev.KEY_6: "6&", evdev.KEY_7: "7/{", evdev.KEY_8: "8([",
		evdev.KEY_9: "9)]", evdev.KEY_0: "0=}",
		evdev.KEY_MINUS:      "ß?\\",
		evdev.KEY_EQUAL:      "´`",
		evdev.KEY_Q:          "qQ@",
		evdev.KEY_E:          "eE€",
		evdev.KEY_M:          "mMµ",
		evdev.KEY_LEFTBRACE:  "üÜ",
		evdev.KEY_RIGHTBRACE: "+*~",
		evdev.KEY_SEMICOLON:  "öÖ",
		evdev.KEY_APOSTROPHE: "äÄ",
		evdev.KEY_BACKSLASH:  "#'",
		evdev.KEY_102ND:      "<>|",
		evdev.KEY_COMMA:      ",;",
		evdev.KEY_DOT:        ".:",
		evdev.KEY_SLASH:      "-_",
		evdev.KEY_SPACE:      " ",
	})
}

func frKeys() map[evdev.EvCode]string {
	azerty := map[evdev.EvCode]rune{
		evdev.KEY_Q: 'a', evdev.KEY_W: 'z', evdev.KEY_A: 'q', evdev.KEY_Z: 'w',
	}
	keys := letters(azerty)
	delete(keys, evdev.KEY_M)
	return merge(keys, map[evdev.EvCode]string{
		evdev.KEY_GRAVE: "²",
		evdev.KEY_1:     "&1", evdev.KEY_2: "é2~", evdev.KEY_3: "\"3#", evdev.KEY_4: "'4{",
		evdev.KEY_5: "(5[", evdev.KEY_6: "-6|", evdev.KEY_7: "è7`", evdev.KEY_8: "_8\\",
		evdev.KEY_9: "ç9^", evdev.KEY_0: "à0@",
		evdev.KEY_MINUS:      ")°]",
		evdev.KEY_EQUAL:      "=+}",
		evdev.KEY_E:          "eE€",
		evdev.KEY_LEFTBRACE:  "^¨",
		evdev.KEY_RIGHTBRACE: "$£¤",
		evdev.KEY_SEMICOLON:  "mM",
		evdev.KEY_APOSTROPHE: "ù%",
		evdev.KEY_BACKSLASH:  "*µ",
		evdev.KEY_102ND:      "<>",
		evdev.KEY_M:          ",?",
		evdev.KEY_COMMA:      ";.",
		evdev.KEY_DOT:        ":/",
		evdev.KEY_SLASH:      "!§",
		evdev.KEY_SPACE:      " ",
	})
}

// commonKeys are the layout-independent keys.
func commonKeys(level3 bool) map[evdev.EvCode][]Keysym {
	ralt := KeyAltR
	if level3 {
		ralt = KeyLevel3
	}
	m := map[evdev.EvCode][]Keysym{
		evdev.KEY_ESC:        {KeyEscape},
		evdev.KEY_BACKSPACE:  {KeyBackSpace},
		evdev.KEY_TAB:        {KeyTab},
		evdev.KEY_ENTER:      {KeyReturn},
		evdev.KEY_LEFTCTRL:   {KeyControlL},
		evdev.KEY_RIGHTCTRL:  {KeyControlR},
		evdev.KEY_LEFTSHIFT:  {KeyShiftL},
		evdev.KEY_RIGHTSHIFT: {KeyShiftR},
		evdev.KEY_LEFTALT:    {KeyAltL},
		evdev.KEY_RIGHTALT:   {ralt},
		evdev.KEY_LEFTMETA:   {KeySuperL},
		evdev.KEY_RIGHTMETA:  {KeySuperR},
		evdev.KEY_CAPSLOCK:   {KeyCapsLock},
		evdev.KEY_NUMLOCK:    {KeyNumLock},
		evdev.KEY_SCROLLLOCK: {KeyScrollLock},
		evdev.KEY_SYSRQ:      {KeyPrint},
		evdev.KEY_PAUSE:      {KeyPause},
		evdev.KEY_COMPOSE:    {KeyMenu},
		evdev.KEY_HOME:       {KeyHome},
		evdev.KEY_END:        {KeyEnd},
		evdev.KEY_PAGEUP:     {KeyPageUp},
		evdev.KEY_PAGEDOWN:   {KeyPageDown},
		evdev.KEY_UP:         {KeyUp},
		evdev.KEY_DOWN:       {KeyDown},
		evdev.KEY_LEFT:       {KeyLeft},
		evdev.KEY_RIGHT:      {KeyRight},
		evdev.KEY_INSERT:     {KeyInsert},
		evdev.KEY_DELETE:     {KeyDelete},

		evdev.KEY_KPENTER:    {KeyKPEnter},
		evdev.KEY_KPSLASH:    {KeyKPDivide},
		evdev.KEY_KPASTERISK: {KeyKPMultiply},
		evdev.KEY_KPMINUS:    {KeyKPSubtract},
		evdev.KEY_KPPLUS:     {KeyKPAdd},
		evdev.KEY_KPEQUAL:    {KeyKPEqual},
		evdev.KEY_KPDOT:      {KeyKPDelete, KeyKPDecimal},
		evdev.KEY_KP0:        {KeyKPInsert, KeyKP0},
		evdev.KEY_KP1:        {KeyKPEnd, KeyKP0 + 1},
		evdev.KEY_KP2:        {KeyKPDown, KeyKP0 + 2},
		evdev.KEY_KP3:        {KeyKPPageDown, KeyKP0 + 3},
		evdev.KEY_KP4:        {KeyKPLeft, KeyKP0 + 4},
		evdev.KEY_KP5:        {KeyKPBegin, KeyKP0 + 5},
		evdev.KEY_KP6:        {KeyKPRight, KeyKP0 + 6},
		evdev.KEY_KP7:        {KeyKPHome, KeyKP0 + 7},
		evdev.KEY_KP8:        {KeyKPUp, KeyKP0 + 8},
		evdev.KEY_KP9:        {KeyKPPageUp, KeyKP0 + 9},
	}
	fkeys := []evdev.EvCode{
		evdev.KEY_F1, evdev.KEY_F2, evdev.KEY_F3, evdev.KEY_F4, evdev.KEY_F5, evdev.KEY_F6,
		evdev.KEY_F7, evdev.KEY_F8, evdev.KEY_F9, evdev.KEY_F10, evdev.KEY_F11, evdev.KEY_F12,
	}
	for i, c := range fkeys {
		m[c] = []Keysym{KeyF(i + 1)}
	}
	return m
}
