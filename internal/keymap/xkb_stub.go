//go:build !(cgo && xkbcommon)

package keymap

import "errors"

// SystemKeymaps reports whether layouts outside the built-in tables are
// compiled from the system's xkb data. Build with cgo and the xkbcommon
// tag to enable it.
const SystemKeymaps = false

func compileSystem(id string) (*Keymap, error) {
	return nil, &CompileError{Layout: id, Err: errors.New("system keymaps not built in")}
}
