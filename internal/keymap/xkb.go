//go:build cgo && xkbcommon

package keymap

/*
#cgo pkg-config: xkbcommon
#include <stdlib.h>
#include <xkbcommon/xkbcommon.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"
)

// SystemKeymaps reports whether layouts outside the built-in tables are
// compiled from the system's xkb data.
const SystemKeymaps = true

// compileSystem has libxkbcommon compile id and copies the result into a
// Keymap. The empty identifier leaves the rule names unset so xkb picks
// the system defaults (XKB_DEFAULT_LAYOUT and friends, then its built-in
// default).
func compileSystem(id string) (*Keymap, error) {
	var elems []layoutElement
	if id != "" {
		var err error
		if elems, err = splitLayouts(id); err != nil {
			return nil, &CompileError{Layout: id, Err: err}
		}
	}

	ctx := C.xkb_context_new(C.XKB_CONTEXT_NO_FLAGS)
	if ctx == nil {
		return nil, &CompileError{Layout: id, Err: errors.New("xkb context unavailable")}
	}
	defer C.xkb_context_unref(ctx)

	var names C.struct_xkb_rule_names
	var free []unsafe.Pointer
	defer func() {
		for _, p := range free {
			C.free(p)
		}
	}()
	cstr := func(s string) *C.char {
		c := C.CString(s)
		free = append(free, unsafe.Pointer(c))
		return c
	}
	if len(elems) > 0 {
		layouts := make([]string, len(elems))
		variants := make([]string, len(elems))
		for i, e := range elems {
			layouts[i], variants[i] = e.name, e.variant
		}
		names.layout = cstr(strings.Join(layouts, ","))
		names.variant = cstr(strings.Join(variants, ","))
		if len(elems) > 1 {
			names.options = cstr(GroupToggle)
		}
	}

	xkm := C.xkb_keymap_new_from_names(ctx, &names, C.XKB_KEYMAP_COMPILE_NO_FLAGS)
	if xkm == nil {
		return nil, &CompileError{Layout: id, Err: fmt.Errorf("%w: %q", ErrUnknownLayout, id)}
	}
	defer C.xkb_keymap_unref(xkm)

	ngroups := int(C.xkb_keymap_num_layouts(xkm))
	groups := make([]string, ngroups)
	for g := range groups {
		if g < len(elems) {
			groups[g] = elems[g].name
			continue
		}
		groups[g] = C.GoString(C.xkb_keymap_layout_get_name(xkm, C.xkb_layout_index_t(g)))
	}

	km := newKeymap(id, groups)
	minCode, maxCode := C.xkb_keymap_min_keycode(xkm), C.xkb_keymap_max_keycode(xkm)
	for code := minCode; code <= maxCode; code++ {
		nl := C.xkb_keymap_num_layouts_for_key(xkm, code)
		for g := C.xkb_layout_index_t(0); g < nl; g++ {
			syms := keySyms(xkm, code, g)
			if len(syms) == 0 || syms[0] == NoSymbol {
				continue
			}
			km.set(uint32(code), int(g), newKey(syms))
		}
	}
	km.index()
	return km, nil
}

// keySyms returns the first keysym of every level of a key, with trailing
// empty levels dropped.
func keySyms(xkm *C.struct_xkb_keymap, code C.xkb_keycode_t, group C.xkb_layout_index_t) []Keysym {
	n := C.xkb_keymap_num_levels_for_key(xkm, code, group)
	syms := make([]Keysym, 0, int(n))
	for l := C.xkb_level_index_t(0); l < n; l++ {
		var out *C.xkb_keysym_t
		if C.xkb_keymap_key_get_syms_by_level(xkm, code, group, l, &out) > 0 {
			syms = append(syms, Keysym(*out))
		} else {
			syms = append(syms, NoSymbol)
		}
	}
	for len(syms) > 0 && syms[len(syms)-1] == NoSymbol {
		syms = syms[:len(syms)-1]
	}
	return syms
}
