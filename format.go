package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/andresousadotpt/seatkeys/internal/dispatch"
	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/keymap"
)

// describe renders one event as a monitor line.
func describe(ev event.Event) string {
	var src, detail string
	switch e := ev.(type) {
	case dispatch.DecodedKey:
		src = e.Device
		detail = fmt.Sprintf("key %d %s %s", e.Key, e.State, symNames(e.Keysyms))
		if e.Text != "" {
			detail += fmt.Sprintf(" %q", e.Text)
		}
	case event.Keyboard:
		src, detail = e.Device, fmt.Sprintf("key %d %s", e.Key, e.State)
	case event.PointerMotion:
		src, detail = e.Device, fmt.Sprintf("dx %.0f dy %.0f", e.DX, e.DY)
	case event.PointerMotionAbsolute:
		src, detail = e.Device, fmt.Sprintf("x %.0f y %.0f", e.X, e.Y)
	case event.PointerButton:
		state := "released"
		if e.Pressed {
			state = "pressed"
		}
		src, detail = e.Device, fmt.Sprintf("button %#x %s", e.Button, state)
	case event.PointerAxis:
		axis := "vertical"
		if e.Axis == event.AxisHorizontal {
			axis = "horizontal"
		}
		src, detail = e.Device, fmt.Sprintf("%s %.0f", axis, e.Value)
	case event.TouchDown:
		src, detail = e.Device, fmt.Sprintf("slot %d x %.0f y %.0f", e.Slot, e.X, e.Y)
	case event.TouchMotion:
		src, detail = e.Device, fmt.Sprintf("slot %d x %.0f y %.0f", e.Slot, e.X, e.Y)
	case event.TouchUp:
		src, detail = e.Device, fmt.Sprintf("slot %d", e.Slot)
	case event.TouchCancel:
		src, detail = e.Device, fmt.Sprintf("slot %d", e.Slot)
	case event.TouchFrame:
		src = e.Device
	case event.SeatAdded:
		src = e.Seat
	case event.SeatChanged:
		src, detail = e.Seat, "inactive"
		if e.Active {
			detail = "active"
		}
	case event.SeatRemoved:
		src = e.Seat
	case event.DeviceAdded:
		src, detail = e.Path, e.Name
	case event.DeviceChanged:
		src, detail = e.Path, e.Name
	case event.DeviceRemoved:
		src, detail = e.Path, e.Name
	case event.Special:
		src, detail = e.Device, fmt.Sprintf("type %#x code %#x value %d", e.Type, e.Code, e.Value)
	}
	return strings.TrimRight(fmt.Sprintf("%-24s %-20s %s", ev.Kind(), src, detail), " ")
}

func symNames(syms []keymap.Keysym) string {
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}

// dumpKeymap prints one line per keycode and group: the evdev keycode,
// the group and the keysyms of each level.
func dumpKeymap(w io.Writer, km *keymap.Keymap) {
	fmt.Fprintf(w, "# layout %q groups %s\n", km.Layout(), strings.Join(km.Groups(), ","))
	for _, code := range km.Keycodes() {
		for g := range km.Groups() {
			n := km.NumLevels(code, g)
			if n == 0 {
				continue
			}
			levels := make([]string, 0, n)
			for l := 0; l < n; l++ {
				levels = append(levels, symNames(km.KeySyms(code, g, l)))
			}
			fmt.Fprintf(w, "%3d %d %s\n", code-keymap.EvdevOffset, g, strings.Join(levels, " "))
		}
	}
}
