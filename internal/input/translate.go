package input

import (
	"maps"
	"slices"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/andresousadotpt/seatkeys/internal/event"
)

const (
	keyMax         = evdev.EvCode(0x2ff)
	relWheelHiRes  = evdev.EvCode(0x0b)
	relHWheelHiRes = evdev.EvCode(0x0c)
	absMTLast      = evdev.EvCode(0x3d) // ABS_MT_TOOL_Y
)

type touchSlot struct {
	active bool
	x, y   float64

	down, up, moved bool
}

// translator turns one device's raw events into typed events. Events are
// buffered until SYN_REPORT closes the frame.
type translator struct {
	seat   string
	device string
	// touch is set for multitouch devices; their ABS_X/ABS_Y and
	// BTN_TOOL_* events duplicate the slot data and are dropped.
	touch bool

	pending []event.Event

	dx, dy float64
	rel    bool
	x, y   float64
	abs    bool

	slot    int32
	slots   map[int32]*touchSlot
	dropped bool
}

func newTranslator(seat, device string, touch bool) *translator {
	return &translator{seat: seat, device: device, touch: touch, slots: make(map[int32]*touchSlot)}
}

func eventTime(ev *evdev.InputEvent) time.Time {
	return time.Unix(int64(ev.Time.Sec), int64(ev.Time.Usec)*1000)
}

// feed consumes one raw event and returns the events of a completed frame.
func (t *translator) feed(ev *evdev.InputEvent) []event.Event {
	if t.dropped {
		// Everything up to and including the next SYN_REPORT is stale.
		if ev.Type == evdev.EV_SYN && ev.Code == evdev.SYN_REPORT {
			t.dropped = false
		}
		return nil
	}

	o := event.Origin{Seat: t.seat, Device: t.device, Time: eventTime(ev)}
	switch ev.Type {
	case evdev.EV_SYN:
		switch ev.Code {
		case evdev.SYN_REPORT:
			return t.flush(o)
		case evdev.SYN_DROPPED:
			return t.drop(o)
		}
	case evdev.EV_KEY:
		t.key(o, ev)
	case evdev.EV_REL:
		t.relative(o, ev)
	case evdev.EV_ABS:
		t.absolute(o, ev)
	case evdev.EV_MSC:
		if ev.Code != evdev.MSC_SCAN {
			t.special(o, ev)
		}
	default:
		t.special(o, ev)
	}
	return nil
}

func isKeyboardKey(c evdev.EvCode) bool {
	return c < evdev.BTN_MISC || (c >= evdev.KEY_OK && c <= keyMax)
}

func (t *translator) key(o event.Origin, ev *evdev.InputEvent) {
	switch c := ev.Code; {
	case c >= evdev.BTN_LEFT && c <= evdev.BTN_TASK:
		if ev.Value == int32(event.KeyRepeated) {
			return
		}
		t.pending = append(t.pending, event.PointerButton{Origin: o, Button: uint32(c), Pressed: ev.Value != 0})
	case c >= evdev.BTN_TOOL_PEN && c <= evdev.BTN_TOOL_QUADTAP && t.touch:
		// reported through the slots
	case isKeyboardKey(c):
		t.pending = append(t.pending, event.Keyboard{Origin: o, Key: uint32(c), State: event.KeyState(ev.Value)})
	default:
		t.special(o, ev)
	}
}

func (t *translator) relative(o event.Origin, ev *evdev.InputEvent) {
	v := float64(ev.Value)
	switch ev.Code {
	case evdev.REL_X:
		t.dx += v
		t.rel = true
	case evdev.REL_Y:
		t.dy += v
		t.rel = true
	case evdev.REL_WHEEL:
		// Wheel up is positive on the wire; scroll values grow downwards.
		t.pending = append(t.pending, event.PointerAxis{Origin: o, Axis: event.AxisVertical, Value: -v})
	case evdev.REL_HWHEEL:
		t.pending = append(t.pending, event.PointerAxis{Origin: o, Axis: event.AxisHorizontal, Value: v})
	case relWheelHiRes, relHWheelHiRes:
	default:
		t.special(o, ev)
	}
}

func (t *translator) slotAt(n int32) *touchSlot {
	s, ok := t.slots[n]
	if !ok {
		s = &touchSlot{}
		t.slots[n] = s
	}
	return s
}

func (t *translator) absolute(o event.Origin, ev *evdev.InputEvent) {
	v := ev.Value
	switch c := ev.Code; {
	case c == evdev.ABS_MT_SLOT:
		t.touch = true
		t.slot = v
	case c == evdev.ABS_MT_TRACKING_ID:
		t.touch = true
		s := t.slotAt(t.slot)
		if v < 0 {
			if s.down {
				// Lifted within the frame it landed in; never reported.
				s.down, s.active = false, false
			} else if s.active {
				s.active, s.up = false, true
			}
			return
		}
		if s.active && !s.down {
			s.up = true
		}
		s.active, s.down = true, true
	case c == evdev.ABS_MT_POSITION_X:
		t.touch = true
		s := t.slotAt(t.slot)
		s.x, s.moved = float64(v), true
	case c == evdev.ABS_MT_POSITION_Y:
		t.touch = true
		s := t.slotAt(t.slot)
		s.y, s.moved = float64(v), true
	case c > evdev.ABS_MT_SLOT && c <= absMTLast:
		t.touch = true
	case c == evdev.ABS_X:
		if !t.touch {
			t.x, t.abs = float64(v), true
		}
	case c == evdev.ABS_Y:
		if !t.touch {
			t.y, t.abs = float64(v), true
		}
	default:
		t.special(o, ev)
	}
}

func (t *translator) special(o event.Origin, ev *evdev.InputEvent) {
	t.pending = append(t.pending, event.Special{Origin: o, Type: uint16(ev.Type), Code: uint16(ev.Code), Value: ev.Value})
}

func (t *translator) flush(o event.Origin) []event.Event {
	out := t.pending
	t.pending = nil

	if t.rel {
		out = append(out, event.PointerMotion{Origin: o, DX: t.dx, DY: t.dy})
		t.dx, t.dy, t.rel = 0, 0, false
	}
	if t.abs {
		out = append(out, event.PointerMotionAbsolute{Origin: o, X: t.x, Y: t.y})
		t.abs = false
	}

	touched := false
	for _, n := range slices.Sorted(maps.Keys(t.slots)) {
		s := t.slots[n]
		if s.up {
			out = append(out, event.TouchUp{Origin: o, Slot: n})
			touched = true
		}
		switch {
		case s.down:
			out = append(out, event.TouchDown{Origin: o, Slot: n, X: s.x, Y: s.y})
			touched = true
		case s.moved && s.active:
			out = append(out, event.TouchMotion{Origin: o, Slot: n, X: s.x, Y: s.y})
			touched = true
		}
		s.down, s.up, s.moved = false, false, false
		if !s.active {
			delete(t.slots, n)
		}
	}
	if touched {
		out = append(out, event.TouchFrame{Origin: o})
	}
	return out
}

// drop handles SYN_DROPPED: the partial frame is discarded and every
// reported contact is cancelled.
func (t *translator) drop(o event.Origin) []event.Event {
	t.pending = nil
	t.dx, t.dy, t.rel, t.abs = 0, 0, false, false

	var out []event.Event
	for _, n := range slices.Sorted(maps.Keys(t.slots)) {
		if s := t.slots[n]; s.active && !s.down {
			out = append(out, event.TouchCancel{Origin: o, Slot: n})
		}
	}
	clear(t.slots)
	if len(out) > 0 {
		out = append(out, event.TouchFrame{Origin: o})
	}
	t.dropped = true
	return out
}
