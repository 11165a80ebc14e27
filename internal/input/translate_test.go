package input

import (
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"

	"github.com/andresousadotpt/seatkeys/internal/event"
)

const testNode = "/dev/input/event3"

var origin = event.Origin{Seat: "seat0", Device: testNode, Time: time.Unix(0, 0)}

func feedAll(tr *translator, evs ...*evdev.InputEvent) []event.Event {
	var out []event.Event
	for _, ev := range evs {
		out = append(out, tr.feed(ev)...)
	}
	return out
}

func TestTranslateKeysAndButtons(t *testing.T) {
	tr := newTranslator("seat0", testNode, false)

	assert.Empty(t, tr.feed(raw(evdev.EV_KEY, evdev.KEY_A, 1)), "buffered until SYN_REPORT")
	got := feedAll(tr,
		raw(evdev.EV_MSC, evdev.MSC_SCAN, 0x70004),
		syn(),
		raw(evdev.EV_KEY, evdev.KEY_A, 2),
		raw(evdev.EV_KEY, evdev.BTN_LEFT, 1),
		raw(evdev.EV_KEY, evdev.BTN_LEFT, 2),
		syn(),
		raw(evdev.EV_KEY, evdev.BTN_LEFT, 0),
		syn(),
	)
	assert.Equal(t, []event.Event{
		event.Keyboard{Origin: origin, Key: uint32(evdev.KEY_A), State: event.KeyPressed},
		event.Keyboard{Origin: origin, Key: uint32(evdev.KEY_A), State: event.KeyRepeated},
		event.PointerButton{Origin: origin, Button: uint32(evdev.BTN_LEFT), Pressed: true},
		event.PointerButton{Origin: origin, Button: uint32(evdev.BTN_LEFT), Pressed: false},
	}, got)
}

func TestTranslateRelativeMotion(t *testing.T) {
	tr := newTranslator("seat0", testNode, false)
	got := feedAll(tr,
		raw(evdev.EV_REL, evdev.REL_X, 3),
		raw(evdev.EV_REL, evdev.REL_Y, -2),
		raw(evdev.EV_REL, evdev.REL_X, 1),
		syn(),
		raw(evdev.EV_REL, evdev.REL_WHEEL, 1),
		raw(evdev.EV_REL, relWheelHiRes, 120),
		raw(evdev.EV_REL, evdev.REL_HWHEEL, -1),
		syn(),
		syn(),
	)
	assert.Equal(t, []event.Event{
		event.PointerMotion{Origin: origin, DX: 4, DY: -2},
		event.PointerAxis{Origin: origin, Axis: event.AxisVertical, Value: -1},
		event.PointerAxis{Origin: origin, Axis: event.AxisHorizontal, Value: -1},
	}, got)
}

func TestTranslateAbsolutePointer(t *testing.T) {
	tr := newTranslator("seat0", testNode, false)
	got := feedAll(tr,
		raw(evdev.EV_ABS, evdev.ABS_X, 100),
		raw(evdev.EV_ABS, evdev.ABS_Y, 200),
		syn(),
		raw(evdev.EV_ABS, evdev.ABS_X, 150),
		syn(),
	)
	assert.Equal(t, []event.Event{
		event.PointerMotionAbsolute{Origin: origin, X: 100, Y: 200},
		event.PointerMotionAbsolute{Origin: origin, X: 150, Y: 200},
	}, got)
}

func TestTranslateTouch(t *testing.T) {
	tr := newTranslator("seat0", testNode, false)

	got := feedAll(tr,
		raw(evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		raw(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 41),
		raw(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 10),
		raw(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 20),
		raw(evdev.EV_KEY, evdev.BTN_TOUCH, 1),
		raw(evdev.EV_ABS, evdev.ABS_X, 10),
		raw(evdev.EV_ABS, evdev.ABS_Y, 20),
		syn(),
	)
	assert.Equal(t, []event.Event{
		event.TouchDown{Origin: origin, Slot: 0, X: 10, Y: 20},
		event.TouchFrame{Origin: origin},
	}, got)

	got = feedAll(tr,
		raw(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 11),
		raw(evdev.EV_ABS, evdev.ABS_MT_SLOT, 1),
		raw(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 42),
		raw(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 50),
		raw(evdev.EV_ABS, evdev.ABS_MT_POSITION_Y, 60),
		syn(),
	)
	assert.Equal(t, []event.Event{
		event.TouchMotion{Origin: origin, Slot: 0, X: 11, Y: 20},
		event.TouchDown{Origin: origin, Slot: 1, X: 50, Y: 60},
		event.TouchFrame{Origin: origin},
	}, got)

	got = feedAll(tr,
		raw(evdev.EV_ABS, evdev.ABS_MT_SLOT, 0),
		raw(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, -1),
		syn(),
	)
	assert.Equal(t, []event.Event{
		event.TouchUp{Origin: origin, Slot: 0},
		event.TouchFrame{Origin: origin},
	}, got)
}

func TestTranslateSynDroppedCancelsContacts(t *testing.T) {
	tr := newTranslator("seat0", testNode, true)
	feedAll(tr,
		raw(evdev.EV_ABS, evdev.ABS_MT_TRACKING_ID, 7),
		raw(evdev.EV_ABS, evdev.ABS_MT_POSITION_X, 1),
		syn(),
	)

	got := feedAll(tr,
		raw(evdev.EV_KEY, evdev.KEY_Q, 1),
		raw(evdev.EV_SYN, evdev.SYN_DROPPED, 0),
	)
	assert.Equal(t, []event.Event{
		event.TouchCancel{Origin: origin, Slot: 0},
		event.TouchFrame{Origin: origin},
	}, got)

	assert.Empty(t, feedAll(tr, raw(evdev.EV_KEY, evdev.KEY_W, 1), syn()), "stale until the next SYN_REPORT")

	got = feedAll(tr, raw(evdev.EV_KEY, evdev.KEY_E, 1), syn())
	assert.Equal(t, []event.Event{
		event.Keyboard{Origin: origin, Key: uint32(evdev.KEY_E), State: event.KeyPressed},
	}, got)
}

func TestTranslateSpecial(t *testing.T) {
	tr := newTranslator("seat0", testNode, false)
	got := feedAll(tr,
		raw(evdev.EV_SW, evdev.SW_LID, 1),
		raw(evdev.EV_KEY, evdev.BTN_TOUCH, 1),
		syn(),
	)
	assert.Equal(t, []event.Event{
		event.Special{Origin: origin, Type: uint16(evdev.EV_SW), Code: uint16(evdev.SW_LID), Value: 1},
		event.Special{Origin: origin, Type: uint16(evdev.EV_KEY), Code: uint16(evdev.BTN_TOUCH), Value: 1},
	}, got)
}
