// Package event defines the input events produced by an input session and
// the source contract the dispatch loop drives.
package event

import "time"

// Kind tags the concrete type of an Event.
type Kind int

const (
	KindSeatAdded Kind = iota
	KindSeatChanged
	KindSeatRemoved
	KindKeyboard
	KindPointerMotion
	KindPointerMotionAbsolute
	KindPointerButton
	KindPointerAxis
	KindTouchDown
	KindTouchMotion
	KindTouchUp
	KindTouchCancel
	KindTouchFrame
	KindDeviceAdded
	KindDeviceChanged
	KindDeviceRemoved
	KindSpecial
)

var kindNames = [...]string{
	KindSeatAdded:             "seat-added",
	KindSeatChanged:           "seat-changed",
	KindSeatRemoved:           "seat-removed",
	KindKeyboard:              "keyboard",
	KindPointerMotion:         "pointer-motion",
	KindPointerMotionAbsolute: "pointer-motion-absolute",
	KindPointerButton:         "pointer-button",
	KindPointerAxis:           "pointer-axis",
	KindTouchDown:             "touch-down",
	KindTouchMotion:           "touch-motion",
	KindTouchUp:               "touch-up",
	KindTouchCancel:           "touch-cancel",
	KindTouchFrame:            "touch-frame",
	KindDeviceAdded:           "device-added",
	KindDeviceChanged:         "device-changed",
	KindDeviceRemoved:         "device-removed",
	KindSpecial:               "special",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Event is one input event. The concrete types below are the only
// implementations.
type Event interface {
	Kind() Kind
}

// Origin identifies the device an event came from and when.
type Origin struct {
	Seat   string
	Device string
	Time   time.Time
}

// KeyState is the transition a keyboard event reports.
type KeyState int32

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
	KeyRepeated KeyState = 2
)

func (s KeyState) String() string {
	switch s {
	case KeyReleased:
		return "released"
	case KeyPressed:
		return "pressed"
	case KeyRepeated:
		return "repeated"
	}
	return "unknown"
}

type SeatAdded struct{ Seat string }

// SeatChanged reports a change of the seat's session, e.g. a VT switch
// making it inactive.
type SeatChanged struct {
	Seat   string
	Active bool
}

type SeatRemoved struct{ Seat string }

// Keyboard carries a raw evdev keycode. It is not layout-resolved.
type Keyboard struct {
	Origin
	Key   uint32
	State KeyState
}

// PointerMotion is relative motion accumulated over one device frame.
type PointerMotion struct {
	Origin
	DX, DY float64
}

// PointerMotionAbsolute is a position in device units.
type PointerMotionAbsolute struct {
	Origin
	X, Y float64
}

type PointerButton struct {
	Origin
	Button  uint32
	Pressed bool
}

// Axis identifies a scroll axis.
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

type PointerAxis struct {
	Origin
	Axis  Axis
	Value float64
}

type TouchDown struct {
	Origin
	Slot int32
	X, Y float64
}

type TouchMotion struct {
	Origin
	Slot int32
	X, Y float64
}

type TouchUp struct {
	Origin
	Slot int32
}

type TouchCancel struct {
	Origin
	Slot int32
}

// TouchFrame closes a group of touch events that belong together.
type TouchFrame struct{ Origin }

// DeviceInfo identifies a device node. ID is the N of /dev/input/eventN.
type DeviceInfo struct {
	ID   int
	Path string
	Name string
}

type DeviceAdded struct{ DeviceInfo }

type DeviceChanged struct{ DeviceInfo }

type DeviceRemoved struct{ DeviceInfo }

// Special is any raw event the translation does not model.
type Special struct {
	Origin
	Type  uint16
	Code  uint16
	Value int32
}

func (SeatAdded) Kind() Kind             { return KindSeatAdded }
func (SeatChanged) Kind() Kind           { return KindSeatChanged }
func (SeatRemoved) Kind() Kind           { return KindSeatRemoved }
func (Keyboard) Kind() Kind              { return KindKeyboard }
func (PointerMotion) Kind() Kind         { return KindPointerMotion }
func (PointerMotionAbsolute) Kind() Kind { return KindPointerMotionAbsolute }
func (PointerButton) Kind() Kind         { return KindPointerButton }
func (PointerAxis) Kind() Kind           { return KindPointerAxis }
func (TouchDown) Kind() Kind             { return KindTouchDown }
func (TouchMotion) Kind() Kind           { return KindTouchMotion }
func (TouchUp) Kind() Kind               { return KindTouchUp }
func (TouchCancel) Kind() Kind           { return KindTouchCancel }
func (TouchFrame) Kind() Kind            { return KindTouchFrame }
func (DeviceAdded) Kind() Kind           { return KindDeviceAdded }
func (DeviceChanged) Kind() Kind         { return KindDeviceChanged }
func (DeviceRemoved) Kind() Kind         { return KindDeviceRemoved }
func (Special) Kind() Kind               { return KindSpecial }
