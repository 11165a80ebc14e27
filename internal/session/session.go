// Package session acquires the privileged session input devices are
// opened through.
//
// Two providers exist: logind, which hands out device fds over D-Bus and
// revokes them on VT switches, and direct, which opens device nodes itself
// and therefore needs root or the input group. Auto tries them in that
// order. A process must hold at most one session.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	evdev "github.com/holoplot/go-evdev"
)

// DefaultSeat is used when no seat can be discovered.
const DefaultSeat = "seat-0"

var ErrNoSession = errors.New("no privileged session available")

// AcquisitionError reports a resource the input stack could not acquire.
// Resource is "session" or "seat binding".
type AcquisitionError struct {
	Resource string
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s: %v", e.Resource, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Device is an opened input device node.
type Device interface {
	ReadOne() (*evdev.InputEvent, error)
	Close() error
}

// NotificationKind tags a Notification.
type NotificationKind int

const (
	// ActiveChanged: the session gained or lost the foreground.
	ActiveChanged NotificationKind = iota
	// DevicePaused: a device was revoked; its reads stop until resumed.
	DevicePaused
	// DeviceResumed: a paused device is readable again.
	DeviceResumed
)

func (k NotificationKind) String() string {
	switch k {
	case ActiveChanged:
		return "active-changed"
	case DevicePaused:
		return "device-paused"
	case DeviceResumed:
		return "device-resumed"
	}
	return "unknown"
}

// Notification is a change of session state.
type Notification struct {
	Kind   NotificationKind
	Active bool
	Major  uint32
	Minor  uint32
}

// Session is an acquired privileged session.
type Session interface {
	// Name is the provider name: "logind" or "direct".
	Name() string
	Seat() string
	Active() bool
	OpenDevice(path string) (Device, error)
	// Notifications is closed when the session is closed.
	Notifications() <-chan Notification
	Close() error
}

// Provider names accepted by Open.
const (
	ProviderAuto   = "auto"
	ProviderLogind = "logind"
	ProviderDirect = "direct"
)

// Open acquires a session from the named provider. seat is only used by
// the direct provider; logind reports the session's own seat.
func Open(provider, seat string, log *slog.Logger) (Session, error) {
	if log == nil {
		log = slog.Default()
	}
	switch provider {
	case ProviderLogind:
		s, err := OpenLogind(log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ProviderDirect:
		d, err := OpenDirect(seat, log)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ProviderAuto, "":
		s, lerr := OpenLogind(log)
		if lerr == nil {
			return s, nil
		}
		log.Debug("logind session unavailable, trying direct", "err", lerr)
		d, derr := OpenDirect(seat, log)
		if derr == nil {
			return d, nil
		}
		return nil, &AcquisitionError{Resource: "session", Err: errors.Join(ErrNoSession, lerr, derr)}
	}
	return nil, &AcquisitionError{Resource: "session", Err: fmt.Errorf("unknown provider %q", provider)}
}

func seatFromEnv(seat string) string {
	if seat != "" {
		return seat
	}
	if s := os.Getenv("XDG_SEAT"); s != "" {
		return s
	}
	return DefaultSeat
}
