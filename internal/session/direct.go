package session

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// InputDir is where evdev device nodes live.
var InputDir = "/dev/input"

// Direct opens device nodes by path. It never emits notifications.
type Direct struct {
	seat   string
	log    *slog.Logger
	notify chan Notification
	once   sync.Once
}

// OpenDirect succeeds when at least one event node is readable by this
// process.
func OpenDirect(seat string, log *slog.Logger) (*Direct, error) {
	nodes, err := filepath.Glob(filepath.Join(InputDir, "event*"))
	if err != nil {
		return nil, &AcquisitionError{Resource: "session", Err: err}
	}
	readable := 0
	for _, n := range nodes {
		if unix.Access(n, unix.R_OK) == nil {
			readable++
		}
	}
	if readable == 0 {
		return nil, &AcquisitionError{
			Resource: "session",
			Err:      fmt.Errorf("no readable event devices in %s (need root or the 'input' group)", InputDir),
		}
	}
	d := &Direct{seat: seatFromEnv(seat), log: log, notify: make(chan Notification)}
	log.Debug("direct session acquired", "seat", d.seat, "readable", readable, "nodes", len(nodes))
	return d, nil
}

func (d *Direct) Name() string { return ProviderDirect }

func (d *Direct) Seat() string { return d.seat }

func (d *Direct) Active() bool { return true }

func (d *Direct) OpenDevice(path string) (Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func (d *Direct) Notifications() <-chan Notification { return d.notify }

func (d *Direct) Close() error {
	d.once.Do(func() { close(d.notify) })
	return nil
}
