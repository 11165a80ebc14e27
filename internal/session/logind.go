package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

const (
	login1Dest    = "org.freedesktop.login1"
	login1Path    = "/org/freedesktop/login1"
	managerIface  = "org.freedesktop.login1.Manager"
	sessionIface  = "org.freedesktop.login1.Session"
	propertiesIfc = "org.freedesktop.DBus.Properties"
)

// Logind is a systemd-logind session this process has taken control of.
// Devices are opened with TakeDevice and released with ReleaseDevice.
type Logind struct {
	conn    *dbus.Conn
	session dbus.BusObject
	seat    string
	log     *slog.Logger

	signals chan *dbus.Signal
	notify  chan Notification
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	active  bool
	devices map[uint64]*fdDevice
	closed  bool
}

// OpenLogind finds the caller's session (XDG_SESSION_ID, else by PID),
// reads its seat and takes control of it.
func OpenLogind(log *slog.Logger) (*Logind, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, &AcquisitionError{Resource: "session", Err: fmt.Errorf("connect system bus: %w", err)}
	}
	l, err := takeControl(conn, log)
	if err != nil {
		conn.Close()
		return nil, &AcquisitionError{Resource: "session", Err: err}
	}
	return l, nil
}

func takeControl(conn *dbus.Conn, log *slog.Logger) (*Logind, error) {
	mgr := conn.Object(login1Dest, login1Path)
	var path dbus.ObjectPath
	var err error
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		err = mgr.Call(managerIface+".GetSession", 0, id).Store(&path)
	} else {
		err = mgr.Call(managerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	}
	if err != nil {
		return nil, fmt.Errorf("find logind session: %w", err)
	}

	obj := conn.Object(login1Dest, path)
	seatProp, err := obj.GetProperty(sessionIface + ".Seat")
	if err != nil {
		return nil, fmt.Errorf("read session seat: %w", err)
	}
	seat := seatName(seatProp.Value())
	if seat == "" {
		return nil, errors.New("session has no seat")
	}
	active := true
	if v, err := obj.GetProperty(sessionIface + ".Active"); err == nil {
		if b, ok := v.Value().(bool); ok {
			active = b
		}
	}

	if err := obj.Call(sessionIface+".TakeControl", 0, false).Err; err != nil {
		return nil, fmt.Errorf("take control of %s: %w", path, err)
	}

	for _, opts := range [][]dbus.MatchOption{
		{dbus.WithMatchObjectPath(path), dbus.WithMatchInterface(sessionIface)},
		{dbus.WithMatchObjectPath(path), dbus.WithMatchInterface(propertiesIfc), dbus.WithMatchMember("PropertiesChanged")},
	} {
		if err := conn.AddMatchSignal(opts...); err != nil {
			obj.Call(sessionIface+".ReleaseControl", 0)
			return nil, fmt.Errorf("subscribe to session signals: %w", err)
		}
	}

	l := &Logind{
		conn:    conn,
		session: obj,
		seat:    seat,
		log:     log,
		signals: make(chan *dbus.Signal, 32),
		notify:  make(chan Notification, 32),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		active:  active,
		devices: make(map[uint64]*fdDevice),
	}
	conn.Signal(l.signals)
	go l.watch()

	log.Debug("logind session acquired", "session", path, "seat", seat, "active", active)
	return l, nil
}

// seatName extracts the name from the (so) Seat property.
func seatName(v interface{}) string {
	switch s := v.(type) {
	case []interface{}:
		if len(s) > 0 {
			if name, ok := s[0].(string); ok {
				return name
			}
		}
	case string:
		return s
	}
	return ""
}

func (l *Logind) Name() string { return ProviderLogind }

func (l *Logind) Seat() string { return l.seat }

func (l *Logind) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Logind) Notifications() <-chan Notification { return l.notify }

// OpenDevice takes the device from logind. The returned device keeps
// working across pause/resume cycles.
func (l *Logind) OpenDevice(path string) (Device, error) {
	major, minor, err := DeviceNumber(path)
	if err != nil {
		return nil, err
	}
	f, inactive, err := l.takeDevice(path, major, minor)
	if err != nil {
		return nil, err
	}
	if inactive {
		l.log.Debug("device taken while inactive, waiting for resume", "path", path)
	}
	d := newFDDevice(path, f, inactive, func() error {
		l.mu.Lock()
		delete(l.devices, unix.Mkdev(major, minor))
		l.mu.Unlock()
		return l.session.Call(sessionIface+".ReleaseDevice", 0, major, minor).Err
	})
	l.mu.Lock()
	l.devices[unix.Mkdev(major, minor)] = d
	l.mu.Unlock()
	return d, nil
}

// takeDevice returns the device fd and whether logind handed it out
// paused.
func (l *Logind) takeDevice(path string, major, minor uint32) (*os.File, bool, error) {
	var fd dbus.UnixFD
	var inactive bool
	if err := l.session.Call(sessionIface+".TakeDevice", 0, major, minor).Store(&fd, &inactive); err != nil {
		return nil, false, fmt.Errorf("take device %s: %w", path, err)
	}
	if err := unix.SetNonblock(int(fd), true); err != nil {
		unix.Close(int(fd))
		return nil, false, fmt.Errorf("take device %s: %w", path, err)
	}
	return os.NewFile(uintptr(fd), path), inactive, nil
}

func (l *Logind) watch() {
	defer close(l.done)
	defer close(l.notify)
	for {
		select {
		case <-l.stop:
			return
		case sig, ok := <-l.signals:
			if !ok {
				return
			}
			if n, ok := l.handle(sig); ok {
				select {
				case l.notify <- n:
				case <-l.stop:
					return
				}
			}
		}
	}
}

func (l *Logind) handle(sig *dbus.Signal) (Notification, bool) {
	member := sig.Name[strings.LastIndex(sig.Name, ".")+1:]
	switch member {
	case "PauseDevice":
		var major, minor uint32
		var kind string
		if err := dbus.Store(sig.Body, &major, &minor, &kind); err != nil {
			l.log.Debug("malformed PauseDevice", "err", err)
			return Notification{}, false
		}
		if d := l.device(major, minor); d != nil {
			d.pause()
		}
		if kind == "pause" {
			if err := l.session.Call(sessionIface+".PauseDeviceComplete", 0, major, minor).Err; err != nil {
				l.log.Debug("PauseDeviceComplete failed", "major", major, "minor", minor, "err", err)
			}
		}
		return Notification{Kind: DevicePaused, Major: major, Minor: minor}, true

	case "ResumeDevice":
		var major, minor uint32
		var fd dbus.UnixFD
		if err := dbus.Store(sig.Body, &major, &minor, &fd); err != nil {
			l.log.Debug("malformed ResumeDevice", "err", err)
			return Notification{}, false
		}
		d := l.device(major, minor)
		if d == nil {
			unix.Close(int(fd))
			return Notification{}, false
		}
		if err := unix.SetNonblock(int(fd), true); err != nil {
			l.log.Debug("resumed fd not usable", "err", err)
		}
		d.resume(os.NewFile(uintptr(fd), d.path))
		return Notification{Kind: DeviceResumed, Major: major, Minor: minor}, true

	case "PropertiesChanged":
		if len(sig.Body) < 2 {
			return Notification{}, false
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return Notification{}, false
		}
		v, ok := changed["Active"]
		if !ok {
			return Notification{}, false
		}
		active, ok := v.Value().(bool)
		if !ok {
			return Notification{}, false
		}
		l.mu.Lock()
		l.active = active
		l.mu.Unlock()
		return Notification{Kind: ActiveChanged, Active: active}, true
	}
	return Notification{}, false
}

func (l *Logind) device(major, minor uint32) *fdDevice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.devices[unix.Mkdev(major, minor)]
}

// Close releases devices still held, gives up control and disconnects.
func (l *Logind) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	devs := make([]*fdDevice, 0, len(l.devices))
	for _, d := range l.devices {
		devs = append(devs, d)
	}
	l.mu.Unlock()

	var errs []error
	for _, d := range devs {
		errs = append(errs, d.Close())
	}
	l.conn.RemoveSignal(l.signals)
	close(l.stop)
	<-l.done
	errs = append(errs, l.session.Call(sessionIface+".ReleaseControl", 0).Err)
	errs = append(errs, l.conn.Close())
	return errors.Join(errs...)
}
