package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// DeviceNumber returns the major and minor number of a device node.
func DeviceNumber(path string) (major, minor uint32, err error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return 0, 0, fmt.Errorf("%s is not a character device", path)
	}
	rdev := uint64(st.Rdev)
	return unix.Major(rdev), unix.Minor(rdev), nil
}

// inputEvent is struct input_event as the kernel writes it.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

func readEvent(f *os.File) (*evdev.InputEvent, error) {
	var raw inputEvent
	if err := binary.Read(f, binary.NativeEndian, &raw); err != nil {
		return nil, err
	}
	return &evdev.InputEvent{
		Time:  syscall.NsecToTimeval(raw.Time.Nano()),
		Type:  evdev.EvType(raw.Type),
		Code:  evdev.EvCode(raw.Code),
		Value: raw.Value,
	}, nil
}

// fdDevice reads events from an fd handed out by the session. While
// paused, reads wait for the session to resume it with a fresh fd.
type fdDevice struct {
	path    string
	release func() error

	mu      sync.Mutex
	cond    *sync.Cond
	file    *os.File
	paused  bool
	closed  bool
	grabbed bool
}

// newFDDevice wraps f. A device taken while the session is inactive
// starts paused: its fd is already revoked, so it is closed and reads
// wait for resume.
func newFDDevice(path string, f *os.File, paused bool, release func() error) *fdDevice {
	d := &fdDevice{path: path, file: f, paused: paused, release: release}
	if paused && f != nil {
		f.Close()
		d.file = nil
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// current waits while the device is paused and returns the file to read
// from, or nil once closed.
func (d *fdDevice) current() *os.File {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.paused && !d.closed {
		d.cond.Wait()
	}
	if d.closed {
		return nil
	}
	return d.file
}

func (d *fdDevice) ReadOne() (*evdev.InputEvent, error) {
	for {
		f := d.current()
		if f == nil {
			return nil, os.ErrClosed
		}
		ev, err := readEvent(f)
		if err == nil {
			return ev, nil
		}
		d.mu.Lock()
		retry := !d.closed && (d.paused || d.file != f)
		d.mu.Unlock()
		if !retry {
			return nil, err
		}
	}
}

func (d *fdDevice) pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paused || d.closed {
		return
	}
	d.paused = true
	if d.file != nil {
		d.file.Close()
	}
}

func (d *fdDevice) resume(f *os.File) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		f.Close()
		return
	}
	if d.file != nil && !d.paused {
		d.file.Close()
	}
	d.file = f
	d.paused = false
	if d.grabbed {
		// A fresh fd does not carry the grab over.
		grab(f)
	}
	d.cond.Broadcast()
}

func (d *fdDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	var errs []error
	if d.file != nil && !d.paused {
		if err := d.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	d.cond.Broadcast()
	d.mu.Unlock()

	if d.release != nil {
		errs = append(errs, d.release())
	}
	return errors.Join(errs...)
}

// EVIOCGRAB
const eviocgrab = 0x40044590

// Grab takes exclusive access to the device until it is closed. On a
// paused device the grab is applied when it resumes.
func (d *fdDevice) Grab() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("grab %s: %w", d.path, os.ErrClosed)
	}
	d.grabbed = true
	if d.paused {
		return nil
	}
	if err := grab(d.file); err != nil {
		return fmt.Errorf("grab %s: %w", d.path, err)
	}
	return nil
}

func grab(f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var ierr error
	if err := rc.Control(func(fd uintptr) { ierr = unix.IoctlSetInt(int(fd), eviocgrab, 1) }); err != nil {
		return err
	}
	return ierr
}
