package input

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/session"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("input: device context closed")

// Options configures a device context.
type Options struct {
	// Grab requests exclusive access to every opened device.
	Grab bool
	// Hotplug watches HotplugDir for devices appearing and disappearing.
	Hotplug    bool
	HotplugDir string
	Log        *slog.Logger

	// Enumerate lists candidate nodes. Defaults to ListEventNodes.
	Enumerate func() ([]evdev.InputPath, error)
	// Properties returns a node's udev properties. Defaults to UdevProperties.
	Properties func(path string) map[string]string
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Enumerate == nil {
		o.Enumerate = ListEventNodes
	}
	if o.Properties == nil {
		o.Properties = UdevProperties
	}
	if o.HotplugDir == "" {
		o.HotplugDir = session.InputDir
	}
	return o
}

type device struct {
	info         event.DeviceInfo
	dev          session.Device
	major, minor uint32
	tr           *translator
	gone         bool
}

type rawEvent struct {
	d   *device
	ev  evdev.InputEvent
	err error
}

// Context is the set of devices of one seat opened through a session.
// One reader goroutine per device feeds a queue that Dispatch drains on
// the loop goroutine; translation happens there.
type Context struct {
	sess session.Session
	seat string
	opts Options
	log  *slog.Logger
	wg   sync.WaitGroup

	mu      sync.Mutex
	devices map[string]*device
	queue   []rawEvent
	pending []event.Event
	wake    func()
	closed  bool
}

// NewContext binds a device context to the session's seat. It fails with
// an AcquisitionError when the seat is unusable or none of its devices can
// be opened.
func NewContext(sess session.Session, opts Options) (*Context, error) {
	opts = opts.withDefaults()
	seat := sess.Seat()
	if seat == "" {
		return nil, bindError(errors.New("session has no seat"))
	}
	paths, err := opts.Enumerate()
	if err != nil {
		return nil, bindError(err)
	}

	c := &Context{
		sess:    sess,
		seat:    seat,
		opts:    opts,
		log:     opts.Log,
		devices: make(map[string]*device),
	}

	var (
		candidates int
		errs       []error
		added      []event.Event
	)
	for _, p := range paths {
		if !c.onSeat(p.Path) {
			continue
		}
		candidates++
		d, err := c.open(p)
		if err != nil {
			c.log.Debug("skipping device", "path", p.Path, "err", err)
			errs = append(errs, err)
			continue
		}
		added = append(added, event.DeviceAdded{DeviceInfo: d.info})
	}
	if candidates > 0 && len(added) == 0 {
		return nil, bindError(fmt.Errorf("seat %s: no device could be opened: %w", seat, errors.Join(errs...)))
	}
	if len(added) > 0 {
		c.pending = append([]event.Event{event.SeatAdded{Seat: seat}}, added...)
	} else {
		c.log.Warn("no input devices on seat yet", "seat", seat)
	}
	c.log.Debug("device context bound", "seat", seat, "devices", len(added), "candidates", candidates)
	return c, nil
}

func bindError(err error) error {
	return &session.AcquisitionError{Resource: "seat binding", Err: err}
}

func (c *Context) onSeat(path string) bool {
	return SameSeat(seatOf(c.opts.Properties(path)), c.seat)
}

// open opens a node through the session and starts its reader.
func (c *Context) open(p evdev.InputPath) (*device, error) {
	dev, err := c.sess.OpenDevice(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.Path, err)
	}

	name := p.Name
	if n, ok := dev.(interface{ Name() (string, error) }); ok && name == "" {
		name, _ = n.Name()
	}
	if c.opts.Grab {
		if g, ok := dev.(interface{ Grab() error }); ok {
			if err := g.Grab(); err != nil {
				c.log.Warn("could not grab device", "path", p.Path, "err", err)
			}
		}
	}

	d := &device{
		info: event.DeviceInfo{ID: deviceID(p.Path), Path: p.Path, Name: name},
		dev:  dev,
		tr:   newTranslator(c.seat, p.Path, hasMultitouch(dev)),
	}
	d.major, d.minor, _ = session.DeviceNumber(p.Path)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		dev.Close()
		return nil, ErrClosed
	}
	c.devices[p.Path] = d
	c.mu.Unlock()

	c.wg.Add(1)
	go c.read(d)
	c.log.Debug("device opened", "path", p.Path, "name", name)
	return d, nil
}

func hasMultitouch(dev session.Device) bool {
	cp, ok := dev.(interface {
		CapableEvents(evdev.EvType) []evdev.EvCode
	})
	return ok && slices.Contains(cp.CapableEvents(evdev.EV_ABS), evdev.ABS_MT_SLOT)
}

func (c *Context) read(d *device) {
	defer c.wg.Done()
	for {
		ev, err := d.dev.ReadOne()
		if err != nil {
			c.push(rawEvent{d: d, err: err})
			return
		}
		c.push(rawEvent{d: d, ev: *ev})
	}
}

func (c *Context) push(r rawEvent) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, r)
	wake := c.wake
	c.mu.Unlock()
	if wake != nil {
		wake()
	}
}

// Add opens a node that appeared after binding. It returns nil when the
// node is already open, belongs to another seat or cannot be opened yet.
func (c *Context) Add(path string) []event.Event {
	if _, ok := c.Device(path); ok || !isEventNode(path) || !c.onSeat(path) {
		return nil
	}
	first := c.count() == 0
	d, err := c.open(evdev.InputPath{Name: sysfsName(path), Path: path})
	if err != nil {
		c.log.Debug("hotplugged device not opened", "path", path, "err", err)
		return nil
	}
	var out []event.Event
	if first {
		out = append(out, event.SeatAdded{Seat: c.seat})
	}
	return append(out, event.DeviceAdded{DeviceInfo: d.info})
}

// Remove closes the device at path, if open.
func (c *Context) Remove(path string) []event.Event {
	c.mu.Lock()
	d := c.devices[path]
	c.mu.Unlock()
	if d == nil {
		return nil
	}
	return c.release(d)
}

func (c *Context) release(d *device) []event.Event {
	c.mu.Lock()
	if d.gone {
		c.mu.Unlock()
		return nil
	}
	d.gone = true
	delete(c.devices, d.info.Path)
	left := len(c.devices)
	c.mu.Unlock()

	if err := d.dev.Close(); err != nil {
		c.log.Debug("closing device", "path", d.info.Path, "err", err)
	}
	out := []event.Event{event.DeviceRemoved{DeviceInfo: d.info}}
	if left == 0 {
		out = append(out, event.SeatRemoved{Seat: c.seat})
	}
	return out
}

func (c *Context) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.devices)
}

func (c *Context) Seat() string { return c.seat }

// Device returns the open device at path.
func (c *Context) Device(path string) (event.DeviceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[path]
	if !ok {
		return event.DeviceInfo{}, false
	}
	return d.info, true
}

// DeviceByNumber finds an open device by its device number.
func (c *Context) DeviceByNumber(major, minor uint32) (event.DeviceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.devices {
		if d.major == major && d.minor == minor {
			return d.info, true
		}
	}
	return event.DeviceInfo{}, false
}

// Devices lists the open devices ordered by ID.
func (c *Context) Devices() []event.DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	infos := make([]event.DeviceInfo, 0, len(c.devices))
	for _, d := range c.devices {
		infos = append(infos, d.info)
	}
	slices.SortFunc(infos, func(a, b event.DeviceInfo) int { return a.ID - b.ID })
	return infos
}

func (c *Context) Name() string { return "devices" }

func (c *Context) Attach(wake func()) {
	c.mu.Lock()
	c.wake = wake
	ready := len(c.queue) > 0 || len(c.pending) > 0
	c.mu.Unlock()
	if ready && wake != nil {
		wake()
	}
}

// Dispatch translates everything the readers queued since the last call.
// A device whose read fails is treated as unplugged.
func (c *Context) Dispatch(emit func(event.Event)) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	pending, batch := c.pending, c.queue
	c.pending, c.queue = nil, nil
	c.mu.Unlock()

	n := 0
	out := func(evs []event.Event) {
		for _, e := range evs {
			emit(e)
			n++
		}
	}
	out(pending)
	for i := range batch {
		r := &batch[i]
		if r.err != nil {
			if !c.isGone(r.d) {
				c.log.Debug("device read failed", "path", r.d.info.Path, "err", r.err)
				out(c.release(r.d))
			}
			continue
		}
		if c.isGone(r.d) {
			continue
		}
		out(r.d.tr.feed(&r.ev))
	}
	return n, nil
}

func (c *Context) isGone(d *device) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return d.gone
}

func (c *Context) Detach() error {
	c.mu.Lock()
	c.wake = nil
	c.mu.Unlock()
	return nil
}

// Close closes every device and waits for the readers to exit.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	devs := make([]*device, 0, len(c.devices))
	for _, d := range c.devices {
		d.gone = true
		devs = append(devs, d)
	}
	clear(c.devices)
	c.queue, c.pending, c.wake = nil, nil, nil
	c.mu.Unlock()

	var errs []error
	for _, d := range devs {
		if err := d.dev.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", d.info.Path, err))
		}
	}
	c.wg.Wait()
	return errors.Join(errs...)
}
