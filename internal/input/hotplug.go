package input

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/andresousadotpt/seatkeys/internal/event"
)

// Hotplug is the event source for device nodes appearing in and
// disappearing from the input directory.
//
// udev creates a node before it sets its permissions, so a create that
// cannot be opened yet is retried on the following chmod.
type Hotplug struct {
	ctx     *Context
	watcher *fsnotify.Watcher
	log     *slog.Logger
	done    chan struct{}
	once    sync.Once

	mu    sync.Mutex
	queue []fsnotify.Event
	wake  func()
}

func NewHotplug(ctx *Context, dir string, log *slog.Logger) (*Hotplug, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hotplug watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	h := &Hotplug{ctx: ctx, watcher: w, log: log, done: make(chan struct{})}
	go h.run()
	return h, nil
}

func (h *Hotplug) run() {
	defer close(h.done)
	for {
		select {
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if !isEventNode(ev.Name) {
				continue
			}
			h.mu.Lock()
			h.queue = append(h.queue, ev)
			wake := h.wake
			h.mu.Unlock()
			if wake != nil {
				wake()
			}
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.log.Warn("hotplug watcher error", "err", err)
		}
	}
}

func (h *Hotplug) Name() string { return "hotplug" }

func (h *Hotplug) Attach(wake func()) {
	h.mu.Lock()
	h.wake = wake
	ready := len(h.queue) > 0
	h.mu.Unlock()
	if ready && wake != nil {
		wake()
	}
}

func (h *Hotplug) Dispatch(emit func(event.Event)) (int, error) {
	h.mu.Lock()
	batch := h.queue
	h.queue = nil
	h.mu.Unlock()

	n := 0
	for _, ev := range batch {
		var out []event.Event
		switch {
		case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
			out = h.ctx.Remove(ev.Name)
		case ev.Has(fsnotify.Create):
			out = h.ctx.Add(ev.Name)
		case ev.Has(fsnotify.Chmod):
			if info, ok := h.ctx.Device(ev.Name); ok {
				out = []event.Event{event.DeviceChanged{DeviceInfo: info}}
			} else {
				out = h.ctx.Add(ev.Name)
			}
		}
		for _, e := range out {
			emit(e)
			n++
		}
	}
	return n, nil
}

func (h *Hotplug) Detach() error {
	var err error
	h.once.Do(func() {
		err = h.watcher.Close()
		<-h.done
		h.mu.Lock()
		h.wake = nil
		h.mu.Unlock()
	})
	return err
}
