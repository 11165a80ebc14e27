// Package dispatch drives an input session's event sources and hands every
// event to a handler, decoding keyboard events on the way.
//
// Two disciplines are provided. Run is the reactor: sources wake the loop
// when they buffer events and the loop also ticks on a bounded interval.
// Poll repeatedly asks a Poller for whatever is available. Both run the
// handler on the calling goroutine, one event at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/andresousadotpt/seatkeys/internal/decoder"
	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/keymap"
)

// DefaultTick is about one display refresh.
const DefaultTick = 16 * time.Millisecond

// Disciplines accepted by Config.
const (
	DisciplineReactor = "reactor"
	DisciplinePoll    = "poll"
)

// DecodedKey is a keyboard event resolved through the keymap. Keysyms and
// Text reflect the modifier state before this event was applied.
type DecodedKey struct {
	event.Keyboard
	Keysyms []keymap.Keysym
	// Text is empty for releases and for keys that type nothing.
	Text string
}

// Handler receives events in dispatch order. Keyboard events arrive as
// DecodedKey; everything else is passed through unchanged.
type Handler func(event.Event)

// Poller is an input session consumed with the polling discipline.
type Poller interface {
	Dispatch(ctx context.Context, timeout time.Duration) ([]event.Event, error)
}

type Config struct {
	// Tick bounds how long the reactor sleeps between dispatches and how
	// long a single poll waits.
	Tick time.Duration
	// Deadline stops the loop after this long. Zero means no deadline.
	Deadline time.Duration
	Log      *slog.Logger
}

// Loop routes events from one input session. It must not be reused.
type Loop struct {
	dec     *decoder.Decoder
	handler Handler
	cfg     Config
	log     *slog.Logger

	stopped atomic.Bool
	count   int
}

func New(dec *decoder.Decoder, handler Handler, cfg Config) *Loop {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Loop{dec: dec, handler: handler, cfg: cfg, log: cfg.Log}
}

// Stop ends the loop after the running handler returns. No further event
// is delivered. Safe to call from a handler or another goroutine.
func (l *Loop) Stop() { l.stopped.Store(true) }

// Delivered is the number of events handed to the handler.
func (l *Loop) Delivered() int { return l.count }

func (l *Loop) done(ctx context.Context) bool {
	return l.stopped.Load() || ctx.Err() != nil
}

func (l *Loop) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.Deadline > 0 {
		return context.WithTimeout(ctx, l.cfg.Deadline)
	}
	return context.WithCancel(ctx)
}

// Run is the reactor discipline. It attaches sources in order, dispatches
// them until Stop, ctx cancellation or the deadline, then detaches them in
// reverse order and closes release. Cancellation and the deadline are
// normal stops; a failed dispatch ends the loop with its error. release is
// closed on every path, including that one.
func (l *Loop) Run(ctx context.Context, sources []event.Source, release io.Closer) (err error) {
	attached := 0
	defer func() {
		err = errors.Join(err, teardown(sources[:attached], release))
	}()

	ctx, cancel := l.withDeadline(ctx)
	defer cancel()

	wake := make(chan struct{}, 1)
	signal := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	for _, src := range sources {
		src.Attach(signal)
		attached++
	}

	tick := time.NewTicker(l.cfg.Tick)
	defer tick.Stop()
	emit := l.emitter(ctx)
	for {
		for _, src := range sources {
			if l.done(ctx) {
				return nil
			}
			if _, err := src.Dispatch(emit); err != nil {
				return fmt.Errorf("dispatch %s: %w", src.Name(), err)
			}
		}
		if l.done(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
		case <-tick.C:
		}
	}
}

// Poll is the polling discipline. It stops under the same conditions as
// Run and closes release on every path.
func (l *Loop) Poll(ctx context.Context, p Poller, release io.Closer) (err error) {
	defer func() {
		err = errors.Join(err, teardown(nil, release))
	}()

	ctx, cancel := l.withDeadline(ctx)
	defer cancel()

	emit := l.emitter(ctx)
	for !l.done(ctx) {
		evs, err := p.Dispatch(ctx, l.cfg.Tick)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return fmt.Errorf("dispatch: %w", err)
		}
		for _, ev := range evs {
			emit(ev)
		}
	}
	return nil
}

func teardown(sources []event.Source, release io.Closer) error {
	var errs []error
	for i := len(sources) - 1; i >= 0; i-- {
		if err := sources[i].Detach(); err != nil {
			errs = append(errs, fmt.Errorf("detach %s: %w", sources[i].Name(), err))
		}
	}
	if release != nil {
		if err := release.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release input session: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (l *Loop) emitter(ctx context.Context) func(event.Event) {
	return func(ev event.Event) {
		if l.done(ctx) {
			return
		}
		switch e := ev.(type) {
		case event.Keyboard:
			ev = l.decode(e)
		case event.SeatChanged:
			if !e.Active && l.dec != nil {
				// Releases are not delivered while inactive.
				l.dec.Reset()
			}
		}
		l.count++
		l.handler(ev)
	}
}

// decode resolves the key under the current state, then applies the
// transition to it.
func (l *Loop) decode(e event.Keyboard) DecodedKey {
	k := DecodedKey{Keyboard: e}
	if l.dec == nil {
		return k
	}
	k.Keysyms = append([]keymap.Keysym(nil), l.dec.Keysyms(e.Key)...)
	if e.State != event.KeyReleased {
		k.Text = l.dec.Text(e.Key)
	}
	if l.dec.UpdateKey(e.Key, e.State) {
		l.log.Debug("modifier state changed", "mods", l.dec.Mods())
	}
	return k
}
