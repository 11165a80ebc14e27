package input

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/session"
)

// Session is an acquired privileged session with a device context bound
// to its seat. A process opens at most one.
//
// Events are consumed either by registering Sources with a reactor loop
// or by calling Dispatch repeatedly. Use one or the other.
type Session struct {
	sess    session.Session
	ctx     *Context
	sources []event.Source

	wake     chan struct{}
	attached bool

	closeOnce sync.Once
	closeErr  error
}

// Open acquires a session from provider and binds a device context to
// its seat. Both failures are AcquisitionErrors.
func Open(provider, seat string, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	sess, err := session.Open(provider, seat, opts.Log)
	if err != nil {
		return nil, err
	}
	s, err := Bind(sess, opts)
	if err != nil {
		sess.Close()
		return nil, err
	}
	return s, nil
}

// Bind wraps an already acquired session. The session is closed by
// Session.Close but not when Bind fails.
func Bind(sess session.Session, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	ctx, err := NewContext(sess, opts)
	if err != nil {
		return nil, err
	}
	s := &Session{
		sess:    sess,
		ctx:     ctx,
		sources: []event.Source{NewNotifier(sess, ctx), ctx},
		wake:    make(chan struct{}, 1),
	}
	if opts.Hotplug {
		hp, err := NewHotplug(ctx, opts.HotplugDir, opts.Log)
		if err != nil {
			opts.Log.Warn("hotplug disabled", "err", err)
		} else {
			s.sources = append(s.sources, hp)
		}
	}
	opts.Log.Info("input session open", "provider", sess.Name(), "seat", ctx.Seat(), "devices", len(ctx.Devices()))
	return s, nil
}

func (s *Session) Provider() string { return s.sess.Name() }

func (s *Session) Seat() string { return s.ctx.Seat() }

func (s *Session) Active() bool { return s.sess.Active() }

func (s *Session) Devices() []event.DeviceInfo { return s.ctx.Devices() }

// Sources returns the event sources in registration order: session
// notifications, devices, then hotplug when enabled.
func (s *Session) Sources() []event.Source { return s.sources }

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Dispatch returns the events available now. When there are none it
// waits up to timeout for one to arrive; a zero timeout waits until ctx
// is done.
func (s *Session) Dispatch(ctx context.Context, timeout time.Duration) ([]event.Event, error) {
	if !s.attached {
		for _, src := range s.sources {
			src.Attach(s.signal)
		}
		s.attached = true
	}

	evs, err := s.drain()
	if err != nil || len(evs) > 0 {
		return evs, err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, nil
	case <-s.wake:
	}
	return s.drain()
}

func (s *Session) drain() ([]event.Event, error) {
	var evs []event.Event
	emit := func(e event.Event) { evs = append(evs, e) }
	for _, src := range s.sources {
		if _, err := src.Dispatch(emit); err != nil {
			return evs, err
		}
	}
	return evs, nil
}

// Close detaches the sources in reverse order, closes the device context
// and then the session. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for i := len(s.sources) - 1; i >= 0; i-- {
			errs = append(errs, s.sources[i].Detach())
		}
		errs = append(errs, s.ctx.Close())
		errs = append(errs, s.sess.Close())
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
