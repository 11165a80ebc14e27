package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresousadotpt/seatkeys/internal/decoder"
	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/keymap"
)

type recorder struct{ calls []string }

func (r *recorder) add(s string) { r.calls = append(r.calls, s) }

type fakeSource struct {
	name       string
	rec        *recorder
	batches    [][]event.Event
	err        error
	dispatches int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Attach(wake func()) {
	s.rec.add("attach " + s.name)
	if len(s.batches) > 0 {
		wake()
	}
}

func (s *fakeSource) Dispatch(emit func(event.Event)) (int, error) {
	s.dispatches++
	if s.err != nil {
		return 0, s.err
	}
	if len(s.batches) == 0 {
		return 0, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	for _, e := range b {
		emit(e)
	}
	return len(b), nil
}

func (s *fakeSource) Detach() error {
	s.rec.add("detach " + s.name)
	return nil
}

type releaser struct{ rec *recorder }

func (r releaser) Close() error {
	r.rec.add("release")
	return nil
}

type fakePoller struct {
	batches [][]event.Event
	err     error
}

func (p *fakePoller) Dispatch(ctx context.Context, timeout time.Duration) ([]event.Event, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.batches) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(timeout):
			return nil, nil
		}
	}
	b := p.batches[0]
	p.batches = p.batches[1:]
	return b, nil
}

func quietConfig() Config {
	return Config{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newDecoder(t *testing.T) *decoder.Decoder {
	t.Helper()
	d, err := decoder.New("us")
	require.NoError(t, err)
	return d
}

func key(code evdev.EvCode, state event.KeyState) event.Keyboard {
	return event.Keyboard{Origin: event.Origin{Seat: "seat0", Device: "kbd"}, Key: uint32(code), State: state}
}

func motion() event.PointerMotion {
	return event.PointerMotion{Origin: event.Origin{Seat: "seat0", Device: "mouse"}, DX: 1, DY: 2}
}

func TestRunDeliversInSourceOrder(t *testing.T) {
	rec := &recorder{}
	src := &fakeSource{name: "devices", rec: rec, batches: [][]event.Event{
		{key(evdev.KEY_A, event.KeyPressed), motion()},
		{key(evdev.KEY_B, event.KeyPressed)},
	}}

	var got []event.Event
	var l *Loop
	l = New(newDecoder(t), func(ev event.Event) {
		got = append(got, ev)
		if len(got) == 3 {
			l.Stop()
		}
	}, quietConfig())

	require.NoError(t, l.Run(context.Background(), []event.Source{src}, releaser{rec}))
	require.Len(t, got, 3)

	a, ok := got[0].(DecodedKey)
	require.True(t, ok)
	assert.Equal(t, "a", a.Text)
	assert.Equal(t, []keymap.Keysym{keymap.FromRune('a')}, a.Keysyms)
	assert.Equal(t, motion(), got[1])
	b, ok := got[2].(DecodedKey)
	require.True(t, ok)
	assert.Equal(t, "b", b.Text)
	assert.Equal(t, 3, l.Delivered())
}

func TestRunTeardownOrder(t *testing.T) {
	rec := &recorder{}
	first := &fakeSource{name: "session", rec: rec, batches: [][]event.Event{
		{event.SeatChanged{Seat: "seat0", Active: true}, event.SeatChanged{Seat: "seat0", Active: true}},
	}}
	second := &fakeSource{name: "devices", rec: rec, batches: [][]event.Event{{motion()}}}

	var l *Loop
	l = New(nil, func(event.Event) { l.Stop() }, quietConfig())
	require.NoError(t, l.Run(context.Background(), []event.Source{first, second}, releaser{rec}))

	assert.Equal(t, 1, l.Delivered(), "nothing is delivered after stop")
	assert.Zero(t, second.dispatches, "no dispatch after stop")
	assert.Equal(t, []string{
		"attach session", "attach devices",
		"detach devices", "detach session",
		"release",
	}, rec.calls)
}

func TestRunDeadline(t *testing.T) {
	rec := &recorder{}
	src := &fakeSource{name: "devices", rec: rec}
	cfg := quietConfig()
	cfg.Deadline = 30 * time.Millisecond
	cfg.Tick = 5 * time.Millisecond

	start := time.Now()
	err := New(nil, func(event.Event) {}, cfg).Run(context.Background(), []event.Source{src}, releaser{rec})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Greater(t, src.dispatches, 1, "ticks keep dispatching")
	assert.Equal(t, []string{"attach devices", "detach devices", "release"}, rec.calls)
}

func TestRunCancelled(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil, func(event.Event) {}, quietConfig()).Run(ctx, []event.Source{&fakeSource{name: "s", rec: rec}}, releaser{rec})
	require.NoError(t, err)
	assert.Equal(t, []string{"attach s", "detach s", "release"}, rec.calls)
}

func TestRunDispatchErrorIsFatal(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("read failed")
	src := &fakeSource{name: "devices", rec: rec, err: boom}

	err := New(nil, func(event.Event) {}, quietConfig()).Run(context.Background(), []event.Source{src}, releaser{rec})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dispatch devices")
	assert.Equal(t, 1, src.dispatches)
	assert.Equal(t, []string{"attach devices", "detach devices", "release"}, rec.calls)
}

func TestRoutingDecodesKeyboardOnly(t *testing.T) {
	var got []event.Event
	l := New(newDecoder(t), func(ev event.Event) { got = append(got, ev) }, quietConfig())
	emit := l.emitter(context.Background())

	for _, ev := range []event.Event{
		key(evdev.KEY_LEFTSHIFT, event.KeyPressed),
		key(evdev.KEY_A, event.KeyPressed),
		key(evdev.KEY_A, event.KeyReleased),
		event.SeatChanged{Seat: "seat0", Active: false},
		key(evdev.KEY_A, event.KeyPressed),
		motion(),
		event.DeviceAdded{DeviceInfo: event.DeviceInfo{ID: 3, Path: "/dev/input/event3"}},
	} {
		emit(ev)
	}
	require.Len(t, got, 7)

	shift := got[0].(DecodedKey)
	assert.Equal(t, []keymap.Keysym{keymap.KeyShiftL}, shift.Keysyms)
	assert.Empty(t, shift.Text)

	assert.Equal(t, "A", got[1].(DecodedKey).Text)
	assert.Empty(t, got[2].(DecodedKey).Text, "releases type nothing")
	assert.Equal(t, event.SeatChanged{Seat: "seat0", Active: false}, got[3])
	assert.Equal(t, "a", got[4].(DecodedKey).Text, "inactive seat resets held modifiers")
	assert.Equal(t, motion(), got[5])
	assert.Equal(t, event.KindDeviceAdded, got[6].Kind())
}

func TestRoutingWithoutDecoder(t *testing.T) {
	var got []event.Event
	l := New(nil, func(ev event.Event) { got = append(got, ev) }, quietConfig())
	l.emitter(context.Background())(key(evdev.KEY_A, event.KeyPressed))

	require.Len(t, got, 1)
	k := got[0].(DecodedKey)
	assert.Equal(t, uint32(evdev.KEY_A), k.Key)
	assert.Nil(t, k.Keysyms)
}

func TestPoll(t *testing.T) {
	rec := &recorder{}
	p := &fakePoller{batches: [][]event.Event{
		{key(evdev.KEY_A, event.KeyPressed)},
		{motion(), key(evdev.KEY_ESC, event.KeyPressed), motion()},
	}}

	var got []event.Kind
	var l *Loop
	l = New(newDecoder(t), func(ev event.Event) {
		got = append(got, ev.Kind())
		if k, ok := ev.(DecodedKey); ok && len(k.Keysyms) > 0 && k.Keysyms[0] == keymap.KeyEscape {
			l.Stop()
		}
	}, quietConfig())

	require.NoError(t, l.Poll(context.Background(), p, releaser{rec}))
	assert.Equal(t, []event.Kind{event.KindKeyboard, event.KindPointerMotion, event.KindKeyboard}, got)
	assert.Equal(t, []string{"release"}, rec.calls)
}

func TestPollDeadlineAndErrors(t *testing.T) {
	rec := &recorder{}
	cfg := quietConfig()
	cfg.Deadline = 20 * time.Millisecond
	cfg.Tick = 5 * time.Millisecond
	require.NoError(t, New(nil, func(event.Event) {}, cfg).Poll(context.Background(), &fakePoller{}, releaser{rec}))
	assert.Equal(t, []string{"release"}, rec.calls)

	boom := errors.New("device context gone")
	err := New(nil, func(event.Event) {}, quietConfig()).Poll(context.Background(), &fakePoller{err: boom}, releaser{rec})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"release", "release"}, rec.calls)
}
