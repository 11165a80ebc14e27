package input

import (
	"sync"

	"github.com/andresousadotpt/seatkeys/internal/event"
	"github.com/andresousadotpt/seatkeys/internal/session"
)

// Notifier is the event source for the session's own notifications:
// foreground changes become seat-changed, device revocation becomes
// device-changed.
type Notifier struct {
	ctx  *Context
	feed <-chan session.Notification
	stop chan struct{}
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	queue []session.Notification
	wake  func()
}

func NewNotifier(sess session.Session, ctx *Context) *Notifier {
	n := &Notifier{
		ctx:  ctx,
		feed: sess.Notifications(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer close(n.done)
	for {
		select {
		case <-n.stop:
			return
		case note, ok := <-n.feed:
			if !ok {
				return
			}
			n.mu.Lock()
			n.queue = append(n.queue, note)
			wake := n.wake
			n.mu.Unlock()
			if wake != nil {
				wake()
			}
		}
	}
}

func (n *Notifier) Name() string { return "session" }

func (n *Notifier) Attach(wake func()) {
	n.mu.Lock()
	n.wake = wake
	ready := len(n.queue) > 0
	n.mu.Unlock()
	if ready && wake != nil {
		wake()
	}
}

func (n *Notifier) Dispatch(emit func(event.Event)) (int, error) {
	n.mu.Lock()
	batch := n.queue
	n.queue = nil
	n.mu.Unlock()

	count := 0
	for _, note := range batch {
		switch note.Kind {
		case session.ActiveChanged:
			emit(event.SeatChanged{Seat: n.ctx.Seat(), Active: note.Active})
			count++
		case session.DevicePaused, session.DeviceResumed:
			if info, ok := n.ctx.DeviceByNumber(note.Major, note.Minor); ok {
				emit(event.DeviceChanged{DeviceInfo: info})
				count++
			}
		}
	}
	return count, nil
}

func (n *Notifier) Detach() error {
	n.once.Do(func() {
		close(n.stop)
		<-n.done
		n.mu.Lock()
		n.wake = nil
		n.mu.Unlock()
	})
	return nil
}
