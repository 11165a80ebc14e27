package event

// Source is one producer registered with the dispatch loop: the input
// device context, the session notifier or the hotplug notifier.
//
// Attach, Dispatch and Detach are only called from the loop's goroutine.
// Dispatch must not block; it drains whatever the source has buffered and
// hands it to emit in the order the source produced it.
type Source interface {
	Name() string

	// Attach is called once at registration. The source calls wake,
	// from any goroutine, whenever new events are buffered. wake never
	// blocks.
	Attach(wake func())

	// Dispatch delivers buffered events. It returns the number of
	// events emitted.
	Dispatch(emit func(Event)) (int, error)

	// Detach deregisters the source and stops its producers. Calls
	// after the first are no-ops.
	Detach() error
}
