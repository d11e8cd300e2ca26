package engine

import "time"

type (
	// Broker carries the messaging between the control context and the render
	// context. It is two one-way queues: ToEngine carries commands from the
	// control surface (and the loader's publish step) to the engine, ToControl
	// carries telemetry and acknowledgements back. LoadEvents is a third,
	// control-side-only queue on which the loader reports progress; the engine
	// never touches it.
	//
	// All sends through the broker go through TrySend, so neither side can
	// ever block the other: a full queue drops the value. The capacities are
	// sized so that dropping only happens under message rates far beyond what
	// a performer (or a misbehaving control surface) can produce, and the
	// values that are sent at high rates (parameter sweeps, peak meters) are
	// exactly the ones where losing one of many is immaterial.
	Broker struct {
		ToEngine   chan Command
		ToControl  chan Event
		LoadEvents chan LoadEvent
	}
)

const brokerCapacity = 1024

func NewBroker() *Broker {
	return &Broker{
		ToEngine:   make(chan Command, brokerCapacity),
		ToControl:  make(chan Event, brokerCapacity),
		LoadEvents: make(chan LoadEvent, brokerCapacity),
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Returns true if the value was sent,
// false otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive is a helper function to block until a value is received from
// a channel, or timing out after t. ok will be false if the timeout occurred
// or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
