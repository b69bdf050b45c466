package state

type State uint32

const (
	Uninitialized State = iota
	BeingCreated
	Created
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case BeingCreated:
		return "being-created"
	case Created:
		return "created"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Readable reports whether a slot in this state holds a published value.
func (s State) Readable() bool {
	return s == Created
}

// Settled reports whether waiters may stop waiting on a slot in this state.
func (s State) Settled() bool {
	return s != BeingCreated && s != Uninitialized
}

func Encode(s State) uint32 {
	return uint32(s)
}

func Decode(word uint32) State {
	if word > uint32(Destroyed) {
		return State(^uint32(0))
	}
	return State(word)
}
