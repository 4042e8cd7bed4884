package lxi

import "sync/atomic"

// OpState is the lifecycle state of a Session.
type OpState uint32

const (
	ClosedState OpState = iota
	ClosingState
	OpeningState
	OpenedState
)

func (s OpState) String() string {
	switch s {
	case ClosedState:
		return "Closed"
	case ClosingState:
		return "Closing"
	case OpeningState:
		return "Opening"
	case OpenedState:
		return "Opened"
	default:
		return "Unknown"
	}
}

// AtomicOpState holds an OpState that can be read and transitioned atomically.
type AtomicOpState struct {
	state atomic.Uint32
}

func (st *AtomicOpState) String() string {
	return st.Get().String()
}

// Get returns the current state of the AtomicOpState.
func (st *AtomicOpState) Get() OpState {
	return OpState(st.state.Load())
}

// Set sets the state of the AtomicOpState to the given state.
func (st *AtomicOpState) Set(state OpState) {
	st.state.Store(uint32(state))
}

func (st *AtomicOpState) IsClosed() bool {
	return st.Get() == ClosedState
}

func (st *AtomicOpState) IsOpened() bool {
	return st.Get() == OpenedState
}

// ToOpening moves Closed to Opening.
func (st *AtomicOpState) ToOpening() bool {
	return st.state.CompareAndSwap(uint32(ClosedState), uint32(OpeningState))
}

// ToOpened moves Opening to Opened. It is a no-op when already opened.
func (st *AtomicOpState) ToOpened() bool {
	if st.IsOpened() {
		return true
	}

	return st.state.CompareAndSwap(uint32(OpeningState), uint32(OpenedState))
}

// ToClosing moves Opened or Opening to Closing.
func (st *AtomicOpState) ToClosing() bool {
	if st.state.CompareAndSwap(uint32(OpenedState), uint32(ClosingState)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(OpeningState), uint32(ClosingState))
}

// ToClosed moves Closing to Closed. It is a no-op when already closed.
func (st *AtomicOpState) ToClosed() bool {
	if st.IsClosed() {
		return true
	}

	return st.state.CompareAndSwap(uint32(ClosingState), uint32(ClosedState))
}
