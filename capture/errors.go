package capture

import "errors"

var (
	// ErrAborted indicates that the operator declined to continue with an
	// unrecognized instrument.
	ErrAborted = errors.New("capture aborted")

	// ErrNoActiveChannels indicates a CSV capture with no displayed channel.
	ErrNoActiveChannels = errors.New("no active channels")

	// ErrHostRequired indicates that no instrument host was given.
	ErrHostRequired = errors.New("instrument host is required")
)
