package scope

import "errors"

var (
	// ErrInstrumentRejected indicates that the instrument answered *IDN? with
	// "command error". Remote commands over LAN are most likely disabled
	// (Utility -> IO Setting -> RemoteIO -> LAN).
	ErrInstrumentRejected = errors.New("instrument rejected the identification query")

	// ErrUnrecognizedInstrument indicates that the identification does not match a
	// Rigol DS1000Z series oscilloscope. It is not fatal on its own.
	ErrUnrecognizedInstrument = errors.New("unrecognized instrument")

	// ErrNoReply indicates that a query produced no reply within the read timeout.
	ErrNoReply = errors.New("no reply from instrument")

	// ErrUnexpectedReply indicates a reply that could not be interpreted.
	ErrUnexpectedReply = errors.New("unexpected reply")

	// ErrUnknownChannel indicates a channel name outside waveform.ChannelOrder.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrUnsupportedFormat indicates an image format the instrument does not offer.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)
