package tmc

import "errors"

var (
	// ErrMalformedHeader indicates that a reply does not begin with a valid block header.
	ErrMalformedHeader = errors.New("malformed block header")

	// ErrHeaderTruncated indicates that the buffer ends before the header is complete.
	// It is always reported together with ErrMalformedHeader; a reader that can fetch
	// more bytes may retry the decode.
	ErrHeaderTruncated = errors.New("block header truncated")

	// ErrShortPayload indicates that a buffer holds fewer payload bytes than its header declares.
	ErrShortPayload = errors.New("block payload shorter than declared length")
)
