package tmc

import (
	"fmt"
	"strconv"
)

const (
	// Marker is the first byte of every block header.
	Marker = '#'
	// PrefixSize is the size of the marker plus the digit-count byte.
	PrefixSize = 2
	// MaxDigits is the largest length-field width a single digit can announce.
	MaxDigits = 9
	// MaxHeaderSize is the size of the longest possible header.
	MaxHeaderSize = PrefixSize + MaxDigits
)

// Header describes a decoded block header.
type Header struct {
	// HeaderLen is the number of leading bytes that make up the header (2 + digit count).
	HeaderLen int
	// PayloadLen is the payload size in bytes declared by the header.
	PayloadLen int
}

// Len returns the size of the header plus the declared payload.
func (h Header) Len() int {
	return h.HeaderLen + h.PayloadLen
}

// Digits returns the width of the length field.
func (h Header) Digits() int {
	return h.HeaderLen - PrefixSize
}

// DecodeHeader decodes the block header at the start of b.
//
// b only needs to contain the header; payload bytes may be absent.
// All failures wrap ErrMalformedHeader. Failures caused only by b ending too
// early additionally wrap ErrHeaderTruncated.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) == 0 {
		return Header{}, fmt.Errorf("%w: %w: empty input", ErrMalformedHeader, ErrHeaderTruncated)
	}

	if b[0] != Marker {
		return Header{}, fmt.Errorf("%w: marker byte is %q, expected %q", ErrMalformedHeader, b[0], Marker)
	}

	if len(b) < PrefixSize {
		return Header{}, fmt.Errorf("%w: %w: missing digit count byte", ErrMalformedHeader, ErrHeaderTruncated)
	}

	if !isDigit(b[1]) || b[1] == '0' {
		return Header{}, fmt.Errorf("%w: digit count byte %q is not in ['1', '9']", ErrMalformedHeader, b[1])
	}

	digits := int(b[1] - '0')
	headerLen := PrefixSize + digits
	if len(b) < headerLen {
		return Header{}, fmt.Errorf("%w: %w: need %d header bytes, have %d", ErrMalformedHeader, ErrHeaderTruncated, headerLen, len(b))
	}

	payloadLen := 0
	for _, c := range b[PrefixSize:headerLen] {
		if !isDigit(c) {
			return Header{}, fmt.Errorf("%w: length field %q is not decimal", ErrMalformedHeader, b[PrefixSize:headerLen])
		}
		payloadLen = payloadLen*10 + int(c-'0')
	}

	return Header{HeaderLen: headerLen, PayloadLen: payloadLen}, nil
}

// EncodeHeader returns the block header announcing payloadLen bytes with a
// zero-padded length field of the given width.
//
// It returns an error when digits is outside [1, 9], payloadLen is negative,
// or payloadLen does not fit in digits decimal places.
func EncodeHeader(payloadLen int, digits int) ([]byte, error) {
	if digits < 1 || digits > MaxDigits {
		return nil, fmt.Errorf("digit count %d out of range [1, %d]", digits, MaxDigits)
	}

	if payloadLen < 0 {
		return nil, fmt.Errorf("negative payload length %d", payloadLen)
	}

	if MinDigits(payloadLen) > digits {
		return nil, fmt.Errorf("payload length %d does not fit in %d digits", payloadLen, digits)
	}

	buf := make([]byte, 0, PrefixSize+digits)
	buf = append(buf, Marker, byte('0'+digits))
	buf = fmt.Appendf(buf, "%0*d", digits, payloadLen)

	return buf, nil
}

// MinDigits returns the smallest length-field width able to hold n.
func MinDigits(n int) int {
	return len(strconv.Itoa(n))
}

// Payload decodes the header at the start of buf and returns exactly the
// declared payload, discarding any trailing bytes such as the line terminator.
//
// The returned slice aliases buf.
func Payload(buf []byte) ([]byte, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}

	if len(buf) < h.Len() {
		return nil, fmt.Errorf("%w: have %d of %d bytes", ErrShortPayload, len(buf)-h.HeaderLen, h.PayloadLen)
	}

	return buf[h.HeaderLen:h.Len()], nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
