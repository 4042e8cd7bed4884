package tmc

import (
	"testing"
)

// FuzzDecodeHeader fuzzes the block header decoder with arbitrary input.
//
// The invariants are: DecodeHeader never panics, and a successful decode
// reports a header length consistent with the digit count byte.
func FuzzDecodeHeader(f *testing.F) {
	f.Add([]byte("#9000001152"))
	f.Add([]byte("#800000010"))
	f.Add([]byte("#10"))
	f.Add([]byte("#"))
	f.Add([]byte("command error\n"))
	f.Add([]byte{})
	f.Add([]byte("#9-00000001"))

	f.Fuzz(func(t *testing.T, data []byte) {
		h, err := DecodeHeader(data)
		if err != nil {
			return
		}

		if h.HeaderLen != PrefixSize+int(data[1]-'0') {
			t.Fatalf("header length %d inconsistent with digit byte %q", h.HeaderLen, data[1])
		}

		if h.PayloadLen < 0 {
			t.Fatalf("negative payload length %d", h.PayloadLen)
		}

		enc, err := EncodeHeader(h.PayloadLen, h.Digits())
		if err != nil {
			t.Fatalf("re-encode failed: %v", err)
		}

		if string(enc) != string(data[:h.HeaderLen]) {
			t.Fatalf("re-encoded header %q differs from input %q", enc, data[:h.HeaderLen])
		}
	})
}
