// Package tmc implements the IEEE 488.2 definite-length arbitrary block header
// ("TMC block header") that prefixes binary replies of SCPI instruments.
//
// A block on the wire looks like:
//
//	#<D><L...L><payload...>
//
// where '#' is the marker byte, D is a single ASCII digit giving the number of
// length digits, and L...L are D ASCII decimal digits giving the payload size in
// bytes. The header is therefore 2+D bytes long.
//
// Example:
//
//	#9000001152<1152 bytes of PNG data>\n
//
// decodes to Header{HeaderLen: 11, PayloadLen: 1152}.
//
// The format is fixed by the instrument; nothing here is configurable.
package tmc
