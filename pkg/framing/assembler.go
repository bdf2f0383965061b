// Package framing reassembles the device's line-wrapped XML elements.
//
// The EMU-2 writes each notification as several lines and always puts the
// closing tag of a top-level element on its own line at column zero, so a
// line starting with "</" ends a fragment.
package framing

import "strings"

const terminatorPrefix = "</"

// Assembler accumulates lines into fragments. It is not safe for concurrent use.
type Assembler struct {
	// MaxSize caps the accumulator in bytes. Zero means unlimited.
	MaxSize int

	buf       strings.Builder
	overflows int
}

func NewAssembler(maxSize int) *Assembler {
	return &Assembler{MaxSize: maxSize}
}

// IsTerminator reports whether line closes a fragment.
func IsTerminator(line string) bool {
	return strings.HasPrefix(line, terminatorPrefix)
}

// Feed appends a line. When the line is a terminator the accumulated fragment,
// terminator included, is returned and the accumulator is reset.
func (a *Assembler) Feed(line string) (string, bool) {
	if a.MaxSize > 0 && a.buf.Len()+len(line) > a.MaxSize {
		a.overflows++
		a.buf.Reset()
		if !IsTerminator(line) {
			return "", false
		}
	}

	a.buf.WriteString(line)
	if !IsTerminator(line) {
		return "", false
	}

	fragment := a.buf.String()
	a.buf.Reset()
	return fragment, true
}

// Pending returns the partial fragment accumulated so far.
func (a *Assembler) Pending() string {
	return a.buf.String()
}

// Reset drops any partial fragment.
func (a *Assembler) Reset() {
	a.buf.Reset()
}

// Overflows counts accumulators dropped for exceeding MaxSize.
func (a *Assembler) Overflows() int {
	return a.overflows
}
