package byteripper

import (
	"bytes"
	"math"
)

// rangeEnd returns off+size, or false if the sum overflows.
func rangeEnd(off, size uint64) (uint64, bool) {
	if size > math.MaxUint64-off {
		return 0, false
	}
	return off + size, true
}

// cstring returns the NUL terminated string at the start of b. False is
// returned if b holds no terminator.
func cstring(b []byte) (string, bool) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", false
	}
	return string(b[:i]), true
}
