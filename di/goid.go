package di

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID returns the numeric ID of the calling goroutine.
//
// Ambient scope frames and diagnostic resolution stacks are goroutine-local
// state, and the runtime does not expose goroutine identity directly. The ID
// is parsed from the first line of the stack header ("goroutine 123 [..."),
// the same technique goroutine-scoped providers rely on. The cost is one
// shallow runtime.Stack call; it is only paid on the ambient and diagnostic
// paths, never on a plain container resolve.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
