package cyphr

import "runtime"

// Zero overwrites a byte slice with zeros to clear sensitive data from
// memory. Best effort: Go gives no guarantee about copies the runtime or
// compiler may have made.
func Zero(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
