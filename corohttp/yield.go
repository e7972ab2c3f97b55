package corohttp

// Yield values exchanged between the framer and the I/O thread, per
// spec.md §4.3/§6.
const (
	// MayResume indicates the coroutine is suspended at a normal frame
	// boundary and should be re-armed for writability.
	MayResume int32 = 0
	// Abort indicates an unrecoverable framing error; the I/O thread
	// must close the connection.
	Abort int32 = -1
)
