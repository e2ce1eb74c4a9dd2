package utilities

// CreateNonBlockingSender returns a send func that never blocks. When ch is
// full its backlog is dropped in favour of msg, so a buffered channel of
// size one collapses bursts into a single pending request.
func CreateNonBlockingSender[T any](ch chan T) func(T) {
	return func(msg T) {
		select {
		case ch <- msg:
			// Message sent successfully
		default:
			// Channel is full, drain it and try again
			drainChannel(ch)
			select {
			case ch <- msg:
				// Message sent after draining
			default:
				// Channel is still full or closed, message dropped
			}
		}
	}
}

func drainChannel[T any](ch chan T) {
	for {
		select {
		case <-ch:
			// Removed an item
		default:
			// Channel is empty
			return
		}
	}
}
