package channels

import "time"

// ReceiveAll drains a channel, collecting messages until it is closed, the
// idle timeout elapses with nothing received, or max messages have been
// collected. A max of 0 means unlimited.
func ReceiveAll[T any](ch <-chan T, idle time.Duration, max int) []T {
	var out []T

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}

			out = append(out, msg)
			if max > 0 && len(out) >= max {
				return out
			}

		case <-time.After(idle):
			return out
		}
	}
}
