// Package clocksync implements the client half of Cristian's clock
// synchronization algorithm plus a drift simulator used for demos.
package clocksync

import "time"

// Result is the outcome of one synchronization exchange.
//
// OffsetMs is the value to ADD to the client's local clock to
// approximate server time. ConfidenceMs is half the round trip,
// an uncertainty bound on the offset (smaller is tighter). Both are
// float64 so an odd round trip keeps its half millisecond exactly.
type Result struct {
	OffsetMs     float64
	ConfidenceMs float64
	RTTMs        int64
}

// Estimate computes clock offset and confidence from three timestamps,
// all in milliseconds: clientTimeBefore is the client clock when the
// request was sent, serverTime the server clock when it responded, and
// clientTimeAfter the client clock when the response arrived.
//
// The server time is advanced by half the measured round trip to
// account for the return transmission, assuming symmetric delay.
// Pure function: no clocks read, no side effects.
func Estimate(clientTimeBefore, serverTime, clientTimeAfter int64) Result {
	rtt := clientTimeAfter - clientTimeBefore
	oneWay := float64(rtt) / 2
	adjustedServerTime := float64(serverTime) + oneWay

	return Result{
		OffsetMs:     adjustedServerTime - float64(clientTimeAfter),
		ConfidenceMs: oneWay,
		RTTMs:        rtt,
	}
}

// FormatMillis renders a millisecond timestamp as HH:MM:SS local time.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("15:04:05")
}
