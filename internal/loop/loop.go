// Package loop provides the single-threaded cooperative scheduler that every
// image-manager component runs on.
//
// Callbacks posted to a Loop never run concurrently with each other, so state
// owned by the loop needs no locking. Work that completes on other goroutines
// (network I/O, wall-clock timers) re-enters the loop through Post.
package loop

import "time"

// Loop runs callbacks one at a time, in submission order.
type Loop interface {
	// Post schedules fn to run on a later turn of the loop.
	Post(fn func())

	// AfterFunc schedules fn to run on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}
