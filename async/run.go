// Package async has small helpers for moving function calls onto goroutines.
package async

import "github.com/Xaypanya/sniperz/generic"

// Run will run a function in a goroutine, returning its result via a channel.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		c <- f()
	}()
	return c
}

// RunResult is like Run for functions returning (T, error).
func RunResult[T any](f func() (T, error)) <-chan generic.Result[T] {
	c := make(chan generic.Result[T], 1)
	go func() {
		c <- generic.NewResult(f())
	}()
	return c
}
