// Package stdx holds small helpers for values that are known good at
// program start, such as encoder modes built from constant options.
package stdx

// Must0 panics when err is not nil.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v, or panics when err is not nil.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
