// Package ownership provides reference-counted handles to shared storage with
// two interchangeable strategies.
//
// An Exclusive handle is a plain counted cell with no synchronization. It is
// the cheap choice when every access happens on one goroutine. A Shared handle
// counts owners atomically and guards the cell with a read/write mutex that is
// held for the duration of each With or WithMut callback.
//
// Code written against Ref works unchanged in either mode:
//
//	ref := ownership.New(ownership.Shared, counter{})
//	alias := ref.Clone()
//	_ = alias.WithMut(func(c *counter) error {
//		c.n++
//		return nil
//	})
//	alias.Release()
//	ref.Release() // last owner: the value is dropped
//
// A Shared callback that panics poisons the cell. The panic propagates to the
// caller after the guard is released, and every later access through any
// handle to that cell returns ErrConcurrencyFailure.
package ownership
