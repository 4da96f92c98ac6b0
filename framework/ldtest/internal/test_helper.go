// Package internal holds functions that stacktrace tests need to live outside of ldtest.
package internal

// Call invokes fn, adding one frame from another package to the stack.
func Call(fn func()) {
	fn()
}
