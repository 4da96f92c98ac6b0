// Package gputests is the built-in test module. It runs a fixed set of device and buffer checks
// against whatever device the harness placed in the slot, so the harness can be used without an
// external module.
package gputests
