// Package callbackfixtures contains definitions for the REST protocol of the callback requests
// that a remote module sends to the test harness.
//
// The package is used by the test harness, but can also be imported by any module service
// code that is Go-based.
package callbackfixtures
