// Package framework contains the low-level pieces shared by every part of the GPU test harness:
// the Logger abstraction, output capturing for test scopes, and the Capabilities list that a
// test module reports about itself. Other components are in the subpackages harness and ldtest.
//
// The general model is:
//
// 1. The harness owns the GPU host. It checks that hardware acceleration exists, negotiates an
// adapter and then a device, and places the device in a slot that the test module can read.
//
// 2. The test module is opaque. It is either compiled into the harness or runs as a separate
// service that the harness talks to over HTTP; either way it exposes one call that runs its
// tests and one call that returns the structured results.
//
// 3. Results are rendered to one or more report sinks, and the module can push progress
// messages to those sinks while it is running.
package framework
