// Package gpu defines the host-side view of hardware acceleration that the harness negotiates
// before any test runs: the capability probe, adapter and device requests, and the errors that
// each step can produce.
//
// The Host, Adapter, and Device interfaces are implemented by the halhost package for real GPU
// backends, and by simple fakes in tests.
package gpu
