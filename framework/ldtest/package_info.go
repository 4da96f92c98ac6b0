// Package ldtest contains a test runner framework that is similar to Go's testing package,
// but is run as regular Go application code rather than Go tests. The built-in GPU test module
// runs its suites on it, which gives it scoped debug output, filtering by test ID, and
// assertion failures with stacktraces.
package ldtest
