// Package servicedef contains definitions for the REST protocol that remote test modules must
// implement.
//
// The package is used by the test harness, but can also be imported by any module service
// code that is Go-based.
package servicedef
