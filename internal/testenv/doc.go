// Package testenv runs a test executable with a prepared environment and,
// on Linux, inside a virtual X display.
package testenv
