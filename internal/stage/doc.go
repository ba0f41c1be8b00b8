// Package stage copies build artifacts and resources into an output
// directory according to build-cfg.json copy rules, and trims what the
// packaged game does not need.
package stage
