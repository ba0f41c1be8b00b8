// Package platform names the build targets, decides which of them a host
// can build, and resolves where each target's native project lives inside a
// game project. It also carries a few filesystem helpers that behave the same
// on every host (permission bits, symlink-aware removal).
package platform
