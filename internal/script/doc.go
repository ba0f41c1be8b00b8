// Package script compiles lua and js game scripts in place.
//
// In-place compilation overwrites a source tree, so every tree is first
// copied to a sibling "<dir>-backup" directory and put back once packaging is
// done, whether or not it succeeded. WithBackup runs that cycle as a scoped
// resource.
package script
