// Package cli defines the Cobra command tree for the ccbuild CLI. Each file
// in this package builds one top-level command (compile, cfg, platforms,
// etc.) and the root command assembles them. Commands delegate to internal
// packages for the build logic and only handle flag parsing, I/O formatting,
// and user interaction.
package cli
