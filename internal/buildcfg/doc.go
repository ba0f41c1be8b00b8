// Package buildcfg reads and migrates build-cfg.json, the per-project list of
// resource copy rules consumed after a native build.
//
// A copy rule is either a bare path string or an object with from, to and
// optional include/exclude patterns. Older projects used platform-specific
// key names (copy_to_assets on android, copy_files on win32); Migrate rewrites
// those files once under the canonical copy_resources/must_copy_resources keys.
package buildcfg
