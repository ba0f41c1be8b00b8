// Package steps runs the user-defined commands a project attaches to build
// events.
//
// The hooks file is YAML, one list of command lines per event:
//
//	pre-build:
//	  - ./tools/gen-version.sh ${build-mode}
//	post-copy-assets:
//	  - python tools/pack.py "${assets-dir}"
//
// Lines are split like a shell would, then ${name} placeholders are replaced
// with the event's arguments. No shell is started.
package steps
