// Package builder compiles a cocos2d-x project for one target platform.
//
// A compile request becomes an immutable State (project, resolved target,
// mode, output directory). Builder.Compile migrates the platform's build
// configuration, fires the pre-build hooks, dispatches to exactly one
// platform routine and fires the post-build hooks. Every failure is returned
// as an *Error whose Kind is also the process exit code.
package builder
